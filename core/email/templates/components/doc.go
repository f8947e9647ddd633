// Package components provides email-safe HTML building blocks as templ components.
//
// Layout wraps the content in a centered, table-based container that renders consistently in
// common mail clients. All text arguments are HTML-escaped.
package components
