// Package templates renders templ components into HTML email bodies.
//
//	body, err := templates.Render(ctx, components.Layout("Sign-in code",
//		components.Header("Your sign-in code", ""),
//		components.OTP(code),
//		components.TextSecondary("This code expires in 10 minutes."),
//	))
//
// The components subpackage holds the building blocks. They are written directly against
// templ.ComponentFunc so the package has no generated code.
package templates
