// Package logger provides structured logging built on log/slog: a small factory with
// environment presets and attribute helpers for the authentication domain.
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/lifevault/core/logger"
//
//	log := logger.New(
//		logger.WithProduction("lifevault"),
//		logger.WithLevel(slog.LevelInfo),
//	)
//
//	log.Info("login code issued",
//		logger.Component("verification"),
//		logger.Email("user@example.com"), // logged as u***@example.com
//		logger.Purpose("login-2fa"),
//	)
//
// # Nil Safety
//
// Attribute helpers return an empty slog.Attr for nil or empty values, so call sites never need
// explicit checks:
//
//	log.Warn("dispatch failed", logger.Error(err))
//
// # Sensitive Data
//
// Codes, PINs, passwords and secrets must never be passed to a logger. Email addresses are masked
// by the Email helper; account and device identifiers are logged verbatim.
package logger
