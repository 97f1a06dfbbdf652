// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (session tokens, receipts, emails)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Security Features
//
// Save files come from live player accounts, and verbose audit runs log raw
// attribute values while diagnosing malformed records. The SecureHandler
// automatically sanitizes sensitive information in log output:
//   - Account authentication values (passwords, tokens, session identifiers)
//   - Purchase receipts and store transaction tokens
//   - Account email addresses and device identifiers
//   - Secret values detected by pattern matching (JWTs, bearer tokens, API keys)
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of account data in logs that may be shared or stored.
//
// # Usage
//
//	// Create a secure logger
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("record skipped",
//	    "session_token", "eyJhbGciOi...",  // Will be sanitized to "***REDACTED***"
//	    "user", "user_42",
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
