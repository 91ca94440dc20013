// Package log provides slog loggers that never print secrets.
//
// Runs routinely carry session cookies, Authorization headers and proxy
// credentials. The SecureHandler masks them by key name, by value pattern,
// inside header maps, and in URLs with user info, even in verbose mode.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("session", "headers", cfg.Headers, "proxy", proxyURL)
package log
