// Package log provides structured logging with automatic masking of
// credentials and personal identifiers, built on the standard slog
// package.
//
// Crawl logs routinely pass through CPF and CNPJ numbers, captcha
// solver API keys, and portal session cookies. The SecureHandler wraps
// any slog.Handler and masks those values before they are written, so
// the masking holds for text and JSON output alike and regardless of
// verbosity.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("search submitted",
//	    "term", "111.444.777-35",                 // masked
//	    "url", "https://pje1g.trf1.jus.br/...",   // kept
//	)
//	slog.SetDefault(logger)
package log
