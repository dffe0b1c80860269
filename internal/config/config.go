// Package config holds the immutable, process-wide configuration loaded
// once at startup, in the same "small flat struct bound by pflag" style the
// teacher's cmd/gotpm command options use.
package config

import "time"

// Config is immutable once built at startup from Default and the serve
// command's flags; nothing in the request path mutates it.
type Config struct {
	// ListenAddr is the address the attestation endpoint listens on.
	ListenAddr string
	// MetricsAddr is the address the /metrics endpoint listens on, kept
	// separate from ListenAddr per spec.md §4.10 so the attestation
	// surface and the operational surface can be firewalled independently.
	MetricsAddr string
	// BinDir is the directory containing the external policy verifier
	// executable.
	BinDir string
	// PolicyVerifierName is the filename (within BinDir) of the external
	// policy verifier invoked per spec.md §5.
	PolicyVerifierName string

	// MaxRequestBytes bounds the total size of an incoming multipart
	// request body.
	MaxRequestBytes int64
	// MaxPartBytes bounds any single multipart part.
	MaxPartBytes int64

	// RequireEventLog, when true, rejects requests that omit the eventlog
	// part; when false (the default) a missing event log is accepted and
	// only the quote/PCR check runs. Resolves spec.md §9's open question.
	RequireEventLog bool
	// AllowSHA1 permits SHA-1 PCR banks; spec.md recommends leaving this
	// false in production.
	AllowSHA1 bool

	// PolicyTimeout bounds how long the external policy verifier may run.
	PolicyTimeout time.Duration
}

// Default returns a Config with the conservative defaults spec.md §9
// settles on: event logs optional, SHA-1 banks rejected.
func Default() Config {
	return Config{
		ListenAddr:         ":8443",
		MetricsAddr:        ":9443",
		BinDir:             "/usr/libexec/attestd",
		PolicyVerifierName: "attestd-policy-verify",
		MaxRequestBytes:    16 << 20,
		MaxPartBytes:       8 << 20,
		RequireEventLog:    false,
		AllowSHA1:          false,
		PolicyTimeout:      30 * time.Second,
	}
}
