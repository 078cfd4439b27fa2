// Package tlsconfig provides the small set of SSL/TLS helpers the byte
// stream dialer needs: a sane default client config and a human-readable
// version name for logging.
package tlsconfig

import "crypto/tls"

// Default returns the baseline TLS client configuration used for every
// outbound socket connection (spec.md §4.3): TLS 1.2 minimum, SNI set to
// serverName unless disableSNI is set.
func Default(serverName string, disableSNI, insecure bool) *tls.Config {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecure,
	}
	if !disableSNI {
		cfg.ServerName = serverName
	}
	return cfg
}

// VersionName converts a tls.Config version constant to a human-readable
// string for structured logs.
func VersionName(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return "unknown"
	}
}
