// FILE: actionwisp/src/internal/config/tls.go
package config

// TLSClientConfig configures TLS for wss:// coordinator endpoints
type TLSClientConfig struct {
	Enabled bool `toml:"enabled"`

	// Client certificate for mTLS
	ClientCertFile string `toml:"client_cert_file"`
	ClientKeyFile  string `toml:"client_key_file"`

	// CA bundle used to verify the coordinator certificate
	ServerCAFile string `toml:"server_ca_file"`
	ServerName   string `toml:"server_name"`

	InsecureSkipVerify bool `toml:"insecure_skip_verify"`

	// "TLS1.2", "TLS1.3"
	MinVersion string `toml:"min_version"`
	MaxVersion string `toml:"max_version"`

	// Comma-separated list
	CipherSuites string `toml:"cipher_suites"`
}
