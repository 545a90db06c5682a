// FILE: actionwisp/src/internal/tls/client.go
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"actionwisp/src/internal/config"

	"github.com/lixenwraith/log"
)

// ClientManager holds the TLS settings for wss:// coordinator connections
type ClientManager struct {
	config    *config.TLSClientConfig
	tlsConfig *tls.Config
	logger    *log.Logger
}

// NewClientManager returns nil without error when TLS is not enabled
func NewClientManager(cfg *config.TLSClientConfig, logger *log.Logger) (*ClientManager, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion:         parseTLSVersion(cfg.MinVersion, tls.VersionTLS12),
		MaxVersion:         parseTLSVersion(cfg.MaxVersion, tls.VersionTLS13),
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
	if tlsConfig.MinVersion > tlsConfig.MaxVersion {
		return nil, fmt.Errorf("min TLS version %s exceeds max %s",
			tlsVersionString(tlsConfig.MinVersion), tlsVersionString(tlsConfig.MaxVersion))
	}
	if cfg.CipherSuites != "" {
		tlsConfig.CipherSuites = parseCipherSuites(cfg.CipherSuites)
	}

	cert, err := loadClientCertificate(cfg.ClientCertFile, cfg.ClientKeyFile)
	if err != nil {
		return nil, err
	}
	if cert != nil {
		tlsConfig.Certificates = []tls.Certificate{*cert}
	}

	roots, err := loadRootCAs(cfg.ServerCAFile)
	if err != nil {
		return nil, err
	}
	tlsConfig.RootCAs = roots

	if cfg.InsecureSkipVerify {
		logger.Warn("msg", "Coordinator certificate verification disabled",
			"component", "tls")
	}
	logger.Debug("msg", "Coordinator TLS configured",
		"component", "tls",
		"min_version", tlsVersionString(tlsConfig.MinVersion),
		"max_version", tlsVersionString(tlsConfig.MaxVersion),
		"mtls", cert != nil,
		"custom_ca", roots != nil)

	return &ClientManager{config: cfg, tlsConfig: tlsConfig, logger: logger}, nil
}

// loadClientCertificate returns nil when no mTLS pair is configured
func loadClientCertificate(certFile, keyFile string) (*tls.Certificate, error) {
	switch {
	case certFile == "" && keyFile == "":
		return nil, nil
	case certFile == "" || keyFile == "":
		return nil, fmt.Errorf("both client_cert_file and client_key_file must be provided for mTLS")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert/key: %w", err)
	}
	return &cert, nil
}

// loadRootCAs returns nil to use the system pool
func loadRootCAs(caFile string) (*x509.CertPool, error) {
	if caFile == "" {
		return nil, nil
	}

	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read server CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in server CA file %s", caFile)
	}
	return pool, nil
}

// GetConfig returns a copy for the dialer, nil on a nil manager
func (m *ClientManager) GetConfig() *tls.Config {
	if m == nil {
		return nil
	}
	return m.tlsConfig.Clone()
}

// GetStats describes the active TLS settings
func (m *ClientManager) GetStats() map[string]any {
	if m == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled":              true,
		"min_version":          tlsVersionString(m.tlsConfig.MinVersion),
		"max_version":          tlsVersionString(m.tlsConfig.MaxVersion),
		"server_name":          m.tlsConfig.ServerName,
		"mtls":                 len(m.tlsConfig.Certificates) > 0,
		"custom_ca":            m.tlsConfig.RootCAs != nil,
		"insecure_skip_verify": m.config.InsecureSkipVerify,
	}
}
