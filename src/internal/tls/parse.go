// FILE: actionwisp/src/internal/tls/parse.go
package tls

import (
	"crypto/tls"
	"fmt"
	"strings"
)

// parseTLSVersion maps "TLS1.2"/"TLS1.3" to crypto/tls constants.
// Versions below 1.2 are not accepted for coordinator connections.
func parseTLSVersion(version string, defaultVersion uint16) uint16 {
	switch strings.ToUpper(strings.TrimSpace(version)) {
	case "TLS1.2", "TLS12":
		return tls.VersionTLS12
	case "TLS1.3", "TLS13":
		return tls.VersionTLS13
	default:
		return defaultVersion
	}
}

// parseCipherSuites resolves a comma-separated list against the suites
// crypto/tls reports as secure; unknown names are skipped.
func parseCipherSuites(suites string) []uint16 {
	known := make(map[string]uint16)
	for _, s := range tls.CipherSuites() {
		known[s.Name] = s.ID
	}

	var result []uint16
	for _, suite := range strings.Split(suites, ",") {
		if id, ok := known[strings.TrimSpace(suite)]; ok {
			result = append(result, id)
		}
	}
	return result
}

func tlsVersionString(version uint16) string {
	switch version {
	case tls.VersionTLS12:
		return "TLS1.2"
	case tls.VersionTLS13:
		return "TLS1.3"
	default:
		return fmt.Sprintf("0x%04x", version)
	}
}
