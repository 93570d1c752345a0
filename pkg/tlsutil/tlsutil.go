// Package tlsutil builds client TLS configurations for outbound connections.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
)

// ClientConfig describes how a client verifies its peer and, for mutual
// TLS, which certificate it presents.
type ClientConfig struct {
	// CAFiles are PEM bundles trusted in addition to the system pool
	CAFiles []string
	// CertFile and KeyFile hold the client certificate; both or neither
	CertFile string
	KeyFile  string
	// InsecureSkipVerify disables peer verification
	InsecureSkipVerify bool
	// MinVersion is "1.2" or "1.3"; empty means 1.2
	MinVersion string
}

// Enabled reports whether any setting departs from the Go defaults.
func (c ClientConfig) Enabled() bool {
	return len(c.CAFiles) > 0 || c.CertFile != "" || c.KeyFile != "" ||
		c.InsecureSkipVerify || c.MinVersion != ""
}

// Validate checks the settings without touching the filesystem.
func (c ClientConfig) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New(errors.InvalidParam, "tls cert_file and key_file must be set together")
	}
	if _, err := parseTLSVersion(c.MinVersion); err != nil {
		return err
	}
	return nil
}

// ParseClientConfig reads the optional tls table of a component:
//
//	tls.ca_files              string or array of PEM paths
//	tls.cert_file             client certificate
//	tls.key_file              client key
//	tls.insecure_skip_verify  bool
//	tls.min_version           "1.2" or "1.3"
func ParseClientConfig(r config.Resolver) (ClientConfig, error) {
	var cfg ClientConfig
	var err error

	if cfg.CAFiles, err = config.GetStrings(r, "tls.ca_files"); err != nil && !errors.IsOneOf(err, errors.InvalidIndex) {
		return cfg, errors.Wrap(err, "tlsutil", "ParseClientConfig", "read tls.ca_files")
	}
	if cfg.CertFile, err = config.GetOr(r, "tls.cert_file", ""); err != nil {
		return cfg, errors.Wrap(err, "tlsutil", "ParseClientConfig", "read tls.cert_file")
	}
	if cfg.KeyFile, err = config.GetOr(r, "tls.key_file", ""); err != nil {
		return cfg, errors.Wrap(err, "tlsutil", "ParseClientConfig", "read tls.key_file")
	}
	if cfg.InsecureSkipVerify, err = config.GetOr(r, "tls.insecure_skip_verify", false); err != nil {
		return cfg, errors.Wrap(err, "tlsutil", "ParseClientConfig", "read tls.insecure_skip_verify")
	}
	if cfg.MinVersion, err = config.GetOr(r, "tls.min_version", ""); err != nil {
		return cfg, errors.Wrap(err, "tlsutil", "ParseClientConfig", "read tls.min_version")
	}
	return cfg, cfg.Validate()
}

// LoadClientTLSConfig creates a tls.Config for HTTP, WebSocket and NATS
// clients. It returns nil, nil when cfg is not Enabled so callers keep the
// library defaults. The system CA pool is always trusted; CAFiles extend it.
func LoadClientTLSConfig(cfg ClientConfig) (*tls.Config, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	minVersion, _ := parseTLSVersion(cfg.MinVersion)

	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		rootCAs = x509.NewCertPool()
	}
	for _, caFile := range cfg.CAFiles {
		caPEM, err := os.ReadFile(caFile)
		if err != nil {
			return nil, errors.Wrap(err, "tlsutil", "LoadClientTLSConfig", fmt.Sprintf("read CA file %s", caFile))
		}
		if !rootCAs.AppendCertsFromPEM(caPEM) {
			return nil, errors.Newf(errors.IOInvalidData, "tlsutil.LoadClientTLSConfig: no PEM certificates in %s", caFile)
		}
	}

	tlsConfig := &tls.Config{
		RootCAs:            rootCAs,
		MinVersion:         minVersion,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // operator opt-in
	}

	if cfg.CertFile != "" {
		clientCert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "tlsutil", "LoadClientTLSConfig", "load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{clientCert}
	}
	return tlsConfig, nil
}

func parseTLSVersion(version string) (uint16, error) {
	switch version {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, errors.Newf(errors.InvalidParam, "unsupported tls min_version %q, want 1.2 or 1.3", version)
	}
}
