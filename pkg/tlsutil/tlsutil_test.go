package tlsutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
)

// generateTestCert creates a self-signed certificate for testing
func generateTestCert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Test Org"},
			CommonName:   "bee-client",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)})
	return certPEM, keyPEM
}

// setupTestFiles writes a client cert/key pair into a temp dir
func setupTestFiles(t *testing.T) (certFile, keyFile string) {
	t.Helper()
	dir := t.TempDir()
	certPEM, keyPEM := generateTestCert(t)

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	return certFile, keyFile
}

func TestLoadClientTLSConfig(t *testing.T) {
	certFile, keyFile := setupTestFiles(t)
	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o644))

	tests := []struct {
		name     string
		cfg      ClientConfig
		wantNil  bool
		wantCode errors.Code
		check    func(t *testing.T, got *tls.Config)
	}{
		{
			name:    "defaults leave TLS to the library",
			cfg:     ClientConfig{},
			wantNil: true,
		},
		{
			name: "min version 1.3",
			cfg:  ClientConfig{MinVersion: "1.3"},
			check: func(t *testing.T, got *tls.Config) {
				assert.Equal(t, uint16(tls.VersionTLS13), got.MinVersion)
				assert.NotNil(t, got.RootCAs)
			},
		},
		{
			name: "insecure skip verify",
			cfg:  ClientConfig{InsecureSkipVerify: true},
			check: func(t *testing.T, got *tls.Config) {
				assert.True(t, got.InsecureSkipVerify)
				assert.Equal(t, uint16(tls.VersionTLS12), got.MinVersion)
			},
		},
		{
			name: "client certificate",
			cfg:  ClientConfig{CertFile: certFile, KeyFile: keyFile},
			check: func(t *testing.T, got *tls.Config) {
				assert.Len(t, got.Certificates, 1)
			},
		},
		{
			name:     "cert without key",
			cfg:      ClientConfig{CertFile: certFile},
			wantCode: errors.InvalidParam,
		},
		{
			name:     "unknown version",
			cfg:      ClientConfig{MinVersion: "1.1"},
			wantCode: errors.InvalidParam,
		},
		{
			name:     "missing CA file",
			cfg:      ClientConfig{CAFiles: []string{"/nonexistent/ca.pem"}},
			wantCode: errors.IONotFound,
		},
		{
			name:     "CA file without certificates",
			cfg:      ClientConfig{CAFiles: []string{garbage}},
			wantCode: errors.IOInvalidData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadClientTLSConfig(tt.cfg)
			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.True(t, errors.IsOneOf(err, tt.wantCode), "got %v", err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			tt.check(t, got)
		})
	}
}

func TestLoadClientTLSConfig_TrustsAdditionalCA(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})
	require.NoError(t, os.WriteFile(caFile, caPEM, 0o644))

	tlsConfig, err := LoadClientTLSConfig(ClientConfig{CAFiles: []string{caFile}})
	require.NoError(t, err)

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: tlsConfig}, Timeout: 5 * time.Second}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Without the extra CA the same server is rejected.
	plain, err := LoadClientTLSConfig(ClientConfig{MinVersion: "1.2"})
	require.NoError(t, err)
	client = &http.Client{Transport: &http.Transport{TLSClientConfig: plain}, Timeout: 5 * time.Second}
	_, err = client.Get(server.URL)
	assert.Error(t, err)
}

func TestParseClientConfig(t *testing.T) {
	cfg, err := config.FromString(config.FormatTOML, `
[tls]
ca_files = "/etc/bee/ca.pem"
insecure_skip_verify = true
min_version = "1.3"
`)
	require.NoError(t, err)

	got, err := ParseClientConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, ClientConfig{
		CAFiles:            []string{"/etc/bee/ca.pem"},
		InsecureSkipVerify: true,
		MinVersion:         "1.3",
	}, got)
	assert.True(t, got.Enabled())

	empty, err := ParseClientConfig(config.New(nil))
	require.NoError(t, err)
	assert.False(t, empty.Enabled())

	bad, err := config.FromString(config.FormatTOML, "[tls]\nkey_file = \"k.pem\"\n")
	require.NoError(t, err)
	_, err = ParseClientConfig(bad)
	assert.True(t, errors.IsOneOf(err, errors.InvalidParam))
}
