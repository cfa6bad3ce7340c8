package tls

import (
	"crypto/x509"
	"path/filepath"
	"testing"
	"time"
)

func TestClientConfig(t *testing.T) {
	t.Parallel()

	cfg, err := ClientConfig("", "", "relay.example.com", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerName != "relay.example.com" {
		t.Errorf("ServerName: got %q", cfg.ServerName)
	}
	if cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify: got true, want false")
	}
	if len(cfg.Certificates) != 0 {
		t.Errorf("Certificates: got %d, want 0", len(cfg.Certificates))
	}
}

func TestClientConfigInsecure(t *testing.T) {
	t.Parallel()

	cfg, err := ClientConfig("", "", "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify: got false, want true")
	}
}

func TestClientConfigMissingKeypair(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := ClientConfig(filepath.Join(dir, "missing.crt"), filepath.Join(dir, "missing.key"), "", false)
	if err == nil {
		t.Error("expected error for missing keypair files")
	}
}

func TestGenerateSelfSignedCert(t *testing.T) {
	t.Parallel()

	cert, err := GenerateSelfSignedCert()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("failed to parse generated certificate: %v", err)
	}

	if parsed.Subject.CommonName != "localhost" {
		t.Errorf("CommonName: got %q, want %q", parsed.Subject.CommonName, "localhost")
	}
	if err := parsed.VerifyHostname("localhost"); err != nil {
		t.Errorf("certificate not valid for localhost: %v", err)
	}
	if err := parsed.VerifyHostname("127.0.0.1"); err != nil {
		t.Errorf("certificate not valid for 127.0.0.1: %v", err)
	}

	now := time.Now()
	if now.Before(parsed.NotBefore) || now.After(parsed.NotAfter) {
		t.Error("certificate not currently valid")
	}
}
