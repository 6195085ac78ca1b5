// Package tlstest writes a throwaway CA and certificates signed by it, for
// tests that serve or dial TLS. Files live under t.TempDir().
//
//	certs := tlstest.GenerateTLSCerts(t)
//	cfg := security.TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile}
package tlstest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TLSCerts holds a CA and one localhost certificate usable for both server
// and client authentication.
type TLSCerts struct {
	CAFile   string
	CertFile string
	KeyFile  string

	// ServerTLS is CertFile and KeyFile loaded as a key pair.
	ServerTLS tls.Certificate
	// CertPool trusts only the CA.
	CertPool *x509.CertPool

	dir    string
	caCert *x509.Certificate
	caKey  *ecdsa.PrivateKey
	serial int64
}

// GenerateTLSCerts creates a CA and a certificate for localhost, 127.0.0.1
// and ::1.
func GenerateTLSCerts(t testing.TB) *TLSCerts {
	t.Helper()
	c := &TLSCerts{dir: t.TempDir(), serial: 1}

	c.caKey = newKey(t)
	now := time.Now()
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(c.serial),
		Subject:               pkix.Name{Organization: []string{"bucketgate test CA"}},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &c.caKey.PublicKey, c.caKey)
	if err != nil {
		t.Fatalf("tlstest: create CA: %v", err)
	}
	if c.caCert, err = x509.ParseCertificate(der); err != nil {
		t.Fatalf("tlstest: parse CA: %v", err)
	}
	c.CAFile = c.writePEM(t, "ca.pem", "CERTIFICATE", der)
	c.CertPool = x509.NewCertPool()
	c.CertPool.AddCert(c.caCert)

	c.CertFile, c.KeyFile, c.ServerTLS = c.Issue(t, "localhost")
	return c
}

// Issue signs a new certificate for commonName with the CA and writes it
// next to the others. The certificate carries both server and client usage.
func (c *TLSCerts) Issue(t testing.TB, commonName string) (certFile, keyFile string, pair tls.Certificate) {
	t.Helper()
	c.serial++
	key := newKey(t)
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(c.serial),
		Subject:      pkix.Name{Organization: []string{"bucketgate test"}, CommonName: commonName},
		DNSNames:     []string{commonName},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, c.caCert, &key.PublicKey, c.caKey)
	if err != nil {
		t.Fatalf("tlstest: issue %s: %v", commonName, err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("tlstest: marshal key: %v", err)
	}

	name := filepath.Base(commonName)
	certFile = c.writePEM(t, name+".crt", "CERTIFICATE", der)
	keyFile = c.writePEM(t, name+".key", "EC PRIVATE KEY", keyDER)
	if pair, err = tls.LoadX509KeyPair(certFile, keyFile); err != nil {
		t.Fatalf("tlstest: load pair: %v", err)
	}
	return certFile, keyFile, pair
}

// WriteInvalidPEM writes a file that looks like PEM but holds no valid
// certificate.
func WriteInvalidPEM(t testing.TB, filename string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), filename)
	content := []byte("-----BEGIN CERTIFICATE-----\nnot-valid-base64-data\n-----END CERTIFICATE-----\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("tlstest: write invalid PEM: %v", err)
	}
	return path
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("tlstest: generate key: %v", err)
	}
	return key
}

func (c *TLSCerts) writePEM(t testing.TB, name, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(c.dir, name)
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("tlstest: write %s: %v", name, err)
	}
	return path
}
