package keystore

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestU_Load_JKSMagicRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "store.jks", []byte{0xfe, 0xed, 0xfe, 0xed, 0, 0, 0, 2})
	_, err := Load(path, "pw")
	if err == nil || !strings.Contains(err.Error(), "JKS") {
		t.Errorf("expected JKS rejection, got %v", err)
	}

	path = writeFile(t, dir, "store.jceks", []byte{0xce, 0xce, 0xce, 0xce, 0, 0, 0, 2})
	_, err = Load(path, "pw")
	if err == nil || !strings.Contains(err.Error(), "JCEKS") {
		t.Errorf("expected JCEKS rejection, got %v", err)
	}
}

func TestU_Load_GarbageIsNotPKCS12(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "store.p12", []byte("definitely not a keystore"))
	if _, err := Load(path, "pw"); err == nil {
		t.Errorf("expected PKCS#12 parse error")
	}
}

func TestU_LoadPEM_RoundTrip(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "PEM Test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	keyPath := writeFile(t, dir, "signer.key", pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}))
	certPath := writeFile(t, dir, "signer.pem", pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))

	id, err := LoadPEM(keyPath, certPath)
	if err != nil {
		t.Fatalf("LoadPEM: %v", err)
	}
	if len(id.Chain) != 1 {
		t.Fatalf("chain length %d", len(id.Chain))
	}
	got, ok := id.Key.Public().(*ecdsa.PublicKey)
	if !ok || !got.Equal(&key.PublicKey) {
		t.Errorf("loaded key does not match")
	}
}

func TestU_TrimAnchor(t *testing.T) {
	selfSigned := &x509.Certificate{RawSubject: []byte("root"), RawIssuer: []byte("root")}
	leaf := &x509.Certificate{RawSubject: []byte("leaf"), RawIssuer: []byte("root")}

	chain := trimAnchor([]*x509.Certificate{leaf, selfSigned})
	if len(chain) != 1 || chain[0] != leaf {
		t.Errorf("self-signed tail not trimmed")
	}
	chain = trimAnchor([]*x509.Certificate{selfSigned})
	if len(chain) != 1 {
		t.Errorf("single certificate must survive")
	}
	inter := &x509.Certificate{RawSubject: []byte("inter"), RawIssuer: []byte("root")}
	chain = trimAnchor([]*x509.Certificate{leaf, inter})
	if len(chain) != 2 {
		t.Errorf("non-self-signed tail must survive")
	}
}
