package c2pa

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"
)

// testIdentity is a signing identity with its chain and the root that
// anchors it.
type testIdentity struct {
	Key   crypto.Signer
	Chain []*x509.Certificate
	Root  *x509.Certificate
}

var serialCounter int64 = time.Now().UnixNano()

func nextSerial() *big.Int {
	serialCounter++
	return big.NewInt(serialCounter)
}

// newTestIdentity builds root -> intermediate -> leaf with the key usages
// the certificate profile demands. The returned chain is leaf, intermediate.
func newTestIdentity(t *testing.T) *testIdentity {
	t.Helper()
	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating root key: %v", err)
	}
	rootTmpl := &x509.Certificate{
		SerialNumber:          nextSerial(),
		Subject:               pkix.Name{CommonName: "Test Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		SubjectKeyId:          []byte{1, 2, 3, 4},
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	if err != nil {
		t.Fatalf("creating root: %v", err)
	}
	root, err := x509.ParseCertificate(rootDER)
	if err != nil {
		t.Fatalf("parsing root: %v", err)
	}

	interKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating intermediate key: %v", err)
	}
	interTmpl := &x509.Certificate{
		SerialNumber:          nextSerial(),
		Subject:               pkix.Name{CommonName: "Test Intermediate CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		SubjectKeyId:          []byte{5, 6, 7, 8},
	}
	interDER, err := x509.CreateCertificate(rand.Reader, interTmpl, root, &interKey.PublicKey, rootKey)
	if err != nil {
		t.Fatalf("creating intermediate: %v", err)
	}
	inter, err := x509.ParseCertificate(interDER)
	if err != nil {
		t.Fatalf("parsing intermediate: %v", err)
	}

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating leaf key: %v", err)
	}
	leafTmpl := &x509.Certificate{
		SerialNumber: nextSerial(),
		Subject:      pkix.Name{CommonName: "Test Signer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, inter, &leafKey.PublicKey, interKey)
	if err != nil {
		t.Fatalf("creating leaf: %v", err)
	}
	leaf, err := x509.ParseCertificate(leafDER)
	if err != nil {
		t.Fatalf("parsing leaf: %v", err)
	}

	return &testIdentity{
		Key:   leafKey,
		Chain: []*x509.Certificate{leaf, inter},
		Root:  root,
	}
}

// newTestManifest builds a store with one manifest, a claim with the
// required fields and a data-hash hard binding, ready to sign.
func newTestManifest(t *testing.T) (*Store, *Manifest, *DataHashAssertion) {
	t.Helper()
	store := NewStore()
	manifest, err := NewManifest("urn:uuid:00000000-1111-2222-3333-444444444444")
	if err != nil {
		t.Fatalf("NewManifest: %v", err)
	}
	if err := store.AppendManifest(manifest); err != nil {
		t.Fatalf("AppendManifest: %v", err)
	}
	claim := manifest.Claim()
	claim.SetFormat("image/jpeg")
	claim.SetInstanceID("urn:uuid:11111111-2222-3333-4444-555555555555")
	hard, err := NewDataHashAssertion()
	if err != nil {
		t.Fatalf("NewDataHashAssertion: %v", err)
	}
	if err := manifest.AddAssertion(hard); err != nil {
		t.Fatalf("AddAssertion: %v", err)
	}
	return store, manifest, hard
}
