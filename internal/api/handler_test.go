package api

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/signedmedia/c2pa-go/internal/c2pa"
)

// signedSidecar builds a store signed over an empty asset, which is how a
// bare store upload verifies.
func signedSidecar(t *testing.T) []byte {
	t.Helper()
	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: "API Test CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
		SubjectKeyId:          []byte{7},
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}
	ca, _ := x509.ParseCertificate(caDER)

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano() + 1),
		Subject:      pkix.Name{CommonName: "API Test Signer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, ca, &leafKey.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}
	leaf, _ := x509.ParseCertificate(leafDER)

	store := c2pa.NewStore()
	manifest, err := c2pa.NewManifest("urn:uuid:deadbeef-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.AppendManifest(manifest); err != nil {
		t.Fatal(err)
	}
	claim := manifest.Claim()
	claim.SetFormat("image/jpeg")
	claim.SetInstanceID("urn:uuid:cafebabe-0000-0000-0000-000000000000")
	hard, err := c2pa.NewDataHashAssertion()
	if err != nil {
		t.Fatal(err)
	}
	if err := manifest.AddAssertion(hard); err != nil {
		t.Fatal(err)
	}
	manifest.Signature().SetSigner(leafKey, []*x509.Certificate{leaf, ca})
	manifest.SetInputStream(bytes.NewReader(nil))
	if _, err := manifest.Signature().Sign(); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	raw, err := store.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestU_API_Health(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&Config{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d", resp.StatusCode)
	}
}

func TestU_API_VerifySidecar(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&Config{}))
	defer srv.Close()

	raw := signedSidecar(t)
	resp, err := http.Post(srv.URL+"/api/v1/verify", "application/octet-stream", bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Valid {
		t.Errorf("sidecar did not verify: %+v", body.Statuses)
	}
	if body.Manifest == "" || len(body.Statuses) == 0 {
		t.Errorf("response missing manifest or statuses: %+v", body)
	}
}

func TestU_API_VerifyGarbage(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&Config{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/verify", "application/octet-stream", bytes.NewReader([]byte("nope")))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d, want 400", resp.StatusCode)
	}
}

func TestU_API_Inspect(t *testing.T) {
	srv := httptest.NewServer(NewRouter(&Config{}))
	defer srv.Close()

	raw := signedSidecar(t)
	resp, err := http.Post(srv.URL+"/api/v1/inspect", "application/octet-stream", bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["store"] == nil {
		t.Errorf("inspect response has no store projection")
	}
}
