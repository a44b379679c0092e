package c2pa

import (
	"bytes"
	"crypto/x509"
	"testing"

	"github.com/signedmedia/c2pa-go/internal/status"
)

var testAsset = []byte("not really a jpeg, but bytes to bind the manifest to")

func signTestManifest(t *testing.T, store *Store, manifest *Manifest, id *testIdentity) []status.Status {
	t.Helper()
	manifest.Signature().SetSigner(id.Key, id.Chain)
	manifest.SetInputStream(bytes.NewReader(testAsset))
	statuses, err := manifest.Signature().Sign()
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	return statuses
}

func TestU_Sign_Minimal(t *testing.T) {
	id := newTestIdentity(t)
	store, manifest, _ := newTestManifest(t)
	statuses := signTestManifest(t, store, manifest, id)

	if len(statuses) == 0 {
		t.Fatalf("no statuses returned")
	}
	if statuses[0].Code != status.ClaimSignatureValidated {
		t.Errorf("first status %v, want claimSignature.validated", statuses[0].Code)
	}
	if !status.AllOK(statuses) {
		for _, st := range statuses {
			t.Logf("%s", st)
		}
		t.Errorf("signing produced error statuses")
	}

	claim := manifest.Claim()
	if claim.Generator() == "" {
		t.Errorf("claim_generator not defaulted")
	}
	if claim.Alg() != "sha256" {
		t.Errorf("alg %q, want sha256 default", claim.Alg())
	}
	if claim.SignatureURL() == "" || manifest.Find(claim.SignatureURL()) == nil {
		t.Errorf("claim signature URL %q does not resolve", claim.SignatureURL())
	}
}

func TestU_Sign_RequiresSigner(t *testing.T) {
	_, manifest, _ := newTestManifest(t)
	if _, err := manifest.Signature().Sign(); err == nil {
		t.Errorf("expected error without signer")
	}
}

func TestU_Sign_RequiresFormatAndInstanceID(t *testing.T) {
	id := newTestIdentity(t)
	store := NewStore()
	manifest, err := NewManifest("urn:uuid:1")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.AppendManifest(manifest); err != nil {
		t.Fatal(err)
	}
	manifest.Signature().SetSigner(id.Key, id.Chain)
	if _, err := manifest.Signature().Sign(); err == nil {
		t.Errorf("expected error without dc:format")
	}
	manifest.Claim().SetFormat("image/jpeg")
	if _, err := manifest.Signature().Sign(); err == nil {
		t.Errorf("expected error without instanceID")
	}
}

func TestU_Sign_MultipleHardBindings(t *testing.T) {
	id := newTestIdentity(t)
	store, manifest, _ := newTestManifest(t)
	second, err := NewDataHashAssertion()
	if err != nil {
		t.Fatal(err)
	}
	if err := manifest.AddAssertion(second); err != nil {
		t.Fatal(err)
	}
	manifest.Signature().SetSigner(id.Key, id.Chain)
	manifest.SetInputStream(bytes.NewReader(testAsset))
	statuses, err := manifest.Signature().Sign()
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	found := false
	for _, st := range statuses {
		if st.Code == status.AssertionMultipleHardBindings {
			found = true
		}
	}
	if !found {
		t.Errorf("expected assertion.multipleHardBindings, got %v", statuses)
	}
	_ = store
}

func TestU_Sign_MissingHardBinding(t *testing.T) {
	id := newTestIdentity(t)
	store := NewStore()
	manifest, err := NewManifest("urn:uuid:nohard")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.AppendManifest(manifest); err != nil {
		t.Fatal(err)
	}
	claim := manifest.Claim()
	claim.SetFormat("image/jpeg")
	claim.SetInstanceID("urn:uuid:2")
	schema, err := NewSchemaAssertion("stds.schema-org.CreativeWork", []byte(`{"@type":"CreativeWork"}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := manifest.AddAssertion(schema); err != nil {
		t.Fatal(err)
	}
	manifest.Signature().SetSigner(id.Key, id.Chain)
	statuses, err := manifest.Signature().Sign()
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if len(statuses) == 0 || statuses[len(statuses)-1].Code != status.ClaimHardBindingsMissing {
		t.Errorf("expected claim.hardBindings.missing, got %v", statuses)
	}
}

func TestU_SignVerify_RoundTrip(t *testing.T) {
	id := newTestIdentity(t)
	store, manifest, _ := newTestManifest(t)
	signTestManifest(t, store, manifest, id)

	encoded, err := store.Encode()
	if err != nil {
		t.Fatalf("encoding store: %v", err)
	}
	parsed, err := ParseStore(encoded)
	if err != nil {
		t.Fatalf("parsing store: %v", err)
	}
	re, err := parsed.Encode()
	if err != nil {
		t.Fatalf("re-encoding store: %v", err)
	}
	if !bytes.Equal(encoded, re) {
		t.Errorf("store round trip is not byte-exact")
	}

	active := parsed.ActiveManifest()
	if active == nil {
		t.Fatalf("no active manifest after parse")
	}
	active.SetInputStream(bytes.NewReader(testAsset))
	statuses, err := active.Signature().Verify(nil)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if statuses[0].Code != status.ClaimSignatureValidated {
		for _, st := range statuses {
			t.Logf("%s", st)
		}
		t.Fatalf("verification did not validate")
	}
	if !status.AllOK(statuses) {
		for _, st := range statuses {
			t.Logf("%s", st)
		}
		t.Errorf("verification produced error statuses")
	}
}

func TestU_Verify_TamperedAsset(t *testing.T) {
	id := newTestIdentity(t)
	store, manifest, _ := newTestManifest(t)
	signTestManifest(t, store, manifest, id)

	encoded, err := store.Encode()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseStore(encoded)
	if err != nil {
		t.Fatal(err)
	}
	tampered := append([]byte(nil), testAsset...)
	tampered[3] ^= 0x40
	active := parsed.ActiveManifest()
	active.SetInputStream(bytes.NewReader(tampered))
	statuses, err := active.Signature().Verify(nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, st := range statuses {
		if st.Code == status.AssertionDataHashMismatch {
			found = true
		}
	}
	if !found {
		t.Errorf("expected assertion.dataHash.mismatch, got %v", statuses)
	}
}

func TestU_Verify_TamperedAssertion(t *testing.T) {
	id := newTestIdentity(t)
	store, manifest, _ := newTestManifest(t)
	schema, err := NewSchemaAssertion("stds.schema-org.CreativeWork", []byte(`{"name":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := manifest.AddAssertion(schema); err != nil {
		t.Fatal(err)
	}
	signTestManifest(t, store, manifest, id)

	encoded, err := store.Encode()
	if err != nil {
		t.Fatal(err)
	}
	// Flip a byte inside the schema assertion's JSON payload.
	idx := bytes.Index(encoded, []byte(`"name"`))
	if idx < 0 {
		t.Fatalf("schema payload not found in encoding")
	}
	encoded[idx+1] ^= 0x01

	parsed, err := ParseStore(encoded)
	if err != nil {
		t.Fatal(err)
	}
	active := parsed.ActiveManifest()
	active.SetInputStream(bytes.NewReader(testAsset))
	statuses, err := active.Signature().Verify(nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, st := range statuses {
		if st.Code == status.AssertionHashedURIMismatch {
			found = true
		}
	}
	if !found {
		t.Errorf("expected assertion.hashedURI.mismatch, got %v", statuses)
	}
}

func TestU_Verify_Trust(t *testing.T) {
	id := newTestIdentity(t)
	store, manifest, _ := newTestManifest(t)
	signTestManifest(t, store, manifest, id)

	encoded, _ := store.Encode()
	parsed, err := ParseStore(encoded)
	if err != nil {
		t.Fatal(err)
	}
	active := parsed.ActiveManifest()
	active.SetInputStream(bytes.NewReader(testAsset))
	statuses, err := active.Signature().Verify([]*x509.Certificate{id.Root})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, st := range statuses {
		if st.Code == status.SigningCredentialTrusted {
			found = true
		}
	}
	if !found {
		t.Errorf("expected signingCredential.trusted, got %v", statuses)
	}

	other := newTestIdentity(t)
	parsed2, _ := ParseStore(encoded)
	active2 := parsed2.ActiveManifest()
	active2.SetInputStream(bytes.NewReader(testAsset))
	statuses, err = active2.Signature().Verify([]*x509.Certificate{other.Root})
	if err != nil {
		t.Fatal(err)
	}
	found = false
	for _, st := range statuses {
		if st.Code == status.SigningCredentialUntrusted {
			found = true
		}
	}
	if !found {
		t.Errorf("expected signingCredential.untrusted, got %v", statuses)
	}
}

func TestU_AlgInheritance_SHA384(t *testing.T) {
	id := newTestIdentity(t)
	store, manifest, _ := newTestManifest(t)
	if err := manifest.Claim().SetAlg("sha384"); err != nil {
		t.Fatal(err)
	}
	signTestManifest(t, store, manifest, id)

	entries := manifest.Claim().assertionEntries(false)
	if len(entries) == 0 {
		t.Fatalf("no claim assertion entries")
	}
	for _, e := range entries {
		entry := e.(map[string]any)
		hash := mapBytes(entry, "hash")
		if len(hash) != 48 {
			t.Errorf("digest length %d, want 48 for inherited sha384", len(hash))
		}
	}
}
