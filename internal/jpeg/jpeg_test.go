package jpeg

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/signedmedia/c2pa-go/internal/c2pa"
	"github.com/signedmedia/c2pa-go/internal/status"
)

// newChain builds a self-signed CA and a leaf satisfying the certificate
// profile; the chain is leaf, ca.
func newChain(t *testing.T) (crypto.Signer, []*x509.Certificate) {
	t.Helper()
	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: "Embed Test CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
		SubjectKeyId:          []byte{9, 9, 9},
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}
	ca, err := x509.ParseCertificate(caDER)
	if err != nil {
		t.Fatal(err)
	}
	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano() + 1),
		Subject:      pkix.Name{CommonName: "Embed Test Signer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, ca, &leafKey.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}
	leaf, err := x509.ParseCertificate(leafDER)
	if err != nil {
		t.Fatal(err)
	}
	return leafKey, []*x509.Certificate{leaf, ca}
}

// testJPEG is a synthetic JPEG: SOI, APP0, SOS, entropy data, EOI. The walker
// only cares about segment structure, not decodability.
func testJPEG() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xd8})
	app0 := []byte("JFIF\x00\x01\x02\x00\x00\x01\x00\x01\x00\x00")
	buf.Write([]byte{0xff, 0xe0, 0x00, byte(len(app0) + 2)})
	buf.Write(app0)
	buf.Write([]byte{0xff, 0xda, 0x00, 0x08})
	buf.Write([]byte{1, 1, 0, 63, 0, 17})
	buf.Write(bytes.Repeat([]byte{0x55, 0xaa}, 64))
	buf.Write([]byte{0xff, 0xd9})
	return buf.Bytes()
}

func newSignedStore(t *testing.T) (*c2pa.Store, crypto.Signer, []*x509.Certificate) {
	t.Helper()
	key, chain := newChain(t)
	store := c2pa.NewStore()
	manifest, err := c2pa.NewManifest("urn:uuid:aaaabbbb-0000-1111-2222-333344445555")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.AppendManifest(manifest); err != nil {
		t.Fatal(err)
	}
	claim := manifest.Claim()
	claim.SetFormat("image/jpeg")
	claim.SetInstanceID("urn:uuid:11112222-3333-4444-5555-666677778888")
	hard, err := c2pa.NewDataHashAssertion()
	if err != nil {
		t.Fatal(err)
	}
	if err := manifest.AddAssertion(hard); err != nil {
		t.Fatal(err)
	}
	manifest.Signature().SetSigner(key, chain)
	return store, key, chain
}

func TestU_Read_PlainJPEG(t *testing.T) {
	img, err := Read(bytes.NewReader(testJPEG()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if img.C2PA != nil {
		t.Errorf("unexpected C2PA payload")
	}
	if !bytes.Equal(img.Data, testJPEG()) {
		t.Errorf("image data altered on read")
	}
	// Insert offset lands after SOI and APP0.
	if img.InsertOffset != 2+2+2+14 {
		t.Errorf("insert offset %d", img.InsertOffset)
	}
}

func TestI_SignEmbedVerify(t *testing.T) {
	store, _, _ := newSignedStore(t)
	img, err := Read(bytes.NewReader(testJPEG()))
	if err != nil {
		t.Fatal(err)
	}
	img.XMP = []byte{} // synthesize the default packet

	var out bytes.Buffer
	statuses, err := Write(img, store, &out)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !status.AllOK(statuses) {
		for _, st := range statuses {
			t.Logf("%s", st)
		}
		t.Fatalf("embedding produced error statuses")
	}

	signed := out.Bytes()
	back, err := Read(bytes.NewReader(signed))
	if err != nil {
		t.Fatalf("re-reading signed JPEG: %v", err)
	}
	if back.C2PA == nil {
		t.Fatalf("signed JPEG carries no store")
	}
	if !bytes.Equal(back.C2PA, img.C2PA) {
		t.Errorf("extracted store differs from embedded store")
	}
	if back.XMP == nil {
		t.Errorf("signed JPEG carries no XMP")
	}

	parsed, err := c2pa.ParseStore(back.C2PA)
	if err != nil {
		t.Fatalf("parsing extracted store: %v", err)
	}
	active := parsed.ActiveManifest()
	if active == nil {
		t.Fatalf("no active manifest")
	}
	active.SetInputStream(bytes.NewReader(signed))
	verify, err := active.Signature().Verify(nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !status.AllOK(verify) {
		for _, st := range verify {
			t.Logf("%s", st)
		}
		t.Errorf("signed JPEG failed to verify")
	}
	if verify[0].Code != status.ClaimSignatureValidated {
		t.Errorf("first status %v", verify[0].Code)
	}
}

func TestI_ExclusionArithmetic(t *testing.T) {
	store, _, _ := newSignedStore(t)
	img, err := Read(bytes.NewReader(testJPEG()))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if _, err := Write(img, store, &out); err != nil {
		t.Fatal(err)
	}
	signed := out.Bytes()

	verifyWith := func(data []byte) []status.Status {
		back, err := Read(bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		if back.C2PA == nil {
			t.Fatal("no store")
		}
		parsed, err := c2pa.ParseStore(back.C2PA)
		if err != nil {
			t.Fatal(err)
		}
		active := parsed.ActiveManifest()
		active.SetInputStream(bytes.NewReader(data))
		statuses, err := active.Signature().Verify(nil)
		if err != nil {
			t.Fatal(err)
		}
		return statuses
	}

	hasDataHashMismatch := func(list []status.Status) bool {
		for _, st := range list {
			if st.Code == status.AssertionDataHashMismatch {
				return true
			}
		}
		return false
	}

	if hasDataHashMismatch(verifyWith(signed)) {
		t.Fatalf("pristine file reports data hash mismatch")
	}

	// A byte flipped inside the excluded segment range must not trip the
	// data hash. The tail of the range is the COSE signature byte string,
	// which keeps the store parseable; the claim signature check catches it
	// instead.
	// The single segment occupies [offset, offset+len(store)+12); its last
	// bytes are the signature byte string.
	inside := append([]byte(nil), signed...)
	inside[img.InsertOffset+len(img.C2PA)+4] ^= 0x01
	insideStatuses := verifyWith(inside)
	if hasDataHashMismatch(insideStatuses) {
		t.Errorf("byte inside the exclusion tripped the data hash")
	}
	if status.AllOK(insideStatuses) {
		t.Errorf("tampered signature went unnoticed")
	}

	// A byte flipped after the excluded range (in the entropy data) must
	// trip the data hash.
	outside := append([]byte(nil), signed...)
	outside[len(outside)-3] ^= 0x80
	if !hasDataHashMismatch(verifyWith(outside)) {
		t.Errorf("tampered asset did not report data hash mismatch")
	}
}

func TestI_SecondPassSizeIsStable(t *testing.T) {
	// Both signing passes must produce identical store sizes; Write fails
	// loudly otherwise, so a clean run is the assertion.
	store, _, _ := newSignedStore(t)
	img, err := Read(bytes.NewReader(testJPEG()))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if _, err := Write(img, store, &out); err != nil {
		t.Fatalf("two-pass signing: %v", err)
	}
	if len(img.C2PA) == 0 {
		t.Fatalf("no store bytes recorded")
	}
}
