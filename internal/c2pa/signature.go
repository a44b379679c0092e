package c2pa

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/signedmedia/c2pa-go/internal/certprofile"
	"github.com/signedmedia/c2pa-go/internal/cose"
	"github.com/signedmedia/c2pa-go/internal/jumbf"
	"github.com/signedmedia/c2pa-go/internal/status"
)

// DefaultClaimGenerator is written into claims signed without an explicit
// generator.
const DefaultClaimGenerator = "c2pa-go"

// Signature is the "jumb"/"c2cs" box holding the COSE_Sign1 structure over
// the claim. The claim bytes are the detached COSE payload; certificates ride
// in the x5chain header.
type Signature struct {
	jumbf.CBORContainerBox

	signer    crypto.Signer
	chain     []*x509.Certificate
	timestamp time.Time
}

func newSignature() (*Signature, error) {
	s := &Signature{}
	if err := jumbf.InitCBORContainer(s, "c2cs", "c2pa.signature", nil); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Signature) manifest() *Manifest {
	m, _ := s.Parent().(*Manifest)
	return m
}

// SetSigner installs the signing identity for a later Sign call. The values
// are not serialized; only Sign consumes them. The chain is ordered signing
// certificate first and should not include the trust anchor.
func (s *Signature) SetSigner(key crypto.Signer, chain []*x509.Certificate) {
	s.signer = key
	s.chain = chain
}

// HasSigner reports whether a signing identity is installed.
func (s *Signature) HasSigner() bool {
	return s.signer != nil && len(s.chain) > 0
}

// SetTimestamp records the time the signature is known to have been applied.
// When unset, certificate validity is checked against the current clock.
func (s *Signature) SetTimestamp(t time.Time) {
	s.timestamp = t
}

// Raw returns the encoded COSE_Sign1 bytes, or nil if unsigned.
func (s *Signature) Raw() []byte {
	if box := s.CBOR(); box != nil {
		return box.Raw()
	}
	return nil
}

// Message parses the stored COSE_Sign1 structure.
func (s *Signature) Message() (*cose.Message, error) {
	raw := s.Raw()
	if raw == nil {
		return nil, fmt.Errorf("c2pa: signature box holds no COSE message")
	}
	return cose.Parse(raw)
}

// Sign finalizes and signs the claim:
//
//  1. A signer and non-empty chain must be installed; the claim must carry
//     dc:format and instanceID. These are programming faults, not statuses.
//  2. An empty claim assertion list is filled from the manifest's.
//  3. The claim must reference no unknown assertions and exactly one hard
//     binding, whose digest over the asset stream is computed.
//  4. Hashed-URI digests are computed for every referenced assertion, the
//     claim defaults are filled in, and the canonical claim CBOR becomes the
//     detached COSE payload.
//
// When the claim is signed, the returned statuses start with
// claimSignature.validated and include the certificate-profile findings. A
// refusal in step 3 returns only its own status, without profile findings.
func (s *Signature) Sign() ([]status.Status, error) {
	var statuses []status.Status
	manifest := s.manifest()
	if manifest == nil {
		return nil, fmt.Errorf("c2pa: signature is not in a manifest")
	}
	claim := manifest.Claim()
	if !s.HasSigner() {
		return nil, fmt.Errorf("c2pa: signer not set")
	}
	if claim.Format() == "" {
		return nil, fmt.Errorf("c2pa: claim has no format")
	}
	if claim.InstanceID() == "" {
		return nil, fmt.Errorf("c2pa: claim has no instanceID")
	}

	claimAssertions := claim.Assertions()
	if len(claimAssertions) == 0 {
		for _, a := range manifest.Assertions() {
			if err := claim.AddAssertion(a); err != nil {
				return nil, err
			}
		}
		claimAssertions = claim.Assertions()
	}

	var hardData *DataHashAssertion
	var hardBMFF *BMFFHashAssertion
	for _, a := range claimAssertions {
		switch t := a.(type) {
		case *UnknownAssertion:
			statuses = append(statuses, status.New(status.AssertionMissing,
				fmt.Sprintf("assertion %q not found", t.URL()), manifest.PathOf(manifest)))
			return statuses, nil
		case *DataHashAssertion:
			if hardData != nil || hardBMFF != nil {
				statuses = append(statuses, status.New(status.AssertionMultipleHardBindings,
					"manifest has multiple hard-binding", manifest.PathOf(manifest)))
				return statuses, nil
			}
			hardData = t
		case *BMFFHashAssertion:
			if hardData != nil || hardBMFF != nil {
				statuses = append(statuses, status.New(status.AssertionMultipleHardBindings,
					"manifest has multiple hard-binding", manifest.PathOf(manifest)))
				return statuses, nil
			}
			hardBMFF = t
		}
	}

	claim.ClearAssertionHashes()
	switch {
	case hardData != nil:
		st, err := hardData.SignAsset()
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st...)
	case hardBMFF != nil:
		st, err := hardBMFF.SignAsset()
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st...)
	default:
		statuses = append(statuses, status.New(status.ClaimHardBindingsMissing,
			"manifest has no hard-binding", manifest.PathOf(manifest)))
		return statuses, nil
	}

	if claim.Generator() == "" {
		claim.SetGenerator(DefaultClaimGenerator, nil)
	}
	claim.cborMap()["signature"] = manifest.PathOf(s)
	claim.dirty()

	payload, err := s.generatePayload(true, &statuses)
	if err != nil {
		return nil, err
	}
	now := s.timestamp
	if now.IsZero() {
		now = time.Now()
	}
	statuses = append(statuses, certprofile.Check(s.chain, certprofile.PurposeSigning, now)...)

	raw, err := cose.Sign1Detached(payload, s.signer, s.chain)
	if err != nil {
		return nil, err
	}
	s.CBOR().SetRaw(raw)

	out := make([]status.Status, 0, len(statuses)+1)
	out = append(out, status.New(status.ClaimSignatureValidated, "signing succeeded", manifest.PathOf(manifest)))
	out = append(out, statuses...)
	return out, nil
}

// generatePayload recomputes the hashed-URI digests for the claim's
// assertion list and returns the claim bytes used as the COSE payload. During
// verification an untouched claim re-emits its original wire bytes, so the
// payload matches what was signed even for foreign encoders.
func (s *Signature) generatePayload(signing bool, statuses *[]status.Status) ([]byte, error) {
	manifest := s.manifest()
	claim := manifest.Claim()
	for _, e := range claim.assertionEntries(false) {
		entry, ok := e.(map[string]any)
		if !ok {
			*statuses = append(*statuses, status.New(status.ClaimCBORInvalid, "assertion entry is not a map", manifest.PathOf(claim)))
			continue
		}
		*statuses = append(*statuses, digestHashedURI(entry, manifest, "", false, signing))
	}
	box := claim.CBOR()
	if signing {
		claim.dirty()
	} else if raw := box.Raw(); raw != nil {
		return raw, nil
	}
	return jumbf.CBORMarshal(claim.cborMap())
}

// Verify checks the cryptographic validity of the manifest: structural COSE
// requirements, claim/signature linkage, every claim assertion, the
// certificate profile (and trust anchors when supplied), and finally the
// COSE_Sign1 signature over the regenerated payload. The first status is
// claimSignature.validated or claimSignature.mismatch.
func (s *Signature) Verify(anchors []*x509.Certificate) ([]status.Status, error) {
	var statuses []status.Status
	manifest := s.manifest()
	if manifest == nil {
		return nil, fmt.Errorf("c2pa: signature is not in a manifest")
	}
	claim := manifest.Claim()

	msg, err := s.Message()
	if err != nil {
		return nil, err
	}
	if !msg.Detached() {
		return nil, fmt.Errorf("c2pa: signature payload is not detached")
	}

	claims := 0
	for b := manifest.First(); b != nil; b = b.Next() {
		if _, ok := b.(*Claim); ok {
			claims++
		}
	}
	if claims > 1 {
		statuses = append(statuses, status.New(status.ClaimMultiple, "too many claim boxes", manifest.PathOf(claim)))
		return statuses, nil
	}

	sigURL := claim.SignatureURL()
	if sigURL == "" || manifest.Find(sigURL) != jumbf.Box(s) {
		statuses = append(statuses, status.New(status.ClaimSignatureMissing, "signature not in claim", sigURL))
		return statuses, nil
	}

	certs := msg.Certificates()
	if len(certs) == 0 {
		return nil, fmt.Errorf("c2pa: no certificates included in the signature")
	}
	key := certs[0].PublicKey

	for _, a := range claim.Assertions() {
		st, err := a.VerifyAssertion()
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st...)
	}

	ts := s.timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	statuses = append(statuses, certprofile.Check(certs, certprofile.PurposeSigning, ts)...)
	statuses = append(statuses, certprofile.CheckTrust(certs, anchors, certprofile.PurposeSigning, ts)...)

	payload, err := s.generatePayload(false, &statuses)
	if err != nil {
		return nil, err
	}

	verdict := status.New(status.ClaimSignatureValidated, "", manifest.PathOf(s))
	if err := msg.Verify(payload, key); err != nil {
		verdict = status.New(status.ClaimSignatureMismatch, err.Error(), manifest.PathOf(s))
	}
	out := make([]status.Status, 0, len(statuses)+1)
	out = append(out, verdict)
	out = append(out, statuses...)
	return out, nil
}
