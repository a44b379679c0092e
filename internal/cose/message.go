package cose

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	gocose "github.com/veraison/go-cose"
)

// Message is a parsed COSE_Sign1 structure from a C2PA signature box.
type Message struct {
	raw   []byte
	msg   *gocose.Sign1Message
	certs []*x509.Certificate
}

// Parse decodes raw COSE_Sign1 bytes. The message must carry tag 18
// (Signature1); an untagged array is rejected.
func Parse(raw []byte) (*Message, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("cose: empty message")
	}
	var msg gocose.Sign1Message
	if err := msg.UnmarshalCBOR(raw); err != nil {
		// Distinguish "well-formed but untagged" for a clearer error.
		var untagged gocose.UntaggedSign1Message
		if err2 := untagged.UnmarshalCBOR(raw); err2 == nil {
			return nil, fmt.Errorf("cose: message is not tagged Signature1")
		}
		return nil, fmt.Errorf("cose: parsing Sign1: %w", err)
	}
	m := &Message{raw: raw, msg: &msg}
	if err := m.parseCertificates(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Message) parseCertificates() error {
	find := func(h gocose.ProtectedHeader) any {
		if v, ok := h[HeaderLabelX5Chain]; ok {
			return v
		}
		return nil
	}
	v := find(m.msg.Headers.Protected)
	if v == nil {
		if u, ok := m.msg.Headers.Unprotected[HeaderLabelX5Chain]; ok {
			v = u
		}
	}
	if v == nil {
		return nil
	}
	var ders [][]byte
	switch chain := v.(type) {
	case []byte:
		ders = [][]byte{chain}
	case [][]byte:
		ders = chain
	case []any:
		for _, e := range chain {
			der, ok := e.([]byte)
			if !ok {
				return fmt.Errorf("cose: x5chain entry is %T, not bytes", e)
			}
			ders = append(ders, der)
		}
	default:
		return fmt.Errorf("cose: x5chain header is %T", v)
	}
	for i, der := range ders {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return fmt.Errorf("cose: parsing x5chain[%d]: %w", i, err)
		}
		m.certs = append(m.certs, cert)
	}
	return nil
}

// Detached reports whether the payload is detached (nil in the message).
func (m *Message) Detached() bool {
	return m.msg.Payload == nil
}

// Certificates returns the x5chain certificates, signing certificate first.
func (m *Message) Certificates() []*x509.Certificate {
	return m.certs
}

// Algorithm returns the signature algorithm from the protected header.
func (m *Message) Algorithm() (gocose.Algorithm, error) {
	return m.msg.Headers.Protected.Algorithm()
}

// Verify checks the signature over the supplied detached payload with the
// given public key.
func (m *Message) Verify(payload []byte, pub crypto.PublicKey) error {
	alg, err := m.Algorithm()
	if err != nil {
		return fmt.Errorf("cose: no algorithm in protected header: %w", err)
	}
	verifier, err := gocose.NewVerifier(alg, pub)
	if err != nil {
		return fmt.Errorf("cose: building verifier: %w", err)
	}
	// Re-attach the detached payload for verification only.
	var msg gocose.Sign1Message
	if err := cbor.Unmarshal(m.raw, &msg); err != nil {
		return fmt.Errorf("cose: re-parsing Sign1: %w", err)
	}
	msg.Payload = payload
	return msg.Verify(nil, verifier)
}

// Sign1Detached signs payload as a detached COSE_Sign1: the payload is the
// COSE payload during signing but is omitted from the serialized message.
// The certificate chain is placed in the protected x5chain header, signing
// certificate first.
func Sign1Detached(payload []byte, signer crypto.Signer, chain []*x509.Certificate) ([]byte, error) {
	if signer == nil {
		return nil, fmt.Errorf("cose: signer is required")
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("cose: certificate chain is required")
	}
	alg, err := AlgorithmFromKey(signer.Public())
	if err != nil {
		return nil, err
	}
	coseSigner, err := gocose.NewSigner(alg, signer)
	if err != nil {
		return nil, fmt.Errorf("cose: building signer: %w", err)
	}
	ders := make([][]byte, len(chain))
	for i, cert := range chain {
		ders[i] = cert.Raw
	}
	msg := gocose.NewSign1Message()
	msg.Headers.Protected[gocose.HeaderLabelAlgorithm] = alg
	msg.Headers.Protected[HeaderLabelX5Chain] = ders
	msg.Payload = payload
	if err := msg.Sign(rand.Reader, nil, coseSigner); err != nil {
		return nil, fmt.Errorf("cose: signing: %w", err)
	}
	msg.Payload = nil
	out, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("cose: serializing Sign1: %w", err)
	}
	return out, nil
}
