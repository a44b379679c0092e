// Package cose wraps COSE_Sign1 (RFC 9052) creation, parsing and verification
// for C2PA claim signatures: detached payload, tag 18, certificate chain in
// the x5chain header.
package cose

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"

	gocose "github.com/veraison/go-cose"
)

// HeaderLabelX5Chain is the COSE header carrying the X.509 certificate chain
// (RFC 9360).
const HeaderLabelX5Chain = int64(33)

// AlgorithmFromKey picks the COSE signature algorithm for a public key per
// the C2PA certificate profile: ECDSA keyed by curve, Ed25519, RSASSA-PSS
// with SHA-256 for RSA.
func AlgorithmFromKey(pub crypto.PublicKey) (gocose.Algorithm, error) {
	switch k := pub.(type) {
	case *ecdsa.PublicKey:
		switch k.Curve {
		case elliptic.P256():
			return gocose.AlgorithmES256, nil
		case elliptic.P384():
			return gocose.AlgorithmES384, nil
		case elliptic.P521():
			return gocose.AlgorithmES512, nil
		}
		return 0, fmt.Errorf("unsupported ECDSA curve %v", k.Curve.Params().Name)
	case ed25519.PublicKey:
		return gocose.AlgorithmEdDSA, nil
	case *rsa.PublicKey:
		return gocose.AlgorithmPS256, nil
	}
	return 0, fmt.Errorf("unsupported public key type %T", pub)
}
