package certprofile

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"time"

	"github.com/signedmedia/c2pa-go/internal/status"
)

// Purpose is the role a certificate chain plays in a manifest.
type Purpose string

const (
	PurposeSigning   Purpose = "signing"
	PurposeCA        Purpose = "ca"
	PurposeTimestamp Purpose = "timestamp"
	PurposeOCSP      Purpose = "ocsp"
)

// allowed signature algorithms: ECDSA with SHA-2, RSA with SHA-2,
// RSASSA-PSS, Ed25519. The Go parser already rejects RSASSA-PSS parameter
// sets whose MGF1 hash differs from the digest hash, so a parsed PSS
// certificate satisfies the parameter rules.
var allowedSigAlgs = map[x509.SignatureAlgorithm]bool{
	x509.ECDSAWithSHA256:  true,
	x509.ECDSAWithSHA384:  true,
	x509.ECDSAWithSHA512:  true,
	x509.SHA256WithRSA:    true,
	x509.SHA384WithRSA:    true,
	x509.SHA512WithRSA:    true,
	x509.SHA256WithRSAPSS: true,
	x509.SHA384WithRSAPSS: true,
	x509.SHA512WithRSAPSS: true,
	x509.PureEd25519:      true,
}

func chainURL(ix int) string {
	return fmt.Sprintf("Cose_Sign1.x5chain[%d]", ix)
}

// Check validates a certificate chain against the profile. The first
// certificate is checked with the given purpose, the rest as CAs. A zero
// timestamp means the validity window is not checked (the caller passes the
// signing time, or the current clock when none is recorded).
func Check(certs []*x509.Certificate, purpose Purpose, timestamp time.Time) []status.Status {
	var statuses []status.Status
	if purpose != PurposeTimestamp && purpose != PurposeOCSP {
		purpose = PurposeSigning
	}
	origPurpose := purpose

	for ix, cert := range certs {
		url := chainURL(ix)

		if !timestamp.IsZero() {
			if timestamp.Before(cert.NotBefore) || timestamp.After(cert.NotAfter) {
				if origPurpose == PurposeTimestamp {
					statuses = append(statuses, status.New(status.TimeStampOutsideValidity, "", url))
				} else {
					statuses = append(statuses, status.New(status.SigningCredentialExpired, "", url))
				}
			}
		}

		for _, problem := range checkOne(cert, purpose, ix) {
			statuses = append(statuses, status.New(status.SigningCredentialInvalid, problem, url))
		}
		purpose = PurposeCA
	}
	return statuses
}

// checkOne returns the profile violations for one certificate.
func checkOne(cert *x509.Certificate, purpose Purpose, ix int) []string {
	var problems []string

	if !allowedSigAlgs[cert.SignatureAlgorithm] {
		problems = append(problems, fmt.Sprintf("algorithm %v", cert.SignatureAlgorithm))
	}

	switch pub := cert.PublicKey.(type) {
	case *ecdsa.PublicKey:
		switch pub.Curve {
		case elliptic.P256(), elliptic.P384(), elliptic.P521():
		default:
			problems = append(problems, "public-key EC curve")
		}
	case *rsa.PublicKey:
		if bits := pub.N.BitLen(); bits < 2048 {
			problems = append(problems, fmt.Sprintf("public-key RSA bits=%d", bits))
		}
	}

	// X.509 v3 with no unique IDs (RFC 5280 4.1.2.1, 4.1.2.8).
	if cert.Version != 3 {
		problems = append(problems, fmt.Sprintf("version %d", cert.Version))
	}
	if hasUniqueIDs(cert) {
		problems = append(problems, "has issuerUniqueID or subjectUniqueID")
	}

	// Basic Constraints (RFC 5280 4.2.1.9): CA asserted for issuing
	// certificates, not asserted otherwise.
	isCA := cert.BasicConstraintsValid && cert.IsCA
	if purpose == PurposeCA && !isCA {
		problems = append(problems, "no basic constraints")
	} else if purpose != PurposeCA && isCA {
		problems = append(problems, "basic constraints set")
	}

	// Authority Key Identifier must be present unless self-signed; the
	// signing leaf must never be self-signed, so its AKI is mandatory
	// (RFC 5280 4.2.1.1).
	if len(cert.AuthorityKeyId) == 0 {
		if ix == 0 {
			problems = append(problems, fmt.Sprintf("Authority Key Identifier (2.5.29.35) missing on %s certificate, which can't be self-signed", purpose))
		} else if !bytes.Equal(cert.RawSubject, cert.RawIssuer) {
			problems = append(problems, "Authority Key Identifier (2.5.29.35) missing and not self-signed")
		}
	}

	// Key Usage present and critical; leaves assert digitalSignature;
	// keyCertSign only with CA (RFC 5280 4.2.1.3).
	if !hasCriticalExtension(cert, OIDExtKeyUsage) {
		problems = append(problems, "keyUsage not marked as critical")
	} else {
		if purpose == PurposeSigning && cert.KeyUsage&x509.KeyUsageDigitalSignature == 0 {
			problems = append(problems, "keyUsage missing digitalSignature")
		}
		if cert.KeyUsage&x509.KeyUsageCertSign != 0 && !isCA {
			problems = append(problems, "keyUsage contains keyCertSign")
		}
	}

	// Extended Key Usage rules apply to end-entity certificates.
	if !isCA {
		problems = append(problems, checkEKU(cert, purpose)...)
	}
	return problems
}

func checkEKU(cert *x509.Certificate, purpose Purpose) []string {
	var problems []string
	total := len(cert.ExtKeyUsage) + len(cert.UnknownExtKeyUsage)
	if !hasExtension(cert, OIDExtExtKeyUsage) || total == 0 {
		return append(problems, "extendedKeyUsage not present")
	}
	if hasEKU(cert, x509.ExtKeyUsageAny, OIDAnyExtendedKeyUsage) {
		problems = append(problems, "extendedKeyUsage contains 2.5.29.37.0")
	}
	switch purpose {
	case PurposeSigning:
		if !hasEKU(cert, x509.ExtKeyUsageEmailProtection, OIDExtKeyUsageEmailProtection) {
			problems = append(problems, "extendedKeyUsage missing 1.3.6.1.5.5.7.3.4")
		}
	case PurposeTimestamp:
		if !hasEKU(cert, x509.ExtKeyUsageTimeStamping, OIDExtKeyUsageTimeStamping) {
			problems = append(problems, "extendedKeyUsage missing 1.3.6.1.5.5.7.3.8")
		} else if total > 1 {
			problems = append(problems, "extendedKeyUsage contains not only 1.3.6.1.5.5.7.3.8")
		}
	case PurposeOCSP:
		if !hasEKU(cert, x509.ExtKeyUsageOCSPSigning, OIDExtKeyUsageOCSPSigning) {
			problems = append(problems, "extendedKeyUsage missing 1.3.6.1.5.5.7.3.9")
		} else if total > 1 {
			problems = append(problems, "extendedKeyUsage contains not only 1.3.6.1.5.5.7.3.9")
		}
	}
	return problems
}

func hasEKU(cert *x509.Certificate, eku x509.ExtKeyUsage, oid asn1.ObjectIdentifier) bool {
	for _, u := range cert.ExtKeyUsage {
		if u == eku {
			return true
		}
	}
	for _, u := range cert.UnknownExtKeyUsage {
		if u.Equal(oid) {
			return true
		}
	}
	return false
}

func hasExtension(cert *x509.Certificate, oid asn1.ObjectIdentifier) bool {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(oid) {
			return true
		}
	}
	return false
}

func hasCriticalExtension(cert *x509.Certificate, oid asn1.ObjectIdentifier) bool {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(oid) {
			return ext.Critical
		}
	}
	return false
}

// tbsShape mirrors enough of TBSCertificate to detect the optional unique-ID
// fields, which the standard library parser skips silently.
type tbsShape struct {
	Raw                asn1.RawContent
	Version            int `asn1:"optional,explicit,default:0,tag:0"`
	SerialNumber       asn1.RawValue
	SignatureAlgorithm asn1.RawValue
	Issuer             asn1.RawValue
	Validity           asn1.RawValue
	Subject            asn1.RawValue
	PublicKey          asn1.RawValue
	IssuerUniqueID     asn1.BitString `asn1:"optional,tag:1"`
	SubjectUniqueID    asn1.BitString `asn1:"optional,tag:2"`
	Extensions         asn1.RawValue  `asn1:"optional,explicit,tag:3"`
}

type certShape struct {
	TBS            tbsShape
	SigAlg         asn1.RawValue
	SignatureValue asn1.BitString
}

func hasUniqueIDs(cert *x509.Certificate) bool {
	var shape certShape
	if _, err := asn1.Unmarshal(cert.Raw, &shape); err != nil {
		return false
	}
	return shape.TBS.IssuerUniqueID.BitLength > 0 || shape.TBS.SubjectUniqueID.BitLength > 0
}

// CheckTrust verifies that the tail of the chain is issued by one of the
// trust anchors. A nil anchor list skips the check entirely.
func CheckTrust(certs []*x509.Certificate, anchors []*x509.Certificate, purpose Purpose, timestamp time.Time) []status.Status {
	if anchors == nil || len(certs) == 0 {
		return nil
	}
	ix := len(certs) - 1
	url := chainURL(ix)
	target := certs[ix]
	timestampPurpose := purpose == PurposeTimestamp

	for _, anchor := range anchors {
		if !bytes.Equal(target.RawIssuer, anchor.RawSubject) {
			continue
		}
		if err := anchor.CheckSignature(target.SignatureAlgorithm, target.RawTBSCertificate, target.Signature); err != nil {
			continue
		}
		if !timestamp.IsZero() && (timestamp.Before(anchor.NotBefore) || timestamp.After(anchor.NotAfter)) {
			if timestampPurpose {
				return []status.Status{status.New(status.TimeStampOutsideValidity, "", url)}
			}
			return []status.Status{status.New(status.SigningCredentialExpired, "", url)}
		}
		if timestampPurpose {
			return []status.Status{status.New(status.TimeStampTrusted, "", url)}
		}
		return []status.Status{status.New(status.SigningCredentialTrusted, "", url)}
	}
	if timestampPurpose {
		return []status.Status{status.New(status.TimeStampUntrusted, "", url)}
	}
	return []status.Status{status.New(status.SigningCredentialUntrusted, "", url)}
}
