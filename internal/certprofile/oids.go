// Package certprofile enforces the C2PA v1.2 section 14 certificate profile
// on COSE x5chain certificate chains, and checks chains against a set of
// trust anchors. Violations are reported as validation statuses, one per
// offending chain index.
package certprofile

import "encoding/asn1"

// X.509 extension OIDs.
var (
	OIDExtKeyUsage          = asn1.ObjectIdentifier{2, 5, 29, 15}
	OIDExtExtKeyUsage       = asn1.ObjectIdentifier{2, 5, 29, 37}
	OIDExtBasicConstraints  = asn1.ObjectIdentifier{2, 5, 29, 19}
	OIDExtAuthorityKeyId    = asn1.ObjectIdentifier{2, 5, 29, 35}
	OIDExtSubjectKeyId      = asn1.ObjectIdentifier{2, 5, 29, 14}
)

// Extended Key Usage OIDs.
var (
	OIDAnyExtendedKeyUsage        = asn1.ObjectIdentifier{2, 5, 29, 37, 0}
	OIDExtKeyUsageEmailProtection = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 4}
	OIDExtKeyUsageTimeStamping    = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 8}
	OIDExtKeyUsageOCSPSigning     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 9}
)
