// Package status defines the C2PA validation status codes and the status
// records returned by signing and verification. Codes follow the enumeration in
// C2PA specification v1.2 section 15.2.1.
package status

import "fmt"

// Code is a C2PA status code string, e.g. "claimSignature.validated".
type Code string

// Success codes.
const (
	ClaimSignatureValidated  Code = "claimSignature.validated"
	SigningCredentialTrusted Code = "signingCredential.trusted"
	TimeStampTrusted         Code = "timeStamp.trusted"
	AssertionHashedURIMatch  Code = "assertion.hashedURI.match"
	AssertionDataHashMatch   Code = "assertion.dataHash.match"
	AssertionBMFFHashMatch   Code = "assertion.bmffHash.match"
)

// Failure codes.
const (
	AssertionAccessible               Code = "assertion.accessible"
	ClaimMissing                      Code = "claim.missing"
	ClaimMultiple                     Code = "claim.multiple"
	ClaimHardBindingsMissing          Code = "claim.hardBindings.missing"
	ClaimRequiredMissing              Code = "claim.required.missing"
	ClaimCBORInvalid                  Code = "claim.cbor.invalid"
	IngredientHashedURIMismatch       Code = "ingredient.hashedURI.mismatch"
	ClaimSignatureMissing             Code = "claimSignature.missing"
	ClaimSignatureMismatch            Code = "claimSignature.mismatch"
	ManifestMultipleParents           Code = "manifest.multipleParents"
	ManifestUpdateInvalid             Code = "manifest.update.invalid"
	ManifestUpdateWrongParents        Code = "manifest.update.wrongParents"
	SigningCredentialUntrusted        Code = "signingCredential.untrusted"
	SigningCredentialInvalid          Code = "signingCredential.invalid"
	SigningCredentialRevoked          Code = "signingCredential.revoked"
	SigningCredentialExpired          Code = "signingCredential.expired"
	TimeStampMismatch                 Code = "timeStamp.mismatch"
	TimeStampUntrusted                Code = "timeStamp.untrusted"
	TimeStampOutsideValidity          Code = "timeStamp.outsideValidity"
	AssertionHashedURIMismatch        Code = "assertion.hashedURI.mismatch"
	AssertionMissing                  Code = "assertion.missing"
	AssertionMultipleHardBindings     Code = "assertion.multipleHardBindings"
	AssertionUndeclared               Code = "assertion.undeclared"
	AssertionInaccessible             Code = "assertion.inaccessible"
	AssertionNotRedacted              Code = "assertion.notRedacted"
	AssertionSelfRedacted             Code = "assertion.selfRedacted"
	AssertionRequiredMissing          Code = "assertion.required.missing"
	AssertionJSONInvalid              Code = "assertion.json.invalid"
	AssertionCBORInvalid              Code = "assertion.cbor.invalid"
	AssertionActionIngredientMismatch Code = "assertion.action.ingredientMismatch"
	AssertionActionRedacted           Code = "assertion.action.redacted"
	AssertionDataHashMismatch         Code = "assertion.dataHash.mismatch"
	AssertionBMFFHashMismatch         Code = "assertion.bmffHash.mismatch"
	AssertionCloudDataHardBinding     Code = "assertion.cloud-data.hardBinding"
	AssertionCloudDataActions         Code = "assertion.cloud-data.actions"
	AlgorithmUnsupported              Code = "algorithm.unsupported"
	GeneralError                      Code = "general.error"
)

var successCodes = map[Code]bool{
	ClaimSignatureValidated:  true,
	SigningCredentialTrusted: true,
	TimeStampTrusted:         true,
	AssertionHashedURIMatch:  true,
	AssertionDataHashMatch:   true,
	AssertionBMFFHashMatch:   true,
}

var descriptions = map[Code]string{
	ClaimSignatureValidated:           "The claim signature referenced in the ingredient's claim validated.",
	SigningCredentialTrusted:          "The signing credential is listed on the validator's trust list.",
	TimeStampTrusted:                  "The time-stamp credential is listed on the validator's trust list.",
	AssertionHashedURIMatch:           "The hash of the referenced assertion in the manifest matches the corresponding hash in the assertion's hashed URI in the claim.",
	AssertionDataHashMatch:            "Hash of a byte range of the asset matches the hash declared in the data hash assertion.",
	AssertionBMFFHashMatch:            "Hash of a box-based asset matches the hash declared in the BMFF hash assertion.",
	AssertionAccessible:               "A non-embedded (remote) assertion was accessible at the time of validation.",
	ClaimMissing:                      "The referenced claim in the ingredient's manifest cannot be found.",
	ClaimMultiple:                     "More than one claim box is present in the manifest.",
	ClaimHardBindingsMissing:          "No hard bindings are present in the claim.",
	ClaimRequiredMissing:              "A required field is not present in the claim.",
	ClaimCBORInvalid:                  "The cbor of the claim is not valid.",
	IngredientHashedURIMismatch:       "The hash of the referenced ingredient claim in the manifest does not match the corresponding hash in the ingredient's hashed URI in the claim.",
	ClaimSignatureMissing:             "The claim signature referenced in the claim cannot be found in its manifest.",
	ClaimSignatureMismatch:            "The claim signature referenced in the claim failed to validate.",
	ManifestMultipleParents:           "The manifest has more than one ingredient whose relationship is parentOf.",
	ManifestUpdateInvalid:             "The manifest is an update manifest, but it contains a disallowed assertion.",
	ManifestUpdateWrongParents:        "The manifest is an update manifest, but it contains either zero or multiple parentOf ingredients.",
	SigningCredentialUntrusted:        "The signing credential is not listed on the validator's trust list.",
	SigningCredentialInvalid:          "The signing credential is not valid for signing.",
	SigningCredentialRevoked:          "The signing credential has been revoked by the issuer.",
	SigningCredentialExpired:          "The signing credential has expired.",
	TimeStampMismatch:                 "The time-stamp does not correspond to the contents of the claim.",
	TimeStampUntrusted:                "The time-stamp credential is not listed on the validator's trust list.",
	TimeStampOutsideValidity:          "The signed time-stamp attribute in the signature falls outside the validity window of the signing certificate or the TSA's certificate.",
	AssertionHashedURIMismatch:        "The hash of the referenced assertion in the manifest does not match the corresponding hash in the assertion's hashed URI in the claim.",
	AssertionMissing:                  "An assertion listed in the claim is missing from the manifest.",
	AssertionMultipleHardBindings:     "The manifest has more than one hard binding assertion.",
	AssertionUndeclared:               "An assertion was found in the manifest that was not explicitly declared in the claim.",
	AssertionInaccessible:             "A non-embedded (remote) assertion was inaccessible at the time of validation.",
	AssertionNotRedacted:              "An assertion was declared as redacted in the claim but is still present in the manifest.",
	AssertionSelfRedacted:             "An assertion was declared as redacted by its own claim.",
	AssertionRequiredMissing:          "A required field is not present in an assertion.",
	AssertionJSONInvalid:              "The JSON(-LD) of an assertion is not valid.",
	AssertionCBORInvalid:              "The cbor of an assertion is not valid.",
	AssertionActionIngredientMismatch: "An action that requires an associated ingredient either does not have one or the one specified cannot be located.",
	AssertionActionRedacted:           "An action assertion was redacted when the ingredient's claim was created.",
	AssertionDataHashMismatch:         "The hash of a byte range of the asset does not match the hash declared in the data hash assertion.",
	AssertionBMFFHashMismatch:         "The hash of a box-based asset does not match the hash declared in a BMFF hash assertion.",
	AssertionCloudDataHardBinding:     "A hard binding assertion is in a cloud data assertion.",
	AssertionCloudDataActions:         "An update manifest contains a cloud data assertion referencing an actions assertion.",
	AlgorithmUnsupported:              "The value of an alg header, or other header that specifies an algorithm used to compute the value of another field, is unknown or unsupported.",
	GeneralError:                      "A value to be used when there was an error not specifically listed here.",
}

// IsOK reports whether the code is a success code. Unknown codes are errors.
func (c Code) IsOK() bool {
	return successCodes[c]
}

// Description returns the specification text for the code, or "" if unknown.
func (c Code) Description() string {
	return descriptions[c]
}

// Known reports whether the code is part of the standard enumeration.
func (c Code) Known() bool {
	_, ok := descriptions[c]
	return ok
}

// Status is one validation outcome. A sign or verify pass returns a list of
// these; error statuses do not stop processing unless further work would be
// meaningless.
type Status struct {
	Code    Code
	OK      bool
	Message string
	URL     string
	Err     error
	// Referenced carries a status replayed from an ingredient's recorded
	// validationStatus, when this status was derived from one.
	Referenced *Status
}

// New returns a status for a standard code. If message is empty the
// specification description is used.
func New(code Code, message, url string) Status {
	if message == "" {
		message = code.Description()
	}
	return Status{Code: code, OK: code.IsOK(), Message: message, URL: url}
}

// NewError wraps an error as a status with the given code.
func NewError(code Code, err error, url string) Status {
	return Status{Code: code, OK: false, Message: err.Error(), URL: url, Err: err}
}

// IsError reports whether the status is a failure.
func (s Status) IsError() bool {
	return !s.OK
}

func (s Status) String() string {
	prefix := ""
	if s.IsError() {
		prefix = "ERROR "
	}
	msg := s.Message
	if len(msg) > 0 && msg[len(msg)-1] == '.' {
		msg = msg[:len(msg)-1]
	}
	if s.URL != "" {
		return fmt.Sprintf("[%s%s] %s (at %s)", prefix, s.Code, msg, s.URL)
	}
	return fmt.Sprintf("[%s%s] %s", prefix, s.Code, msg)
}

// ToMap renders the status as the map stored in an ingredient's
// validationStatus list.
func (s Status) ToMap() map[string]any {
	m := map[string]any{"code": string(s.Code)}
	if !s.Code.Known() {
		m["success"] = s.OK
	}
	if s.URL != "" {
		m["url"] = s.URL
	}
	if s.Message != "" {
		m["explanation"] = s.Message
	}
	return m
}

// FromMap reads a status back from an ingredient's validationStatus entry.
func FromMap(m map[string]any) Status {
	code, _ := m["code"].(string)
	url, _ := m["url"].(string)
	msg, _ := m["explanation"].(string)
	c := Code(code)
	ok := c.IsOK()
	if v, isBool := m["success"].(bool); isBool && !c.Known() {
		ok = v
	}
	return Status{Code: c, OK: ok, Message: msg, URL: url}
}

// AllOK reports whether every status in the list is a success.
func AllOK(list []Status) bool {
	for _, s := range list {
		if s.IsError() {
			return false
		}
	}
	return true
}
