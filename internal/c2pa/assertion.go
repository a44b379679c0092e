// Package c2pa implements the C2PA manifest tree (specification v1.2): the
// JUMBF store with its manifests, claims, assertions and COSE signatures,
// plus signing and verification with the full validation status taxonomy.
package c2pa

import (
	"github.com/signedmedia/c2pa-go/internal/jumbf"
	"github.com/signedmedia/c2pa-go/internal/status"
)

// Assertion is a JUMBF box stored in a manifest's assertion store. Assertion
// types validate themselves during verification; the default is to accept.
type Assertion interface {
	jumbf.Box
	// Label returns the assertion label, e.g. "c2pa.hash.data".
	Label() string
	// VerifyAssertion checks the assertion against its manifest, returning
	// failure statuses or nil. I/O problems while checking propagate as
	// errors.
	VerifyAssertion() ([]status.Status, error)
}

// manifestOf walks up from an assertion to its containing manifest
// (assertion -> assertion store -> manifest).
func manifestOf(b jumbf.Box) *Manifest {
	p := b.Parent()
	if p == nil {
		return nil
	}
	m, _ := p.Parent().(*Manifest)
	return m
}

// CBORAssertion is a CBOR container assertion with no special validation:
// soft bindings, cloud data, depth maps, endorsements and any other
// registered CBOR assertion without dedicated behavior.
type CBORAssertion struct {
	jumbf.CBORContainerBox
}

// NewCBORAssertion builds an empty CBOR assertion with the given label.
func NewCBORAssertion(label string) (*CBORAssertion, error) {
	a := &CBORAssertion{}
	if err := jumbf.InitCBORContainer(a, "cbor", label, nil); err != nil {
		return nil, err
	}
	return a, nil
}

// VerifyAssertion accepts: opaque CBOR assertions carry no checkable claims.
func (a *CBORAssertion) VerifyAssertion() ([]status.Status, error) { return nil, nil }

// Manifest returns the manifest containing this assertion, or nil.
func (a *CBORAssertion) Manifest() *Manifest { return manifestOf(a) }

// SchemaAssertion is a JSON assertion carrying a schema.org or metadata
// document: stds.exif, stds.iptc, stds.schema-org.ClaimReview,
// stds.schema-org.CreativeWork. The document is not validated.
type SchemaAssertion struct {
	jumbf.JSONContainerBox
}

// NewSchemaAssertion builds a schema assertion from raw JSON text.
func NewSchemaAssertion(label string, raw []byte) (*SchemaAssertion, error) {
	a := &SchemaAssertion{}
	if err := jumbf.InitJSONContainer(a, label, raw); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *SchemaAssertion) VerifyAssertion() ([]status.Status, error) { return nil, nil }

// ThumbnailAssertion is an embedded-file assertion for c2pa.thumbnail.claim.*
// and c2pa.thumbnail.ingredient.* labels.
type ThumbnailAssertion struct {
	jumbf.EmbeddedFileBox
}

// NewThumbnailAssertion builds a thumbnail assertion. The label subtype is
// derived from the media type ("image/jpeg" -> "...thumbnail.claim.jpeg").
func NewThumbnailAssertion(mediaType, fileName string, data []byte, claim bool) (*ThumbnailAssertion, error) {
	sub, err := mediaSubtype(mediaType)
	if err != nil {
		return nil, err
	}
	label := "c2pa.thumbnail.ingredient." + sub
	if claim {
		label = "c2pa.thumbnail.claim." + sub
	}
	a := &ThumbnailAssertion{}
	if err := jumbf.InitEmbeddedFile(a, label, mediaType, fileName, data); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *ThumbnailAssertion) VerifyAssertion() ([]status.Status, error) { return nil, nil }

// UnknownAssertion stands in for an assertion whose label is unrecognized, or
// for a claim reference that does not resolve. A resolved-but-unrecognized
// assertion keeps the original box content; an unresolved reference carries
// only the URL.
type UnknownAssertion struct {
	jumbf.SuperBox
	url string
}

// NewUnknownAssertionURL builds a placeholder for an unresolved claim
// reference.
func NewUnknownAssertionURL(url string) *UnknownAssertion {
	a := &UnknownAssertion{url: url}
	jumbf.Init(a, "jumb")
	return a
}

// URL returns the claim-reference URL for an unresolved assertion, or "".
func (a *UnknownAssertion) URL() string { return a.url }

func (a *UnknownAssertion) VerifyAssertion() ([]status.Status, error) { return nil, nil }

// BMFFHashAssertion recognizes c2pa.hash.bmff and c2pa.hash.bmff.v2 so stores
// carrying them parse and round-trip, but signing or verifying one is
// unsupported and reported as a general error.
type BMFFHashAssertion struct {
	jumbf.CBORContainerBox
}

// NewBMFFHashAssertion builds an empty BMFF hash assertion.
func NewBMFFHashAssertion(v2 bool) (*BMFFHashAssertion, error) {
	label := "c2pa.hash.bmff"
	if v2 {
		label = "c2pa.hash.bmff.v2"
	}
	a := &BMFFHashAssertion{}
	if err := jumbf.InitCBORContainer(a, "cbor", label, nil); err != nil {
		return nil, err
	}
	return a, nil
}

// IsV2 reports whether this is the version 2 variant.
func (a *BMFFHashAssertion) IsV2() bool {
	return a.Label() == "c2pa.hash.bmff.v2"
}

func (a *BMFFHashAssertion) unsupported() []status.Status {
	m := manifestOf(a)
	url := ""
	if m != nil {
		url = m.PathOf(a)
	}
	return []status.Status{status.New(status.GeneralError,
		a.Label()+" hash assertions are not supported", url)}
}

// SignAsset reports the assertion as unsupported.
func (a *BMFFHashAssertion) SignAsset() ([]status.Status, error) { return a.unsupported(), nil }

// VerifyAssertion reports the assertion as unsupported.
func (a *BMFFHashAssertion) VerifyAssertion() ([]status.Status, error) { return a.unsupported(), nil }

func mediaSubtype(mediaType string) (string, error) {
	const prefix = "image/"
	if len(mediaType) > len(prefix) && mediaType[:len(prefix)] == prefix {
		sub := mediaType[len(prefix):]
		for i := 0; i < len(sub); i++ {
			if sub[i] == ';' {
				sub = sub[:i]
				break
			}
		}
		return sub, nil
	}
	return "", errBadMediaType(mediaType)
}

type errBadMediaType string

func (e errBadMediaType) Error() string { return "mediaType is " + string(e) }
