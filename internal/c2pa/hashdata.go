package c2pa

import (
	"bytes"
	"fmt"
	"io"

	"github.com/signedmedia/c2pa-go/internal/jumbf"
	"github.com/signedmedia/c2pa-go/internal/status"
)

// exclusionsPadLength is the fixed encoded size of the exclusions list plus
// the pad byte string. Holding this region at a constant size makes the
// signed store's encoded length predictable before the exclusions are known,
// which the two-pass JPEG embed depends on.
const exclusionsPadLength = 80

// Exclusion is a byte range of the asset left out of the data hash.
type Exclusion struct {
	Start  int64
	Length int64
}

// DataHashAssertion is the "c2pa.hash.data" hard binding: a streaming hash of
// the surrounding asset minus the exclusion ranges that hold the manifest
// itself.
type DataHashAssertion struct {
	jumbf.CBORContainerBox
}

// NewDataHashAssertion builds an empty data-hash assertion.
func NewDataHashAssertion() (*DataHashAssertion, error) {
	a := &DataHashAssertion{}
	if err := jumbf.InitCBORContainer(a, "cbor", "c2pa.hash.data", nil); err != nil {
		return nil, err
	}
	return a, nil
}

// Manifest returns the manifest containing this assertion, or nil.
func (a *DataHashAssertion) Manifest() *Manifest { return manifestOf(a) }

func (a *DataHashAssertion) cborMap() map[string]any {
	box := a.CBOR()
	if box == nil {
		return nil
	}
	m := box.Map()
	if m == nil {
		m = map[string]any{}
		box.SetValue(m)
	}
	return m
}

func (a *DataHashAssertion) dirty() {
	if box := a.CBOR(); box != nil {
		box.Dirty()
	}
}

// SetAlg overrides the hash algorithm for this assertion; pass "" to inherit
// the claim's.
func (a *DataHashAssertion) SetAlg(alg string) {
	m := a.cborMap()
	if alg == "" {
		delete(m, "alg")
	} else {
		m["alg"] = alg
	}
	a.dirty()
}

// SetExclusions installs the exclusion ranges, which must be strictly
// increasing and non-overlapping, and sizes the pad so that the encoded
// exclusions-plus-pad region occupies exactly its fixed budget.
func (a *DataHashAssertion) SetExclusions(exclusions []Exclusion) error {
	list := make([]any, 0, len(exclusions))
	pos := int64(-1)
	for _, e := range exclusions {
		if e.Start <= pos || e.Length <= 0 {
			return fmt.Errorf("c2pa: invalid exclusions %v", exclusions)
		}
		pos = e.Start + e.Length
		list = append(list, map[string]any{"start": e.Start, "length": e.Length})
	}
	encoded, err := jumbf.CBORMarshal(list)
	if err != nil {
		return err
	}
	pad := exclusionsPadLength - len(encoded)
	if pad < 0 {
		return fmt.Errorf("c2pa: exclusions encode to %d bytes, over the %d-byte budget", len(encoded), exclusionsPadLength)
	}
	m := a.cborMap()
	m["exclusions"] = list
	m["pad"] = make([]byte, pad)
	a.dirty()
	return nil
}

// Exclusions returns the exclusion ranges currently stored.
func (a *DataHashAssertion) Exclusions() []Exclusion {
	var out []Exclusion
	for _, e := range mapList(a.cborMap(), "exclusions") {
		entry, _ := e.(map[string]any)
		start, ok1 := mapInt(entry, "start")
		length, ok2 := mapInt(entry, "length")
		if ok1 && ok2 {
			out = append(out, Exclusion{Start: start, Length: length})
		}
	}
	return out
}

// SignAsset computes the asset digest during signing. The manifest's input
// stream is consumed in full, ignoring exclusions: at signing time the asset
// is presented already excluding the region reserved for the manifest.
func (a *DataHashAssertion) SignAsset() ([]status.Status, error) {
	m := a.cborMap()
	if _, ok := m["exclusions"].([]any); !ok {
		if err := a.SetExclusions(nil); err != nil {
			return nil, err
		}
	}
	delete(m, "hash")
	a.dirty()
	digest, st, err := a.computeDigest(true)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return []status.Status{*st}, nil
	}
	m["hash"] = digest
	a.dirty()
	return nil, nil
}

// VerifyAssertion recomputes the asset digest, skipping exclusions, and
// compares it to the stored hash.
func (a *DataHashAssertion) VerifyAssertion() ([]status.Status, error) {
	digest, st, err := a.computeDigest(false)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return []status.Status{*st}, nil
	}
	stored := mapBytes(a.cborMap(), "hash")
	if !bytes.Equal(digest, stored) {
		manifest := a.Manifest()
		url := ""
		if manifest != nil {
			url = manifest.PathOf(a)
		}
		return []status.Status{status.New(status.AssertionDataHashMismatch, "digest mismatch", url)}, nil
	}
	return nil, nil
}

// computeDigest streams the manifest's asset input through the digest. A
// status pointer is returned for validation outcomes (unsupported algorithm);
// I/O problems are errors.
func (a *DataHashAssertion) computeDigest(signing bool) ([]byte, *status.Status, error) {
	manifest := a.Manifest()
	if manifest == nil {
		return nil, nil, fmt.Errorf("c2pa: data hash assertion is not in a manifest")
	}
	in := manifest.InputStream()
	if in == nil {
		return nil, nil, fmt.Errorf("c2pa: manifest has no input stream set")
	}
	digest, err := manifest.newDigest(mapString(a.cborMap(), "alg"), signing)
	if err != nil {
		st := status.NewError(status.AlgorithmUnsupported, err, manifest.PathOf(a))
		return nil, &st, nil
	}
	if signing {
		if _, err := io.Copy(digest, in); err != nil {
			return nil, nil, err
		}
		return digest.Sum(nil), nil, nil
	}
	var pos int64
	for _, e := range a.Exclusions() {
		if e.Start > pos {
			n, err := io.CopyN(digest, in, e.Start-pos)
			pos += n
			if err == io.EOF {
				return digest.Sum(nil), nil, nil
			}
			if err != nil {
				return nil, nil, err
			}
		}
		n, err := io.CopyN(io.Discard, in, e.Start+e.Length-pos)
		pos += n
		if err == io.EOF {
			return digest.Sum(nil), nil, nil
		}
		if err != nil {
			return nil, nil, err
		}
	}
	if _, err := io.Copy(digest, in); err != nil {
		return nil, nil, err
	}
	return digest.Sum(nil), nil, nil
}
