package c2pa

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"

	"github.com/signedmedia/c2pa-go/internal/jumbf"
)

// DefaultHashAlgorithm is used when neither a hashed URI nor the claim names
// one.
const DefaultHashAlgorithm = "sha256"

// Manifest is the "jumb"/"c2ma" box: an assertion store, exactly one claim
// and exactly one signature. Its label is its identifier within the store.
type Manifest struct {
	jumbf.SuperBox
	input io.Reader
}

// NewManifest builds a manifest with the given label (a urn:uuid identifier).
func NewManifest(label string) (*Manifest, error) {
	if label == "" {
		return nil, fmt.Errorf("c2pa: manifest label is required")
	}
	m := &Manifest{}
	if err := jumbf.InitSuper(m, "c2ma", label); err != nil {
		return nil, err
	}
	return m, nil
}

// SetInputStream supplies the asset bytes for hard-binding signing or
// verification. The stream is consumed exactly once.
func (m *Manifest) SetInputStream(r io.Reader) {
	m.input = r
}

// InputStream returns the supplied asset stream and clears it; a second call
// returns nil.
func (m *Manifest) InputStream() io.Reader {
	r := m.input
	m.input = nil
	return r
}

// assertionStore returns the "c2as" child superbox, creating it on first use.
func (m *Manifest) assertionStore() jumbf.Box {
	for b := m.First(); b != nil; b = b.Next() {
		if jumbf.SubtypeOf(b) == "c2as" {
			return b
		}
	}
	store, err := jumbf.NewSuperBox("c2as", "c2pa.assertions")
	if err != nil {
		panic(err)
	}
	if err := m.Append(store); err != nil {
		panic(err)
	}
	return store
}

// Assertions returns the assertions in the manifest's assertion store, in
// insertion order. Boxes with unrecognized content are rewrapped in place as
// unknown assertions, keeping their children so they round-trip and hash
// unchanged.
func (m *Manifest) Assertions() []Assertion {
	store := m.assertionStore()
	var out []Assertion
	for b := store.First(); b != nil; b = b.Next() {
		if _, ok := b.(*jumbf.DescriptionBox); ok {
			continue
		}
		a, ok := b.(Assertion)
		if !ok {
			unknown := &UnknownAssertion{}
			jumbf.Init(unknown, "jumb")
			for b.First() != nil {
				child := b.First()
				child.Remove()
				if err := unknown.Append(child); err != nil {
					panic(err)
				}
			}
			if err := unknown.InsertBefore(b); err != nil {
				panic(err)
			}
			b.Remove()
			b = unknown
			a = unknown
		}
		out = append(out, a)
	}
	return out
}

// AddAssertion appends an assertion to the assertion store.
func (m *Manifest) AddAssertion(a Assertion) error {
	return m.assertionStore().Append(a)
}

// Claim returns the manifest's claim, creating it on first access.
func (m *Manifest) Claim() *Claim {
	for b := m.First(); b != nil; b = b.Next() {
		if c, ok := b.(*Claim); ok {
			return c
		}
	}
	c, err := newClaim()
	if err != nil {
		panic(err)
	}
	if err := m.Append(c); err != nil {
		panic(err)
	}
	return c
}

// Signature returns the manifest's signature box, creating it on first
// access.
func (m *Manifest) Signature() *Signature {
	for b := m.First(); b != nil; b = b.Next() {
		if s, ok := b.(*Signature); ok {
			return s
		}
	}
	s, err := newSignature()
	if err != nil {
		panic(err)
	}
	if err := m.Append(s); err != nil {
		panic(err)
	}
	return s
}

// Find resolves a JUMBF path relative to this manifest (or absolute from the
// store).
func (m *Manifest) Find(path string) jumbf.Box {
	box, err := jumbf.FindByPath(m, path)
	if err != nil {
		return nil
	}
	return box
}

// PathOf returns the JUMBF path addressing a descendant from this manifest:
// relative when possible, absolute otherwise.
func (m *Manifest) PathOf(b jumbf.Box) string {
	return jumbf.PathTo(m, b)
}

// newDigest resolves a hash algorithm name to a digest. The caller threads
// the inherited algorithm: hashed-URI alg, else the enclosing structure's,
// else the claim's. During signing an unset claim algorithm is defaulted.
func (m *Manifest) newDigest(alg string, signing bool) (hash.Hash, error) {
	if alg == "" {
		alg = m.Claim().Alg()
		if alg == "" && signing {
			m.Claim().SetAlg(DefaultHashAlgorithm)
			alg = DefaultHashAlgorithm
		}
		if alg == "" {
			alg = DefaultHashAlgorithm
		}
	}
	return newDigest(alg)
}

func newDigest(alg string) (hash.Hash, error) {
	switch alg {
	case "sha256":
		return sha256.New(), nil
	case "sha384":
		return sha512.New384(), nil
	case "sha512":
		return sha512.New(), nil
	}
	return nil, fmt.Errorf("alg %q not found", alg)
}
