package c2pa

import (
	"fmt"

	"github.com/signedmedia/c2pa-go/internal/jumbf"
)

// Claim is the "jumb"/"c2cl" box holding the CBOR claim document: format,
// instance ID, hash algorithm, claim generator, the hashed-URI assertion list
// and the signature reference. The claim bytes are the COSE payload.
type Claim struct {
	jumbf.CBORContainerBox
}

func newClaim() (*Claim, error) {
	c := &Claim{}
	if err := jumbf.InitCBORContainer(c, "c2cl", "c2pa.claim", nil); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Claim) manifest() *Manifest {
	m, _ := c.Parent().(*Manifest)
	return m
}

func (c *Claim) cborMap() map[string]any {
	box := c.CBOR()
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

func (c *Claim) dirty() {
	if box := c.CBOR(); box != nil {
		box.Dirty()
	}
}

// Format returns the asset media type (dc:format).
func (c *Claim) Format() string { return mapString(c.cborMap(), "dc:format") }

// SetFormat sets the asset media type; required before signing.
func (c *Claim) SetFormat(format string) {
	c.cborMap()["dc:format"] = format
	c.dirty()
}

// InstanceID returns the asset instance identifier.
func (c *Claim) InstanceID() string { return mapString(c.cborMap(), "instanceID") }

// SetInstanceID sets the asset instance identifier; required before signing.
func (c *Claim) SetInstanceID(id string) {
	c.cborMap()["instanceID"] = id
	c.dirty()
}

// Alg returns the claim hash algorithm, or "".
func (c *Claim) Alg() string { return mapString(c.cborMap(), "alg") }

// SetAlg sets the hash algorithm used for assertion digests. The algorithm
// must be one of sha256, sha384, sha512.
func (c *Claim) SetAlg(alg string) error {
	if _, err := newDigest(alg); err != nil {
		return err
	}
	c.cborMap()["alg"] = alg
	c.dirty()
	return nil
}

// Generator returns the claim_generator user-agent string.
func (c *Claim) Generator() string { return mapString(c.cborMap(), "claim_generator") }

// SetGenerator sets the claim generator and optional claim_generator_info
// entries. A default is applied at signing when unset.
func (c *Claim) SetGenerator(generator string, info []any) {
	m := c.cborMap()
	m["claim_generator"] = generator
	if info == nil {
		delete(m, "claim_generator_info")
	} else {
		m["claim_generator_info"] = info
	}
	c.dirty()
}

// SignatureURL returns the claim's signature reference, or "".
func (c *Claim) SignatureURL() string { return mapString(c.cborMap(), "signature") }

// assertionEntries returns the claim's hashed-URI list, creating it when
// missing.
func (c *Claim) assertionEntries(create bool) []any {
	m := c.cborMap()
	if l, ok := m["assertions"].([]any); ok {
		return l
	}
	if !create {
		return nil
	}
	l := []any{}
	m["assertions"] = l
	c.dirty()
	return l
}

// Assertions resolves the claim's hashed-URI list against the manifest. An
// entry whose URL does not resolve to a known assertion yields an
// UnknownAssertion carrying the URL, so callers can tell "absent" from
// "present but unrecognized".
func (c *Claim) Assertions() []Assertion {
	manifest := c.manifest()
	if manifest != nil {
		// Normalizes unrecognized assertion-store boxes first, so claim
		// references resolve to the same instances the manifest list holds.
		manifest.Assertions()
	}
	entries := c.assertionEntries(false)
	out := make([]Assertion, 0, len(entries))
	for _, e := range entries {
		entry, _ := e.(map[string]any)
		url := mapString(entry, "url")
		var a Assertion
		if manifest != nil {
			if box := manifest.Find(url); box != nil {
				a, _ = box.(Assertion)
			}
		}
		if a == nil {
			a = NewUnknownAssertionURL(url)
		}
		out = append(out, a)
	}
	return out
}

// AddAssertion appends a hashed-URI entry for an assertion already present in
// the manifest's assertion store. The digest is computed at signing time.
func (c *Claim) AddAssertion(a Assertion) error {
	manifest := c.manifest()
	if manifest == nil {
		return fmt.Errorf("c2pa: claim is not in a manifest")
	}
	if u, ok := a.(*UnknownAssertion); ok && u.URL() != "" {
		return fmt.Errorf("c2pa: cannot add an unresolved assertion to the claim")
	}
	url := manifest.PathOf(a)
	if url == "" || len(url) >= 12 && url[:12] == "self#jumbf=/" {
		return fmt.Errorf("c2pa: assertion is not in this manifest's assertion store")
	}
	found := false
	for _, ma := range manifest.Assertions() {
		if jumbf.Box(ma) == jumbf.Box(a) {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("c2pa: assertion is not in this manifest's assertion store")
	}
	m := c.cborMap()
	entries := c.assertionEntries(true)
	m["assertions"] = append(entries, map[string]any{"url": url})
	c.dirty()
	return nil
}

// ClearAssertionHashes removes stored hashes from the claim's hashed-URI
// entries so signing recomputes them.
func (c *Claim) ClearAssertionHashes() {
	for _, e := range c.assertionEntries(false) {
		if entry, ok := e.(map[string]any); ok {
			delete(entry, "hash")
		}
	}
	c.dirty()
}
