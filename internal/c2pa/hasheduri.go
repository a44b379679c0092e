package c2pa

import (
	"bytes"
	"fmt"

	"github.com/signedmedia/c2pa-go/internal/jumbf"
	"github.com/signedmedia/c2pa-go/internal/status"
)

func labelOrType(b jumbf.Box) string {
	if l := jumbf.LabelOf(b); l != "" {
		return l
	}
	return b.Type()
}

// digestHashedURI computes the digest for one hashed-URI entry
// ({url, alg?, hash?}) against the manifest. The digest covers the encoded
// bytes of each child of the target superbox (description and content boxes),
// not the superbox header.
//
// The algorithm is the entry's own, else contextAlg (the nearest enclosing
// structure's), else the claim's, else the default. During signing the
// computed hash is stored on the entry; during verification a stored hash is
// only compared, so mismatches surface as statuses instead of overwrites.
func digestHashedURI(entry map[string]any, m *Manifest, contextAlg string, ingredient, signing bool) status.Status {
	url := mapString(entry, "url")
	box := m.Find(url)
	if box == nil {
		code := status.AssertionMissing
		if ingredient {
			code = status.ClaimMissing
		}
		return status.New(code, fmt.Sprintf("%q not in manifest", url), m.PathOf(m))
	}
	alg := mapString(entry, "alg")
	if alg == "" {
		alg = contextAlg
	}
	digest, err := m.newDigest(alg, signing)
	if err != nil {
		return status.NewError(status.AlgorithmUnsupported, err, m.PathOf(box))
	}
	for child := box.First(); child != nil; child = child.Next() {
		enc, err := child.Encode()
		if err != nil {
			return status.NewError(status.GeneralError, err, m.PathOf(box))
		}
		digest.Write(enc)
	}
	sum := digest.Sum(nil)

	label := ""
	if d := box; d != nil {
		label = labelOrType(d)
	}
	if stored := mapBytes(entry, "hash"); stored != nil {
		if !bytes.Equal(stored, sum) {
			code := status.AssertionHashedURIMismatch
			if ingredient {
				code = status.IngredientHashedURIMismatch
			}
			return status.New(code, fmt.Sprintf("hash mismatch for %q", label), m.PathOf(box))
		}
	} else if !signing {
		// No stored hash to check outside of signing; leave the entry alone.
		return status.New(status.AssertionHashedURIMatch, fmt.Sprintf("hash computed for %q", label), m.PathOf(box))
	}
	if signing {
		entry["hash"] = sum
	}
	return status.New(status.AssertionHashedURIMatch, fmt.Sprintf("hash match for %q", label), m.PathOf(box))
}
