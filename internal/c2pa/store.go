package c2pa

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/signedmedia/c2pa-go/internal/jumbf"
)

// Store is the top-level C2PA JUMBF box ("jumb"/"c2pa") holding one or more
// manifests. The active manifest is the last one.
type Store struct {
	jumbf.SuperBox
}

// NewStore builds an empty store.
func NewStore() *Store {
	s := &Store{}
	if err := jumbf.InitSuper(s, "c2pa", "c2pa"); err != nil {
		// The fixed label is always valid.
		panic(err)
	}
	return s
}

func parseStoreBytes(raw []byte) (*Store, error) {
	box, err := NewFactory().Load(jumbf.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, err
	}
	store, ok := box.(*Store)
	if !ok {
		return nil, fmt.Errorf("c2pa: top-level box is %T, not a store", box)
	}
	return store, nil
}

// Manifests returns the manifests in insertion order.
func (s *Store) Manifests() []*Manifest {
	var out []*Manifest
	for b := s.First(); b != nil; b = b.Next() {
		if m, ok := b.(*Manifest); ok {
			out = append(out, m)
		}
	}
	return out
}

// AppendManifest adds a manifest to the end of the store.
func (s *Store) AppendManifest(m *Manifest) error {
	return s.Append(m)
}

// ActiveManifest returns the last manifest, whose signature binds the current
// asset, or nil for an empty store.
func (s *Store) ActiveManifest() *Manifest {
	ms := s.Manifests()
	if len(ms) == 0 {
		return nil
	}
	return ms[len(ms)-1]
}

// Find resolves a JUMBF path ("self#jumbf=...") from this store.
func (s *Store) Find(path string) jumbf.Box {
	box, err := jumbf.FindByPath(s, path)
	if err != nil {
		return nil
	}
	return box
}

// PathOf returns the JUMBF path addressing a descendant box from this store.
func (s *Store) PathOf(b jumbf.Box) string {
	return jumbf.PathTo(s, b)
}

// DumpTree renders the box tree for diagnostics.
func (s *Store) DumpTree() string {
	var sb strings.Builder
	jumbf.Dump(s, "", &sb)
	return sb.String()
}

// ToJSON builds a non-live diagnostic projection of the store, shaped like
// the c2patool output: per-manifest claim, assertion store and signature
// summary.
func (s *Store) ToJSON() map[string]any {
	manifests := map[string]any{}
	for _, m := range s.Manifests() {
		entry := map[string]any{}
		entry["claim"] = m.Claim().Map()
		store := map[string]any{}
		for _, a := range m.Assertions() {
			switch box := a.(type) {
			case interface{ Map() map[string]any }:
				store[a.Label()] = box.Map()
			case *SchemaAssertion:
				if j := box.JSON(); j != nil {
					if v, err := j.Value(); err == nil {
						store[a.Label()] = v
					}
				}
			case *ThumbnailAssertion:
				store[a.Label()] = box.Data()
			default:
				if enc, err := a.Encode(); err == nil {
					store[a.Label()] = enc
				}
			}
		}
		entry["assertion_store"] = store

		sig := m.Signature()
		if msg, err := sig.Message(); err == nil {
			if alg, err := msg.Algorithm(); err == nil {
				entry["signature.alg"] = alg.String()
			}
			if certs := msg.Certificates(); len(certs) > 0 {
				entry["signature.issuer"] = certs[0].Subject.String()
			}
		}
		if raw := sig.Raw(); raw != nil {
			entry["signature.length"] = len(raw)
		}
		manifests[m.Label()] = entry
	}
	return map[string]any{"manifests": manifests}
}
