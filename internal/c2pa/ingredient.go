package c2pa

import (
	"fmt"

	"github.com/signedmedia/c2pa-go/internal/jumbf"
	"github.com/signedmedia/c2pa-go/internal/status"
)

// Ingredient relationships.
const (
	RelationshipParentOf    = "parentOf"
	RelationshipComponentOf = "componentOf"
)

// IngredientAssertion is the "c2pa.ingredient" assertion, referencing a prior
// manifest in the same store together with the validation outcome recorded
// when it was ingested.
type IngredientAssertion struct {
	jumbf.CBORContainerBox
}

// NewIngredientAssertion builds an empty ingredient assertion.
func NewIngredientAssertion() (*IngredientAssertion, error) {
	a := &IngredientAssertion{}
	if err := jumbf.InitCBORContainer(a, "cbor", "c2pa.ingredient", nil); err != nil {
		return nil, err
	}
	return a, nil
}

// Manifest returns the manifest containing this assertion, or nil.
func (a *IngredientAssertion) Manifest() *Manifest { return manifestOf(a) }

func (a *IngredientAssertion) cborMap() map[string]any {
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

// Relationship returns "parentOf" or "componentOf".
func (a *IngredientAssertion) Relationship() string {
	return mapString(a.cborMap(), "relationship")
}

// TargetManifestURL returns the hashed-URI url of the referenced manifest,
// or "".
func (a *IngredientAssertion) TargetManifestURL() string {
	return mapString(mapMap(a.cborMap(), "c2pa_manifest"), "url")
}

// TargetManifest resolves the referenced manifest, or nil.
func (a *IngredientAssertion) TargetManifest() *Manifest {
	m := a.Manifest()
	if m == nil {
		return nil
	}
	box := m.Find(a.TargetManifestURL())
	target, _ := box.(*Manifest)
	return target
}

// SetTargetManifest points this ingredient at a manifest already in the same
// store, with the given relationship. The recorded statuses (from verifying
// the prior manifest) are stored as validationStatus.
func (a *IngredientAssertion) SetTargetManifest(relationship string, target *Manifest, recorded []status.Status) error {
	own := a.Manifest()
	if target == nil || own == nil || target == own || target.Parent() != own.Parent() {
		return fmt.Errorf("c2pa: ingredient target must be a different manifest in the same store")
	}
	url := own.PathOf(target)
	if url == "" {
		return fmt.Errorf("c2pa: no path from this manifest to the target")
	}
	m := a.cborMap()
	for _, key := range []string{"c2pa_manifest", "dc:format", "dc:title", "instanceID", "thumbnail", "validationStatus"} {
		delete(m, key)
	}
	m["relationship"] = relationship
	entry := map[string]any{"url": url}
	if st := digestHashedURI(entry, target, "", true, true); st.IsError() {
		return fmt.Errorf("c2pa: hashing target manifest: %s", st)
	}
	m["c2pa_manifest"] = entry
	targetClaim := target.Claim().cborMap()
	for _, key := range []string{"dc:format", "dc:title", "instanceID"} {
		if v, ok := targetClaim[key]; ok {
			m[key] = v
		}
	}
	if len(recorded) > 0 {
		list := make([]any, 0, len(recorded))
		for _, st := range recorded {
			list = append(list, st.ToMap())
		}
		m["validationStatus"] = list
	}
	a.CBOR().Dirty()
	return nil
}

// ValidationStatus returns the statuses recorded when the ingredient was
// ingested.
func (a *IngredientAssertion) ValidationStatus() []status.Status {
	var out []status.Status
	for _, e := range mapList(a.cborMap(), "validationStatus") {
		if entry, ok := e.(map[string]any); ok {
			out = append(out, status.FromMap(entry))
		}
	}
	return out
}

// VerifyAssertion checks parentOf uniqueness across the manifest and replays
// recorded validation failures from the ingested manifest. Ingredient
// manifests are not re-validated recursively; the recorded validationStatus
// stands in for that.
func (a *IngredientAssertion) VerifyAssertion() ([]status.Status, error) {
	manifest := a.Manifest()
	if manifest == nil {
		return nil, fmt.Errorf("c2pa: ingredient assertion is not in a manifest")
	}
	var statuses []status.Status

	parents := 0
	for _, other := range manifest.Assertions() {
		if ing, ok := other.(*IngredientAssertion); ok && ing.Relationship() == RelationshipParentOf {
			parents++
		}
	}
	if parents > 1 {
		statuses = append(statuses, status.New(status.ManifestMultipleParents,
			`manifest has multiple "parentOf" c2pa.ingredient assertions`, manifest.PathOf(a)))
		return statuses, nil
	}

	if mapMap(a.cborMap(), "c2pa_manifest") != nil {
		if a.TargetManifest() == nil {
			statuses = append(statuses, status.New(status.ClaimMissing,
				fmt.Sprintf("%q not in manifest", a.TargetManifestURL()), manifest.PathOf(a)))
			return statuses, nil
		}
		for _, st := range a.ValidationStatus() {
			if st.IsError() {
				replay := status.New(status.IngredientHashedURIMismatch,
					fmt.Sprintf("referenced ingredient at %q validationStatus has error", a.TargetManifestURL()),
					manifest.PathOf(a))
				replay.Referenced = &st
				statuses = append(statuses, replay)
			}
		}
	}
	return statuses, nil
}
