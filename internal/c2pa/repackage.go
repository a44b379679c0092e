package c2pa

import (
	"fmt"

	"github.com/signedmedia/c2pa-go/internal/jumbf"
	"github.com/signedmedia/c2pa-go/internal/status"
)

// Repackage wraps the manifests of a prior store into the new manifest's
// provenance: every prior manifest is duplicated into the new store ahead of
// the new manifest, a parentOf ingredient referencing the prior active
// manifest records its verification outcome, and a c2pa.actions assertion
// gains a c2pa.repackaged action citing that ingredient.
func Repackage(manifest *Manifest, prior *Store, priorStatus []status.Status) error {
	if manifest.Parent() == nil {
		return fmt.Errorf("c2pa: manifest must be in a store before repackaging")
	}
	factory := NewFactory()
	var last *Manifest
	for _, mf := range prior.Manifests() {
		dup, err := jumbf.Duplicate(mf, factory)
		if err != nil {
			return fmt.Errorf("c2pa: duplicating prior manifest %q: %w", mf.Label(), err)
		}
		dupManifest, ok := dup.(*Manifest)
		if !ok {
			return fmt.Errorf("c2pa: duplicated manifest parsed as %T", dup)
		}
		if err := dupManifest.InsertBefore(manifest); err != nil {
			return err
		}
		last = dupManifest
	}
	if last == nil {
		return fmt.Errorf("c2pa: prior store has no manifests")
	}

	ingredient, err := NewIngredientAssertion()
	if err != nil {
		return err
	}
	if err := manifest.AddAssertion(ingredient); err != nil {
		return err
	}
	if err := ingredient.SetTargetManifest(RelationshipParentOf, last, priorStatus); err != nil {
		return err
	}

	actions, err := NewActionsAssertion()
	if err != nil {
		return err
	}
	if err := manifest.AddAssertion(actions); err != nil {
		return err
	}
	return actions.Add("c2pa.repackaged", ingredient, nil)
}
