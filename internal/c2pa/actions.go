package c2pa

import (
	"fmt"

	"github.com/signedmedia/c2pa-go/internal/jumbf"
	"github.com/signedmedia/c2pa-go/internal/status"
)

// Action names with ingredient requirements (C2PA v1.2 section 10.3.2.1).
var (
	parentActions    = map[string]bool{"c2pa.opened": true, "c2pa.repackaged": true, "c2pa.transcoded": true}
	componentActions = map[string]bool{"c2pa.placed": true, "c2pa.removed": true}
)

// ActionsAssertion is the "c2pa.actions" assertion: the list of edits and
// provenance events applied to the asset.
type ActionsAssertion struct {
	jumbf.CBORContainerBox
}

// NewActionsAssertion builds an empty actions assertion.
func NewActionsAssertion() (*ActionsAssertion, error) {
	a := &ActionsAssertion{}
	if err := jumbf.InitCBORContainer(a, "cbor", "c2pa.actions", nil); err != nil {
		return nil, err
	}
	return a, nil
}

// Manifest returns the manifest containing this assertion, or nil.
func (a *ActionsAssertion) Manifest() *Manifest { return manifestOf(a) }

func (a *ActionsAssertion) cborMap() map[string]any {
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

// Add appends an action. The assertion must already be in a manifest. If an
// ingredient is cited it must be in the same manifest; its hashed URI is
// recorded in the action parameters and its instance ID on the action itself.
func (a *ActionsAssertion) Add(action string, ingredient *IngredientAssertion, parameters map[string]any) error {
	if action == "" {
		return fmt.Errorf("c2pa: action is required")
	}
	manifest := a.Manifest()
	if manifest == nil {
		return fmt.Errorf("c2pa: actions assertion is not in a manifest")
	}
	m := a.cborMap()
	entry := map[string]any{"action": action}
	if ingredient != nil {
		url := manifest.PathOf(ingredient)
		if url == "" || len(url) >= 12 && url[:12] == "self#jumbf=/" {
			return fmt.Errorf("c2pa: ingredient is not in this manifest")
		}
		if id := mapString(ingredient.cborMap(), "instanceID"); id != "" {
			entry["instanceID"] = id
		}
		if parameters == nil {
			parameters = map[string]any{}
		}
		ref := map[string]any{"url": url}
		if st := digestHashedURI(ref, manifest, "", true, true); st.IsError() {
			return fmt.Errorf("c2pa: hashing ingredient: %s", st)
		}
		parameters["ingredient"] = ref
	}
	if parameters != nil {
		entry["parameters"] = parameters
	}
	actions, _ := m["actions"].([]any)
	m["actions"] = append(actions, entry)
	a.CBOR().Dirty()
	return nil
}

// VerifyAssertion cross-checks each action that requires an ingredient: the
// ingredient reference must resolve within this manifest, carry the
// relationship the action demands, and its manifest reference (when present)
// must resolve.
func (a *ActionsAssertion) VerifyAssertion() ([]status.Status, error) {
	manifest := a.Manifest()
	if manifest == nil {
		return nil, fmt.Errorf("c2pa: actions assertion is not in a manifest")
	}
	var statuses []status.Status
	mismatch := func(format string, args ...any) {
		statuses = append(statuses, status.New(status.AssertionActionIngredientMismatch,
			fmt.Sprintf(format, args...), manifest.PathOf(a)))
	}
	for i, e := range mapList(a.cborMap(), "actions") {
		action, _ := e.(map[string]any)
		name := mapString(action, "action")
		if !parentActions[name] && !componentActions[name] {
			continue
		}
		url := mapString(mapMap(mapMap(action, "parameters"), "ingredient"), "url")
		box := manifest.Find(url)
		if box == nil {
			mismatch("action[%d] %q ingredient %q not found", i, name, url)
			continue
		}
		ingredient, ok := box.(*IngredientAssertion)
		if !ok || ingredient.Manifest() != manifest {
			mismatch("action[%d] %q ingredient %q in different manifest", i, name, url)
			continue
		}
		relationship := ingredient.Relationship()
		switch {
		case parentActions[name] && relationship != RelationshipParentOf:
			mismatch("action[%d] %q ingredient %q relationship %q", i, name, url, relationship)
		case componentActions[name] && relationship != RelationshipComponentOf:
			mismatch("action[%d] %q ingredient %q relationship %q", i, name, url, relationship)
		case mapMap(ingredient.cborMap(), "c2pa_manifest") != nil && ingredient.TargetManifest() == nil:
			mismatch("action[%d] %q ingredient %q manifest %q not found", i, name, url, ingredient.TargetManifestURL())
		}
	}
	return statuses, nil
}
