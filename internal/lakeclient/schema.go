package lakeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/aborroy/alfresco-lake-bridge/internal/errs"
)

const repositoryModelPath = "/api/repository/model"

// repositoryModel is the subset of the content lake's model document this
// bridge provisions: schemas, types, and mixin types, each keyed by name.
type repositoryModel struct {
	Schemas    map[string]json.RawMessage `json:"schemas"`
	Types      map[string]json.RawMessage `json:"types"`
	MixinTypes map[string]json.RawMessage `json:"mixinTypes"`
}

func (c *Client) fetchModel(ctx context.Context) (repositoryModel, error) {
	req, err := c.newRequest(ctx, http.MethodGet, repositoryModelPath, nil, nil)
	if err != nil {
		return repositoryModel{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return repositoryModel{}, err
	}
	defer resp.Body.Close()
	if err := classify(resp); err != nil {
		return repositoryModel{}, err
	}
	var m repositoryModel
	if err := decodeJSON(resp.Body, &m); err != nil {
		return repositoryModel{}, err
	}
	if m.Schemas == nil {
		m.Schemas = map[string]json.RawMessage{}
	}
	if m.Types == nil {
		m.Types = map[string]json.RawMessage{}
	}
	if m.MixinTypes == nil {
		m.MixinTypes = map[string]json.RawMessage{}
	}
	return m, nil
}

// Fragments groups the named model fragments to provision, keyed by the
// model section they belong in.
type Fragments struct {
	Schemas    map[string]json.RawMessage
	Types      map[string]json.RawMessage
	MixinTypes map[string]json.RawMessage
}

// addOnlyPatch computes a JSON-Patch that adds every fragment section is
// missing from the current model, never replacing or removing an existing
// definition.
func addOnlyPatch(current repositoryModel, want Fragments) []PatchOp {
	var ops []PatchOp
	appendMissing := func(section string, existing map[string]json.RawMessage, wanted map[string]json.RawMessage) {
		names := make([]string, 0, len(wanted))
		for name := range wanted {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, ok := existing[name]; ok {
				continue
			}
			var v any
			_ = json.Unmarshal(wanted[name], &v)
			ops = append(ops, PatchOp{Op: "add", Path: "/" + section + "/" + name, Value: v})
		}
	}
	appendMissing("schemas", current.Schemas, want.Schemas)
	appendMissing("types", current.Types, want.Types)
	appendMissing("mixinTypes", current.MixinTypes, want.MixinTypes)
	return ops
}

func (c *Client) applyModelPatch(ctx context.Context, ops []PatchOp) error {
	body, err := marshalBody(ops)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPatch, repositoryModelPath, nil, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json-patch+json")
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return classify(resp)
}

// EnsureModel provisions any model fragments missing from the content lake
// using an add-only JSON-Patch, then re-fetches the model and verifies every
// wanted fragment is now present. Running it twice in a row is a no-op the
// second time: computing an empty patch is itself success.
func (c *Client) EnsureModel(ctx context.Context, want Fragments) error {
	current, err := c.fetchModel(ctx)
	if err != nil {
		return fmt.Errorf("fetch repository model: %w", err)
	}

	ops := addOnlyPatch(current, want)
	if len(ops) == 0 {
		return nil
	}
	if err := c.applyModelPatch(ctx, ops); err != nil {
		return fmt.Errorf("apply model patch: %w", err)
	}

	after, err := c.fetchModel(ctx)
	if err != nil {
		return fmt.Errorf("verify repository model: %w", err)
	}
	if missing := addOnlyPatch(after, want); len(missing) > 0 {
		return fmt.Errorf("%d model fragments still missing after bootstrap: %w", len(missing), errs.ErrBootstrapIncomplete)
	}
	return nil
}
