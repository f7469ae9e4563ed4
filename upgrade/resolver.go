package upgrade

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/lens"
	"github.com/wormhole-foundation/suigov/ptb"
)

// PackageField is where the state object keeps the id of the current package.
const PackageField = "upgrade_cap.fields.package"

// Resolver reads the current package id from the on-ledger state object. The id
// changes with every upgrade so it is looked up before each transaction, never cached.
type Resolver struct {
	api lens.API
}

func NewResolver(api lens.API) *Resolver {
	return &Resolver{api: api}
}

func (r *Resolver) Resolve(ctx context.Context, stateID ptb.ObjectID) (ptb.ObjectID, error) {
	obj, err := r.api.GetObject(ctx, stateID, lens.ObjectOptions{ShowContent: true})
	if err != nil {
		return ptb.ObjectID{}, xerrors.Errorf("get state %s: %v: %w", stateID, err, ErrResolution)
	}
	return PackageFromState(obj)
}

// PackageFromState extracts the package id from the content of a state object.
func PackageFromState(obj *lens.Object) (ptb.ObjectID, error) {
	if obj == nil || obj.Content == nil {
		return ptb.ObjectID{}, xerrors.Errorf("state has no content: %w", ErrResolution)
	}
	if obj.Content.DataType != lens.DataTypeMoveObject {
		return ptb.ObjectID{}, xerrors.Errorf("state is a %q, not a move object: %w", obj.Content.DataType, ErrResolution)
	}
	value, err := lookupField[string](obj.Content.Fields, PackageField)
	if err != nil {
		return ptb.ObjectID{}, xerrors.Errorf("%s: %v: %w", PackageField, err, ErrResolution)
	}
	id, err := ptb.ParseObjectID(value)
	if err != nil {
		return ptb.ObjectID{}, xerrors.Errorf("%s: %v: %w", PackageField, err, ErrResolution)
	}
	return id, nil
}

// lookupField walks a dot separated path of object keys and returns the value at its end.
func lookupField[T any](data json.RawMessage, path string) (T, error) {
	var zero T

	var node interface{}
	if err := json.Unmarshal(data, &node); err != nil {
		return zero, err
	}
	for _, key := range strings.Split(path, ".") {
		obj, ok := node.(map[string]interface{})
		if !ok {
			return zero, xerrors.Errorf("parent of %q is not an object", key)
		}
		if node, ok = obj[key]; !ok || node == nil {
			return zero, xerrors.Errorf("key %q not found", key)
		}
	}
	v, ok := node.(T)
	if !ok {
		return zero, xerrors.Errorf("value is a %T", node)
	}
	return v, nil
}
