package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/veldran/nexpr/pkg/fold"
)

// envelope is the wire form of a stored value: the value's JSON encoding
// plus its type, so heterogeneous values round-trip without a schema.
type envelope struct {
	Type  json.RawMessage `json:"type"`
	Value json.RawMessage `json:"value"`
}

// New returns the kv/* interpreter bound to the given backend.
func New(store Store) fold.Interpreter {
	h := &handlers{store: store}
	return fold.Interpreter{
		"kv/get":  h.get,
		"kv/set":  h.set,
		"kv/del":  h.del,
		"kv/incr": h.incr,
	}
}

type handlers struct {
	store Store
}

func (h *handlers) key(ctx context.Context, c *fold.Call) (string, error) {
	v, err := c.Arg(ctx, 0)
	if err != nil {
		return "", err
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("%s: key: %w", c.Kind(), err)
	}
	if s.IsNull() {
		return "", fmt.Errorf("%s: key must not be null", c.Kind())
	}
	return s.AsString(), nil
}

func (h *handlers) get(ctx context.Context, c *fold.Call) (cty.Value, error) {
	key, err := h.key(ctx, c)
	if err != nil {
		return cty.NilVal, err
	}
	data, err := h.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	if err != nil {
		return cty.NilVal, err
	}
	return decodeValue(data)
}

func (h *handlers) set(ctx context.Context, c *fold.Call) (cty.Value, error) {
	key, err := h.key(ctx, c)
	if err != nil {
		return cty.NilVal, err
	}
	v, err := c.Arg(ctx, 1)
	if err != nil {
		return cty.NilVal, err
	}
	data, err := encodeValue(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%s: %w", c.Kind(), err)
	}
	if err := h.store.Set(ctx, key, data); err != nil {
		return cty.NilVal, err
	}
	return v, nil
}

func (h *handlers) del(ctx context.Context, c *fold.Call) (cty.Value, error) {
	key, err := h.key(ctx, c)
	if err != nil {
		return cty.NilVal, err
	}
	existed, err := h.store.Delete(ctx, key)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.BoolVal(existed), nil
}

func (h *handlers) incr(ctx context.Context, c *fold.Call) (cty.Value, error) {
	key, err := h.key(ctx, c)
	if err != nil {
		return cty.NilVal, err
	}
	delta := int64(1)
	if c.Len() > 1 {
		v, err := c.Arg(ctx, 1)
		if err != nil {
			return cty.NilVal, err
		}
		n, err := convert.Convert(v, cty.Number)
		if err != nil {
			return cty.NilVal, fmt.Errorf("%s: delta: %w", c.Kind(), err)
		}
		delta, _ = n.AsBigFloat().Int64()
	}
	n, err := h.store.Incr(ctx, key, delta)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.NumberIntVal(n), nil
}

// encodeValue serializes a value into the envelope wire form.
func encodeValue(v cty.Value) ([]byte, error) {
	ty, err := ctyjson.MarshalType(v.Type())
	if err != nil {
		return nil, err
	}
	val, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: ty, Value: val})
}

// decodeValue deserializes envelope bytes back into a value. Bare
// integers, as written server-side by Incr backends, decode as numbers.
func decodeValue(data []byte) (cty.Value, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Type != nil {
		ty, err := ctyjson.UnmarshalType(env.Type)
		if err != nil {
			return cty.NilVal, err
		}
		return ctyjson.Unmarshal(env.Value, ty)
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return cty.ParseNumberVal(n.String())
	}
	return cty.NilVal, fmt.Errorf("undecodable stored value %q", data)
}
