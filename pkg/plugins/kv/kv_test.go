package kv

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/veldran/nexpr/pkg/expr"
	"github.com/veldran/nexpr/pkg/fold"
)

// stores returns one instance of each locally-runnable backend for shared
// contract tests. Redis runs against miniredis; Mongo needs a real
// deployment and has its own env-gated test.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rs, err := NewRedisStore(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { rs.Close(context.Background()) })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  rs,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, "k", []byte("hello")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			data, err := s.Get(ctx, "k")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(data) != "hello" {
				t.Errorf("Get = %q, want %q", data, "hello")
			}
		})
	}
}

func TestStoreGetMissing(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "absent")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Get error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, "k", []byte("v")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			existed, err := s.Delete(ctx, "k")
			if err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if !existed {
				t.Error("Delete existing key should report true")
			}
			existed, err = s.Delete(ctx, "k")
			if err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if existed {
				t.Error("Delete missing key should report false")
			}
		})
	}
}

func TestStoreIncr(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			n, err := s.Incr(ctx, "counter", 1)
			if err != nil {
				t.Fatalf("Incr: %v", err)
			}
			if n != 1 {
				t.Errorf("Incr from missing = %d, want 1", n)
			}
			n, err = s.Incr(ctx, "counter", 5)
			if err != nil {
				t.Fatalf("Incr: %v", err)
			}
			if n != 6 {
				t.Errorf("Incr = %d, want 6", n)
			}
			n, err = s.Incr(ctx, "counter", -2)
			if err != nil {
				t.Fatalf("Incr: %v", err)
			}
			if n != 4 {
				t.Errorf("Incr negative delta = %d, want 4", n)
			}
		})
	}
}

func TestStoreIncrConcurrent(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for range 20 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := s.Incr(ctx, "shared", 1); err != nil {
						t.Errorf("Incr: %v", err)
					}
				}()
			}
			wg.Wait()
			n, err := s.Incr(ctx, "shared", 0)
			if err != nil {
				t.Fatalf("Incr: %v", err)
			}
			if n != 20 {
				t.Errorf("final counter = %d, want 20", n)
			}
		})
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("NEXPR_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("NEXPR_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := NewMongoStore(ctx, uri, "nexpr_test", "kv")
	if err != nil {
		t.Fatalf("NewMongoStore: %v", err)
	}
	defer s.Close(ctx)

	if err := s.Set(ctx, "k", []byte("hello")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Get = %q, want %q", data, "hello")
	}

	if _, err := s.Delete(ctx, "counter"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	n, err := s.Incr(ctx, "counter", 3)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if n != 3 {
		t.Errorf("Incr = %d, want 3", n)
	}
	raw, err := s.Get(ctx, "counter")
	if err != nil {
		t.Fatalf("Get counter: %v", err)
	}
	if string(raw) != "3" {
		t.Errorf("Get counter = %q, want %q", raw, "3")
	}

	if _, err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

// evalRoot folds a single-root graph built by build against the kv
// interpreter.
func evalRoot(t *testing.T, store Store, build func(d *expr.DirtyExpr)) (cty.Value, error) {
	t.Helper()
	d := expr.NewDirty()
	build(d)
	g, err := d.Commit()
	if err != nil {
		t.Fatalf("Commit() = %v", err)
	}
	return fold.Fold(context.Background(), New(store), g)
}

func TestHandlersSetGetRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	want := cty.ObjectVal(map[string]cty.Value{
		"name":  cty.StringVal("ada"),
		"score": cty.NumberIntVal(42),
	})
	v, err := evalRoot(t, store, func(d *expr.DirtyExpr) {
		d.Root = d.AddNode(expr.Entry{Kind: "kv/set", Children: []expr.Child{
			expr.Lit(cty.StringVal("user")),
			expr.Lit(want),
		}})
	})
	if err != nil {
		t.Fatalf("kv/set: %v", err)
	}
	if !v.RawEquals(want) {
		t.Errorf("kv/set returned %#v, want the stored value", v)
	}

	got, err := evalRoot(t, store, func(d *expr.DirtyExpr) {
		d.Root = d.AddNode(expr.Entry{Kind: "kv/get", Children: []expr.Child{
			expr.Lit(cty.StringVal("user")),
		}})
	})
	if err != nil {
		t.Fatalf("kv/get: %v", err)
	}
	if !got.RawEquals(want) {
		t.Errorf("kv/get = %#v, want %#v", got, want)
	}
}

func TestHandlersGetMissingIsNull(t *testing.T) {
	v, err := evalRoot(t, NewMemoryStore(), func(d *expr.DirtyExpr) {
		d.Root = d.AddNode(expr.Entry{Kind: "kv/get", Children: []expr.Child{
			expr.Lit(cty.StringVal("absent")),
		}})
	})
	if err != nil {
		t.Fatalf("kv/get: %v", err)
	}
	if !v.IsNull() {
		t.Errorf("kv/get missing = %#v, want null", v)
	}
}

func TestHandlersDel(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Set(context.Background(), "k", []byte(`{"type":"string","value":"v"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, err := evalRoot(t, store, func(d *expr.DirtyExpr) {
		d.Root = d.AddNode(expr.Entry{Kind: "kv/del", Children: []expr.Child{
			expr.Lit(cty.StringVal("k")),
		}})
	})
	if err != nil {
		t.Fatalf("kv/del: %v", err)
	}
	if !v.RawEquals(cty.True) {
		t.Errorf("kv/del existing = %#v, want true", v)
	}

	v, err = evalRoot(t, store, func(d *expr.DirtyExpr) {
		d.Root = d.AddNode(expr.Entry{Kind: "kv/del", Children: []expr.Child{
			expr.Lit(cty.StringVal("k")),
		}})
	})
	if err != nil {
		t.Fatalf("kv/del: %v", err)
	}
	if !v.RawEquals(cty.False) {
		t.Errorf("kv/del missing = %#v, want false", v)
	}
}

func TestHandlersIncrThenGet(t *testing.T) {
	store := NewMemoryStore()

	v, err := evalRoot(t, store, func(d *expr.DirtyExpr) {
		d.Root = d.AddNode(expr.Entry{Kind: "kv/incr", Children: []expr.Child{
			expr.Lit(cty.StringVal("hits")),
			expr.Lit(cty.NumberIntVal(3)),
		}})
	})
	if err != nil {
		t.Fatalf("kv/incr: %v", err)
	}
	if !v.RawEquals(cty.NumberIntVal(3)) {
		t.Errorf("kv/incr = %#v, want 3", v)
	}

	// Default delta is 1.
	v, err = evalRoot(t, store, func(d *expr.DirtyExpr) {
		d.Root = d.AddNode(expr.Entry{Kind: "kv/incr", Children: []expr.Child{
			expr.Lit(cty.StringVal("hits")),
		}})
	})
	if err != nil {
		t.Fatalf("kv/incr: %v", err)
	}
	if !v.RawEquals(cty.NumberIntVal(4)) {
		t.Errorf("kv/incr default delta = %#v, want 4", v)
	}

	// The bare counter reads back as a number.
	v, err = evalRoot(t, store, func(d *expr.DirtyExpr) {
		d.Root = d.AddNode(expr.Entry{Kind: "kv/get", Children: []expr.Child{
			expr.Lit(cty.StringVal("hits")),
		}})
	})
	if err != nil {
		t.Fatalf("kv/get: %v", err)
	}
	if !v.RawEquals(cty.NumberIntVal(4)) {
		t.Errorf("kv/get counter = %#v, want 4", v)
	}
}

func TestHandlersAgainstRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer store.Close(context.Background())

	want := cty.StringVal("cached in redis")
	if _, err := evalRoot(t, store, func(d *expr.DirtyExpr) {
		d.Root = d.AddNode(expr.Entry{Kind: "kv/set", Children: []expr.Child{
			expr.Lit(cty.StringVal("greeting")),
			expr.Lit(want),
		}})
	}); err != nil {
		t.Fatalf("kv/set: %v", err)
	}

	got, err := evalRoot(t, store, func(d *expr.DirtyExpr) {
		d.Root = d.AddNode(expr.Entry{Kind: "kv/get", Children: []expr.Child{
			expr.Lit(cty.StringVal("greeting")),
		}})
	})
	if err != nil {
		t.Fatalf("kv/get: %v", err)
	}
	if !got.RawEquals(want) {
		t.Errorf("kv/get = %#v, want %#v", got, want)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		val  cty.Value
	}{
		{"string", cty.StringVal("hello")},
		{"number", cty.NumberIntVal(42)},
		{"bool", cty.True},
		{"list", cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)})},
		{"object", cty.ObjectVal(map[string]cty.Value{"a": cty.StringVal("x")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := encodeValue(tt.val)
			if err != nil {
				t.Fatalf("encodeValue: %v", err)
			}
			got, err := decodeValue(data)
			if err != nil {
				t.Fatalf("decodeValue: %v", err)
			}
			if !got.RawEquals(tt.val) {
				t.Errorf("round trip = %#v, want %#v", got, tt.val)
			}
		})
	}
}
