// Package web provides the web/* operation kinds: HTTP bindings.
//
// Kinds and child shapes:
//
//	web/get [url]   fetches url with GET and returns the body as a string
//
// Requests go through [httputil.Client], which retries transient failures
// and caches responses, so a graph that fetches the same URL from several
// nodes hits the network once even across folds.
package web

import (
	"context"
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/veldran/nexpr/pkg/cache"
	"github.com/veldran/nexpr/pkg/fold"
	"github.com/veldran/nexpr/pkg/httputil"
)

// defaultTTL is how long fetched responses stay cached when the caller
// doesn't configure a client.
const defaultTTL = 15 * time.Minute

// New returns the web/* interpreter using the given client.
func New(client *httputil.Client) fold.Interpreter {
	h := &handlers{client: client}
	return fold.Interpreter{
		"web/get": h.get,
	}
}

// NewDefault returns the web/* interpreter with a memory-cached client
// and no custom headers.
func NewDefault() fold.Interpreter {
	return New(httputil.NewClient(cache.NewMemoryCache(), defaultTTL, nil))
}

type handlers struct {
	client *httputil.Client
}

func (h *handlers) get(ctx context.Context, c *fold.Call) (cty.Value, error) {
	v, err := c.Arg(ctx, 0)
	if err != nil {
		return cty.NilVal, err
	}
	u, err := convert.Convert(v, cty.String)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%s: url: %w", c.Kind(), err)
	}
	if u.IsNull() {
		return cty.NilVal, fmt.Errorf("%s: url must not be null", c.Kind())
	}
	body, err := h.client.GetText(ctx, u.AsString())
	if err != nil {
		return cty.NilVal, err
	}
	return cty.StringVal(body), nil
}
