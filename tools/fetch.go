package tools

import (
	"context"
	"encoding/json"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/toolkit"
)

// fetchArgs is shared by every document tool: the opaque handle a search
// returned plus the 1-based chunk to extract.
type fetchArgs struct {
	Handle     string `json:"handle"`
	ChunkIndex int    `json:"chunk_index"`
}

var fetchArgsSchema = schema(map[string]any{
	"handle": strMin("Opaque document handle from a search result.", 1),
	// No minimum: out-of-range indices clamp on both ends, they never fail.
	"chunk_index": map[string]any{"type": "integer", "description": "1-based Markdown chunk to return; out-of-range values clamp."},
}, "handle")

// fetchHandler routes a handle to its adapter. A non-empty want pins the
// tool to one backend and rejects handles from any other.
func (c *Catalog) fetchHandler(want legal.SourceID) toolkit.Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var a fetchArgs
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, legal.Invalidf("", "arguments are not a JSON object: %v", err)
		}
		h, err := legal.ParseHandle(a.Handle)
		if err != nil {
			return nil, err
		}
		if want != "" && h.Source != want {
			return nil, legal.Invalidf("handle", "handle names backend %s, this tool serves %s", h.Source, want)
		}
		adapter, ok := c.set.Get(h.Source)
		if !ok {
			return nil, legal.NotFoundf("backend %s is not enabled", h.Source)
		}
		if a.ChunkIndex < 1 {
			a.ChunkIndex = 1
		}
		return adapter.Fetch(ctx, h, a.ChunkIndex)
	}
}

func (c *Catalog) healthHandler() toolkit.Handler {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		return c.prober.Check(ctx), nil
	}
}
