// Package toolkit is the dispatch layer: an immutable registry of tool
// descriptors and a dispatcher that validates arguments, enforces deadlines
// and wraps every call in a uniform envelope.
package toolkit

import (
	"context"
	"encoding/json"
	"time"
)

type (
	// Handler executes one tool call. Arguments arrive pre-validated
	// against the descriptor's schema; the returned payload must be
	// JSON-serializable and free of backend internals.
	Handler func(ctx context.Context, args json.RawMessage) (any, error)

	// Annotations mirror the MCP tool hints. Every tool this gateway
	// exposes is a read-only, idempotent view over an open-world corpus.
	Annotations struct {
		ReadOnly   bool
		Idempotent bool
		OpenWorld  bool
	}

	// Descriptor binds a tool name to its adapter capability. Schemas are
	// declared as data: raw JSON Schema documents compiled once at
	// registry construction.
	Descriptor struct {
		Name         string
		Description  string
		ArgsSchema   json.RawMessage
		ResultSchema json.RawMessage
		Annotations  Annotations
		// Timeout is the adapter's default deadline for one call. The
		// effective deadline is the earlier of this and the caller's.
		Timeout time.Duration
		Handler Handler
	}
)

// DefaultTimeout applies to descriptors registered without one.
const DefaultTimeout = 45 * time.Second

// ReadOnlyIdempotent is the annotation set shared by the whole tool surface.
func ReadOnlyIdempotent() Annotations {
	return Annotations{ReadOnly: true, Idempotent: true, OpenWorld: true}
}
