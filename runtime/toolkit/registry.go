package toolkit

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Registry is the immutable tool table. It is populated once at startup and
// read lock-free afterwards.
type Registry struct {
	entries map[string]*entry
	names   []string
}

type entry struct {
	desc   Descriptor
	schema *jsonschema.Schema
}

// NewRegistry compiles every descriptor's argument schema and freezes the
// table. Duplicate names, schema errors and mutating tools are construction
// failures: a gateway that cannot prove its surface read-only must not start.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{entries: make(map[string]*entry, len(descriptors))}
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("descriptor with empty name")
		}
		if _, dup := r.entries[d.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", d.Name)
		}
		if d.Handler == nil {
			return nil, fmt.Errorf("tool %q: nil handler", d.Name)
		}
		if !d.Annotations.ReadOnly {
			return nil, fmt.Errorf("tool %q declares read_only=false; this gateway exposes no mutating operations", d.Name)
		}
		if d.Timeout <= 0 {
			d.Timeout = DefaultTimeout
		}
		schema, err := compileSchema(d.Name, d.ArgsSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", d.Name, err)
		}
		r.entries[d.Name] = &entry{desc: d, schema: schema}
		r.names = append(r.names, d.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Describe returns the descriptor for name.
func (r *Registry) Describe(name string) (Descriptor, bool) {
	e, ok := r.entries[name]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

func (r *Registry) lookup(name string) (*entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

func compileSchema(name string, raw []byte) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty argument schema")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	resource := name + ".schema.json"
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
