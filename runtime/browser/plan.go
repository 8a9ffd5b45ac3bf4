package browser

import (
	"fmt"
	"time"
)

type (
	// Action is one primitive in a declarative form plan.
	Action string

	// Step is a single (selector, action, value) instruction. The pool
	// owns the underlying browser primitives; adapters only declare plans.
	Step struct {
		Selector string
		Action   Action
		Value    string
	}

	// Plan is the declarative fill-and-submit sequence an adapter hands to
	// the pool.
	Plan []Step
)

const (
	// ActionFill sets a field's value. In fast mode the value is assigned
	// directly; otherwise it is typed key by key.
	ActionFill Action = "fill"
	// ActionClick clicks the first node matching the selector.
	ActionClick Action = "click"
	// ActionSelect picks an option value in a <select>.
	ActionSelect Action = "select"
	// ActionWaitVisible blocks until the selector is visible.
	ActionWaitVisible Action = "wait_visible"
	// ActionSleep pauses for the duration in Value (e.g. "500ms").
	ActionSleep Action = "sleep"
	// ActionScroll scrolls the viewport down by the pixel count in Value.
	ActionScroll Action = "scroll"
)

// Validate rejects plans with unknown actions or missing operands before
// any browser context is borrowed.
func (p Plan) Validate() error {
	for i, step := range p {
		switch step.Action {
		case ActionFill, ActionSelect:
			if step.Selector == "" {
				return fmt.Errorf("step %d: %s requires a selector", i, step.Action)
			}
		case ActionClick, ActionWaitVisible:
			if step.Selector == "" {
				return fmt.Errorf("step %d: %s requires a selector", i, step.Action)
			}
		case ActionSleep:
			if _, err := time.ParseDuration(step.Value); err != nil {
				return fmt.Errorf("step %d: sleep value %q: %w", i, step.Value, err)
			}
		case ActionScroll:
		default:
			return fmt.Errorf("step %d: unknown action %q", i, step.Action)
		}
	}
	return nil
}
