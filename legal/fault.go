package legal

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type (
	// Kind is the closed classification every failure path maps to.
	Kind string

	// Fault is the classified error carried across adapter boundaries. The
	// dispatcher attaches Source and Op without changing the Kind; adapters
	// never wrap one kind in another.
	Fault struct {
		Kind    Kind
		Source  SourceID
		Op      string
		Message string
		// Field is the argument path for InvalidArgument faults.
		Field string
		// Status is the backend HTTP status for BackendFailure faults.
		Status int
		// Excerpt is a short slice of the offending response body.
		Excerpt string
		// Container is the declared container kind for ParseFailure faults.
		Container string
		Cause     error
	}
)

const (
	KindInvalidArgument   Kind = "InvalidArgument"
	KindNotFound          Kind = "NotFound"
	KindAuthExpired       Kind = "AuthExpired"
	KindTimeout           Kind = "Timeout"
	KindBackendFailure    Kind = "BackendFailure"
	KindAccessDenied      Kind = "AccessDenied"
	KindResourceExhausted Kind = "ResourceExhausted"
	KindParseFailure      Kind = "ParseFailure"
)

// Error renders the fault as "<kind>: <message>" with source and op when
// the dispatcher has attached them.
func (f *Fault) Error() string {
	if f.Source != "" && f.Op != "" {
		return fmt.Sprintf("%s: %s (%s/%s)", f.Kind, f.Message, f.Source, f.Op)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (f *Fault) Unwrap() error { return f.Cause }

// Invalidf builds an InvalidArgument fault carrying the failing field path.
func Invalidf(field, format string, args ...any) *Fault {
	return &Fault{Kind: KindInvalidArgument, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFound fault.
func NotFoundf(format string, args ...any) *Fault {
	return &Fault{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// AuthExpiredf builds an AuthExpired fault. The session pool recovers from
// it at most once before it is surfaced as BackendFailure.
func AuthExpiredf(format string, args ...any) *Fault {
	return &Fault{Kind: KindAuthExpired, Message: fmt.Sprintf(format, args...)}
}

// Timeoutf builds a Timeout fault.
func Timeoutf(format string, args ...any) *Fault {
	return &Fault{Kind: KindTimeout, Message: fmt.Sprintf(format, args...)}
}

// BackendFailuref builds a BackendFailure fault with the backend status code
// and a short excerpt of the offending body.
func BackendFailuref(status int, excerpt, format string, args ...any) *Fault {
	if len(excerpt) > 200 {
		excerpt = excerpt[:200]
	}
	return &Fault{Kind: KindBackendFailure, Status: status, Excerpt: excerpt, Message: fmt.Sprintf(format, args...)}
}

// AccessDeniedf builds an AccessDenied fault (bot challenge, captcha or
// rate-limit page).
func AccessDeniedf(format string, args ...any) *Fault {
	return &Fault{Kind: KindAccessDenied, Message: fmt.Sprintf(format, args...)}
}

// Exhaustedf builds a ResourceExhausted fault.
func Exhaustedf(format string, args ...any) *Fault {
	return &Fault{Kind: KindResourceExhausted, Message: fmt.Sprintf(format, args...)}
}

// ParseFailuref builds a ParseFailure fault tagged with the container kind.
func ParseFailuref(container string, cause error, format string, args ...any) *Fault {
	return &Fault{Kind: KindParseFailure, Container: container, Cause: cause, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies err. Context deadline and net timeout errors report
// Timeout; anything else unclassified reports BackendFailure.
func KindOf(err error) Kind {
	return AsFault(err).Kind
}

// AsFault extracts the fault from err, synthesizing one for unclassified
// errors so the envelope always carries a kind.
func AsFault(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err) {
		return &Fault{Kind: KindTimeout, Message: err.Error(), Cause: err}
	}
	return &Fault{Kind: KindBackendFailure, Message: err.Error(), Cause: err}
}

// Annotate attaches source and op to the fault chain without changing the
// kind. Non-fault errors are first classified via AsFault.
func Annotate(err error, source SourceID, op string) *Fault {
	f := AsFault(err)
	if f.Source == "" {
		f.Source = source
	}
	if f.Op == "" {
		f.Op = op
	}
	return f
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
