package toolkit

import (
	"github.com/adliye/lexgate/legal"
)

type (
	// Envelope is the uniform result of every tool call. Exactly one of
	// Payload and Error is populated; Diagnostics always is.
	Envelope struct {
		OK          bool        `json:"ok"`
		Payload     any         `json:"payload,omitempty"`
		Error       *ErrorInfo  `json:"error,omitempty"`
		Diagnostics Diagnostics `json:"diagnostics"`
	}

	// ErrorInfo is the caller-visible failure shape: the closed kind, a
	// one-line message and the backend the failure is attributed to.
	ErrorInfo struct {
		Kind    legal.Kind `json:"kind"`
		Message string     `json:"message"`
		// Field is the argument path of an InvalidArgument failure.
		Field    string `json:"field,omitempty"`
		SourceID string `json:"source_id,omitempty"`
	}

	// Diagnostics carries the per-call telemetry counters.
	Diagnostics struct {
		CorrelationID string `json:"correlation_id"`
		Tool          string `json:"tool"`
		DurationMS    int64  `json:"duration_ms"`
		InputTokens   int    `json:"input_tokens"`
		OutputTokens  int    `json:"output_tokens"`
	}
)

func okEnvelope(payload any, diag Diagnostics) Envelope {
	return Envelope{OK: true, Payload: payload, Diagnostics: diag}
}

func errEnvelope(err error, diag Diagnostics) Envelope {
	f := legal.AsFault(err)
	return Envelope{
		OK: false,
		Error: &ErrorInfo{
			Kind:     f.Kind,
			Message:  f.Message,
			Field:    f.Field,
			SourceID: string(f.Source),
		},
		Diagnostics: diag,
	}
}
