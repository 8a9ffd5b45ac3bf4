package tools

import (
	"encoding/json"
	"sort"

	"github.com/adliye/lexgate/legal"
)

// Argument schemas are built as data, marshaled once at catalog construction
// and compiled by the registry. Every schema closes its property set:
// unknown argument names are InvalidArgument, not silently ignored.

func schema(props map[string]any, required ...string) json.RawMessage {
	doc := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(err) // static schema tables only
	}
	return raw
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func strMin(desc string, minLength int) map[string]any {
	return map[string]any{"type": "string", "minLength": minLength, "description": desc}
}

func strEnum(desc string, values ...string) map[string]any {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return map[string]any{"type": "string", "enum": enum, "description": desc}
}

func isoDate(desc string) map[string]any {
	return map[string]any{
		"type":        "string",
		"pattern":     `^\d{4}-\d{2}-\d{2}$`,
		"description": desc,
	}
}

func intMin(desc string, minimum int) map[string]any {
	return map[string]any{"type": "integer", "minimum": minimum, "description": desc}
}

func intRange(desc string, minimum, maximum int) map[string]any {
	return map[string]any{"type": "integer", "minimum": minimum, "maximum": maximum, "description": desc}
}

func strArray(desc string, item map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": item, "description": desc}
}

// chamberEnum lists the closed chamber-code vocabulary in stable order.
func chamberEnum(desc string) map[string]any {
	codes := legal.ChamberCodes()
	values := make([]string, len(codes))
	for i, c := range codes {
		values[i] = string(c)
	}
	sort.Strings(values)
	return strEnum(desc, values...)
}

// pagingProps is the shared pagination vocabulary.
func pagingProps(props map[string]any) map[string]any {
	props["page_index"] = intMin("1-based page number.", 1)
	props["page_size"] = intRange("Results per page.", 1, legal.MaxPageSize)
	return props
}

// dateProps adds the inclusive decision-date range bounds.
func dateProps(props map[string]any) map[string]any {
	props["date_start"] = isoDate("Range start, inclusive, YYYY-MM-DD.")
	props["date_end"] = isoDate("Range end, inclusive, YYYY-MM-DD.")
	return props
}

// caseNumberProps adds the esas/karar numbering tuple filters.
func caseNumberProps(props map[string]any) map[string]any {
	props["case_year"] = intMin("Case (esas) year.", 1900)
	props["case_seq"] = intMin("Case (esas) sequence number.", 1)
	props["decision_year"] = intMin("Decision (karar) year.", 1900)
	props["decision_seq"] = intMin("Decision (karar) sequence number.", 1)
	return props
}

// Result schemas are coarse contracts; the precise shapes live on the
// payload types' json tags.
var searchResultSchema = schema(map[string]any{
	"source_id":     str("Backend that produced the page."),
	"subtype":       str("Decision subtype, when the backend has several."),
	"total_records": map[string]any{"type": []any{"integer", "null"}, "description": "Backend-reported total; null when not exposed."},
	"page_index":    intMin("", 1),
	"page_size":     intMin("", 1),
	"entries":       map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
})

var documentResultSchema = schema(map[string]any{
	"handle":          str("Opaque re-fetch token."),
	"source_url":      str("Document origin."),
	"chunk_index":     intMin("Clamped, 1-based.", 1),
	"total_chunks":    intMin("", 1),
	"chunk_text":      str("One Markdown chunk."),
	"is_paginated":    map[string]any{"type": "boolean"},
	"full_char_count": intMin("", 0),
})

var healthResultSchema = schema(map[string]any{
	"status":     strEnum("Aggregate status.", "healthy", "degraded", "unhealthy"),
	"checked_at": str("UTC timestamp."),
	"backends":   map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
})
