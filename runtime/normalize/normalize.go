// Package normalize turns backend decision documents (HTML fragments, full
// HTML pages or PDFs) into paginated Markdown with stable chunk offsets.
package normalize

import (
	"bytes"
	"html"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/adliye/lexgate/legal"
)

type (
	// Container declares how the source bytes are wrapped.
	Container string

	// Normalizer converts documents to Markdown and paginates them. A
	// single Normalizer is shared by all adapters; it holds no per-document
	// state and never mutates backend state.
	Normalizer struct {
		chunkSize int
		tables    *converter.Converter
	}

	// Option configures a Normalizer.
	Option func(*Normalizer)

	// Result is a full converted document before pagination.
	Result struct {
		Markdown string
	}
)

const (
	ContainerHTMLFragment Container = "html_fragment"
	ContainerHTMLPage     Container = "html_page"
	ContainerPDF          Container = "pdf"
)

// DefaultChunkSize is the fixed pagination window in Unicode characters.
const DefaultChunkSize = 5000

// WithChunkSize overrides the pagination window. Values below 1 keep the
// default.
func WithChunkSize(size int) Option {
	return func(n *Normalizer) {
		if size > 0 {
			n.chunkSize = size
		}
	}
}

// New constructs a Normalizer. The table-aware converter is built once; the
// plugin-free default path goes through the package-level converter.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{chunkSize: DefaultChunkSize}
	for _, o := range opts {
		if o != nil {
			o(n)
		}
	}
	n.tables = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return n
}

// ChunkSize returns the pagination window in characters.
func (n *Normalizer) ChunkSize() int { return n.chunkSize }

// Render converts source bytes into Markdown. withTables enables the table
// plugin for backends known to embed tabular decisions. Conversion never
// touches the filesystem: some backends embed document ids in paths long
// enough to exceed filename limits.
func (n *Normalizer) Render(input []byte, container Container, withTables bool) (Result, error) {
	switch container {
	case ContainerHTMLFragment, ContainerHTMLPage:
		md, err := n.renderHTML(input, withTables)
		if err != nil {
			return Result{}, legal.ParseFailuref(string(container), err, "markdown conversion failed")
		}
		return Result{Markdown: md}, nil
	case ContainerPDF:
		md, err := extractPDF(bytes.NewReader(input), int64(len(input)))
		if err != nil {
			return Result{}, legal.ParseFailuref(string(container), err, "pdf extraction failed")
		}
		return Result{Markdown: md}, nil
	default:
		return Result{}, legal.ParseFailuref(string(container), nil, "unknown container kind")
	}
}

// Paginate cuts markdown into fixed character windows and returns the chunk
// at the requested index, clamped into [1,total]. The returned document
// reports the clamped index so callers can detect the clamp.
func (n *Normalizer) Paginate(handle legal.DocumentHandle, sourceURL, markdown string, chunkIndex int) *legal.NormalizedDocument {
	chunks := SplitChunks(markdown, n.chunkSize)
	idx := ClampIndex(chunkIndex, len(chunks))
	return &legal.NormalizedDocument{
		Handle:        handle,
		SourceURL:     sourceURL,
		ChunkIndex:    idx,
		TotalChunks:   len(chunks),
		ChunkText:     chunks[idx-1],
		IsPaginated:   len(chunks) > 1,
		FullCharCount: len([]rune(markdown)),
	}
}

// renderHTML unescapes entities once, normalizes the JSON-style escape
// sequences some backends leave in their payloads, and feeds the result to
// the Markdown converter as a single stream.
func (n *Normalizer) renderHTML(input []byte, withTables bool) (string, error) {
	s := string(input)
	s = strings.NewReplacer(`\"`, `"`, `\r\n`, "\n", `\n`, "\n", `\t`, "\t").Replace(s)
	s = html.UnescapeString(s)
	if withTables {
		return n.tables.ConvertString(s)
	}
	return htmltomarkdown.ConvertString(s)
}

// SplitChunks splits markdown into windows of size characters. The last
// chunk may be shorter; empty input yields a single empty chunk so chunk
// indices always start at 1.
func SplitChunks(markdown string, size int) []string {
	if size < 1 {
		size = DefaultChunkSize
	}
	runes := []rune(markdown)
	if len(runes) == 0 {
		return []string{""}
	}
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// ClampIndex clamps a requested 1-based chunk index into [1,total].
func ClampIndex(requested, total int) int {
	if total < 1 {
		total = 1
	}
	if requested < 1 {
		return 1
	}
	if requested > total {
		return total
	}
	return requested
}
