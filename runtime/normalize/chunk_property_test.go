package normalize

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestChunkDeterminismProperty verifies that for all source text and chunk
// sizes, chunking is a pure function of (text, size, index): repeated calls
// are byte-identical.
func TestChunkDeterminismProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("repeated chunking is byte-identical", prop.ForAll(
		func(text string, size int) bool {
			a := SplitChunks(text, size)
			b := SplitChunks(text, size)
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
		gen.IntRange(1, 9000),
	))

	properties.TestingRun(t)
}

// TestChunkTotalityProperty verifies that concatenating every chunk
// reproduces the full text: no characters lost, none duplicated.
func TestChunkTotalityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("concat(chunks) == full text", prop.ForAll(
		func(text string, size int) bool {
			return strings.Join(SplitChunks(text, size), "") == text
		},
		gen.AnyString(),
		gen.IntRange(1, 9000),
	))

	properties.Property("every chunk except the last is exactly size runes", prop.ForAll(
		func(text string, size int) bool {
			chunks := SplitChunks(text, size)
			for _, c := range chunks[:len(chunks)-1] {
				if len([]rune(c)) != size {
					return false
				}
			}
			return len([]rune(chunks[len(chunks)-1])) <= size
		},
		gen.AnyString(),
		gen.IntRange(1, 9000),
	))

	properties.TestingRun(t)
}

// TestClampProperty verifies the clamp always lands in [1,total].
func TestClampProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("clamped index is always valid", prop.ForAll(
		func(requested, total int) bool {
			idx := ClampIndex(requested, total)
			upper := total
			if upper < 1 {
				upper = 1
			}
			return idx >= 1 && idx <= upper
		},
		gen.IntRange(-100, 100000),
		gen.IntRange(0, 500),
	))

	properties.TestingRun(t)
}
