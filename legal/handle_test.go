package legal

import (
	"net/url"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRoundTrip(t *testing.T) {
	h := DocumentHandle{
		Source:   SourceSayistay,
		Subtype:  SubtypeGenelKurul,
		NativeID: "5415/1",
		PDFURL:   "https://www.sayistay.gov.tr/karar/5415.pdf",
	}
	parsed, err := ParseHandle(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestHandleIsURLSafe(t *testing.T) {
	h := DocumentHandle{
		Source:   SourceKIK,
		Subtype:  SubtypeKIKUyusmazlik,
		NativeID: "2024/UH.II-102|önizleme?=yes&x=ş",
	}
	s := h.String()
	assert.Equal(t, s, url.PathEscape(s), "handle must survive path escaping unchanged")

	parsed, err := ParseHandle(s)
	require.NoError(t, err)
	assert.Equal(t, h.NativeID, parsed.NativeID)
}

func TestParseHandleRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "yargitay", "yargitay:", "yargitay::", ":sub:abc", "yargitay:sub:!!!"} {
		_, err := ParseHandle(s)
		var f *Fault
		require.ErrorAs(t, err, &f, "input %q", s)
		assert.Equal(t, KindNotFound, f.Kind)
	}
}

func TestHandleStability(t *testing.T) {
	// Two searches returning the same decision must produce equal handles.
	a := DocumentHandle{Source: SourceYargitay, NativeID: "123456789"}
	b := DocumentHandle{Source: SourceYargitay, NativeID: "123456789"}
	assert.Equal(t, a.String(), b.String())
}

func TestHandleRoundTripProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("encode/decode is the identity on the native id", prop.ForAll(
		func(native string) bool {
			if native == "" {
				return true
			}
			h := DocumentHandle{Source: SourceEmsal, NativeID: native}
			parsed, err := ParseHandle(h.String())
			return err == nil && parsed.NativeID == native
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
