package legal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateDotted(t *testing.T) {
	got, err := DateDotted("2024-03-07")
	require.NoError(t, err)
	assert.Equal(t, "07.03.2024", got)

	got, err = DateDotted("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = DateDotted("07.03.2024")
	var f *Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, KindInvalidArgument, f.Kind)
}

func TestDateSlashed(t *testing.T) {
	got, err := DateSlashed("2020-12-01")
	require.NoError(t, err)
	assert.Equal(t, "01/12/2020", got)
}

func TestDateRangeISOPromotion(t *testing.T) {
	lo, hi, err := DateRangeISO("2023-01-05", "2023-02-10")
	require.NoError(t, err)
	assert.Equal(t, "2023-01-05T00:00:00.000Z", lo)
	assert.Equal(t, "2023-02-10T23:59:59.999Z", hi)

	lo, hi, err = DateRangeISO("", "2023-02-10")
	require.NoError(t, err)
	assert.Empty(t, lo)
	assert.Equal(t, "2023-02-10T23:59:59.999Z", hi)
}

func TestValidateDateRange(t *testing.T) {
	require.NoError(t, ValidateDateRange("2022-01-01", "2022-12-31"))
	require.NoError(t, ValidateDateRange("", ""))

	err := ValidateDateRange("2023-01-01", "2022-01-01")
	var f *Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "date_start", f.Field)
}

func TestNormalizeBackendDate(t *testing.T) {
	assert.Equal(t, "2024-03-07", NormalizeBackendDate("07.03.2024"))
	assert.Equal(t, "2024-03-07", NormalizeBackendDate("07/03/2024"))
	assert.Equal(t, "2024-03-07", NormalizeBackendDate("2024-03-07T10:30:00"))
	assert.Equal(t, "garbage", NormalizeBackendDate("garbage"))
}

func TestChamberLabels(t *testing.T) {
	assert.Equal(t, "1. Hukuk Dairesi", CivilChamber(1).Label())
	assert.Equal(t, "23. Ceza Dairesi", CriminalChamber(23).Label())
	assert.Equal(t, "13. Daire", DanistayChamber(13).Label())
	assert.Equal(t, "Hukuk Genel Kurulu", ChamberHGK.Label())
	assert.Empty(t, ChamberAll.Label())

	assert.True(t, ChamberCode("H7").Valid())
	assert.False(t, ChamberCode("H24").Valid())
	assert.False(t, ChamberCode("X9").Valid())
}

func TestChamberSetIsTotal(t *testing.T) {
	for _, c := range ChamberCodes() {
		if c == ChamberAll {
			continue
		}
		assert.NotEmpty(t, c.Label(), "code %s must have a native label", c)
	}
}

func TestCaseNumber(t *testing.T) {
	assert.Equal(t, "2023/1234", CaseNumber(2023, 1234))
	assert.Empty(t, CaseNumber(0, 0))
}
