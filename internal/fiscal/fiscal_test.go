package fiscal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optometry_report/internal/common"
)

func TestWindow_MarchSpansFullFiscalYear(t *testing.T) {
	w, err := WindowOf("March", "2026")
	require.NoError(t, err)
	require.Len(t, w, 12)

	assert.Equal(t, Period{Month: April, Year: 2025}, w[0])
	assert.Equal(t, Period{Month: December, Year: 2025}, w[8])
	assert.Equal(t, Period{Month: January, Year: 2026}, w[9])
	assert.Equal(t, Period{Month: March, Year: 2026}, w[11])
}

func TestWindow_JuneHasThreeMonths(t *testing.T) {
	w, err := WindowOf("June", "2025")
	require.NoError(t, err)
	assert.Equal(t, []Period{
		{Month: April, Year: 2025},
		{Month: May, Year: 2025},
		{Month: June, Year: 2025},
	}, w)
}

func TestWindow_AprilIsSingleMonth(t *testing.T) {
	w, err := WindowOf("april", "2024")
	require.NoError(t, err)
	assert.Equal(t, []Period{{Month: April, Year: 2024}}, w)
}

func TestWindow_JanuaryBelongsToPreviousStartYear(t *testing.T) {
	w, err := WindowOf("Jan", "2026")
	require.NoError(t, err)
	require.Len(t, w, 10)
	assert.Equal(t, Period{Month: April, Year: 2025}, w[0])
	assert.Equal(t, Period{Month: January, Year: 2026}, w[9])
}

func TestWindow_Idempotent(t *testing.T) {
	a, err := WindowOf("November", "2025")
	require.NoError(t, err)
	b, err := WindowOf("November", "2025")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWindow_LengthMatchesFiscalIndex(t *testing.T) {
	for m := April; m <= March; m++ {
		w, err := Window(Period{Month: m, Year: 2030})
		require.NoError(t, err)
		assert.Len(t, w, int(m)+1, m.String())
		assert.Equal(t, m, w[len(w)-1].Month)
		assert.Equal(t, 2030, w[len(w)-1].Year)
	}
}

func TestParseMonth_AcceptsAbbreviationsAndCase(t *testing.T) {
	cases := map[string]Month{
		"APRIL": April, "sept": September, "Sep": September,
		" dec ": December, "feb": February, "March": March,
	}
	for in, want := range cases {
		got, err := ParseMonth(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParsePeriod_RejectsMalformedInput(t *testing.T) {
	for _, tc := range []struct{ month, year string }{
		{"Smarch", "2025"},
		{"", "2025"},
		{"April", "25"},
		{"April", "20x5"},
		{"April", "12345"},
	} {
		_, err := ParsePeriod(tc.month, tc.year)
		require.Error(t, err, tc)
		assert.True(t, errors.Is(err, common.ErrInvalidPeriod), tc)
	}
}

func TestPeriod_StartYearAndLabel(t *testing.T) {
	assert.Equal(t, 2025, Period{Month: March, Year: 2026}.StartYear())
	assert.Equal(t, 2025, Period{Month: April, Year: 2025}.StartYear())
	assert.Equal(t, "2025-26", Label(2025))
	assert.Equal(t, "2099-00", Label(2099))
}

func TestFullYear(t *testing.T) {
	w := FullYear(2024)
	require.Len(t, w, 12)
	assert.True(t, Contains(w, Period{Month: February, Year: 2025}))
	assert.False(t, Contains(w, Period{Month: February, Year: 2024}))
}

func TestMonthOf(t *testing.T) {
	assert.Equal(t, April, MonthOf(time.April))
	assert.Equal(t, December, MonthOf(time.December))
	assert.Equal(t, January, MonthOf(time.January))
	assert.Equal(t, March, MonthOf(time.March))
}
