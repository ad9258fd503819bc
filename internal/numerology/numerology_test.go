package numerology

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/decode/internal/model"
)

func mustDate(t *testing.T, y, m, d int) Date {
	t.Helper()
	date, err := NewDate(y, m, d)
	require.NoError(t, err)
	return date
}

func TestDigitSum(t *testing.T) {
	assert.Equal(t, 0, DigitSum(0))
	assert.Equal(t, 6, DigitSum(2022))
	assert.Equal(t, 6, DigitSum(-2022))
	assert.Equal(t, 9, DigitSum(9))
	assert.Equal(t, 10, DigitSum(19))
}

func TestReduceToRoot(t *testing.T) {
	assert.Equal(t, 11, ReduceToRoot(29), "29 -> 11 stops at master")
	assert.Equal(t, 1, ReduceToRoot(28), "28 -> 10 -> 1")
	assert.Equal(t, 22, ReduceToRoot(22))
	assert.Equal(t, 33, ReduceToRoot(33))
	assert.Equal(t, 11, ReduceToRoot(38), "38 -> 11")
	assert.Equal(t, 7, ReduceToRoot(7))
	assert.Equal(t, 0, ReduceToRoot(0))
	assert.Equal(t, 9, ReduceToRoot(99), "99 -> 18 -> 9")
}

func TestNewDateValidation(t *testing.T) {
	bad := [][3]int{
		{2023, 2, 29},
		{2024, 2, 30},
		{2024, 13, 1},
		{2024, 0, 1},
		{2024, 4, 31},
		{2024, 1, 0},
		{0, 1, 1},
		{10000, 1, 1},
	}
	for _, b := range bad {
		_, err := NewDate(b[0], b[1], b[2])
		assert.ErrorIs(t, err, ErrInvalidDate, "%v", b)
	}

	_, err := NewDate(2024, 2, 29)
	assert.NoError(t, err, "leap day")
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2021-11-02")
	require.NoError(t, err)
	assert.Equal(t, Date{2021, 11, 2}, d)

	_, err = ParseDate("2021-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDate("yesterday")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestFromTimeUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	instant := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, Date{2024, 3, 10}, FromTime(instant))
	assert.Equal(t, Date{2024, 3, 11}, FromTime(instant.In(loc)))
}

func TestMasterDay(t *testing.T) {
	assert.True(t, IsMasterDay(11))
	assert.True(t, IsMasterDay(22))
	assert.False(t, IsMasterDay(21))
	assert.False(t, IsMasterDay(23))
	assert.False(t, IsMasterDay(1))
}

func TestPalindrome(t *testing.T) {
	assert.True(t, IsPalindrome(mustDate(t, 2021, 12, 2)), "20211202")
	assert.True(t, IsPalindrome(mustDate(t, 2020, 2, 2)), "20200202")
	assert.False(t, IsPalindrome(mustDate(t, 2021, 2, 12)), "20210212")
	assert.False(t, IsPalindrome(mustDate(t, 2021, 11, 2)), "20211102")
}

func TestCompute(t *testing.T) {
	got, err := Compute(mustDate(t, 2024, 9, 11))
	require.NoError(t, err)

	// 2+0+2+4=8, 9, 1+1=2 -> 19 -> 10 -> 1
	want := model.Numerology{
		YearSum:    8,
		MonthSum:   9,
		DaySum:     2,
		DateSum:    8 + 0 + 9 + 1 + 1,
		LifePath:   1,
		MasterDay:  true,
		Palindrome: false,
	}
	assert.Equal(t, want, got)
}

func TestComputeMasterLifePath(t *testing.T) {
	// 1+9+9+2=21, 1+2=3, 5 -> 29 -> 11
	got, err := Compute(mustDate(t, 1992, 12, 5))
	require.NoError(t, err)
	assert.Equal(t, 11, got.LifePath)
	assert.False(t, got.MasterDay)
}

func TestComputeRejectsInvalid(t *testing.T) {
	_, err := Compute(Date{2023, 2, 29})
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestSunSign(t *testing.T) {
	cases := map[Date]string{
		{2024, 1, 1}:   "Capricorn",
		{2024, 12, 25}: "Capricorn",
		{2024, 1, 20}:  "Aquarius",
		{2024, 3, 21}:  "Aries",
		{2024, 7, 4}:   "Cancer",
		{2024, 11, 22}: "Sagittarius",
		{2024, 9, 11}:  "Virgo",
	}
	for d, want := range cases {
		assert.Equal(t, want, SunSign(d), d.String())
	}
}
