package fiscal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidNIF(t *testing.T) {
	tests := []struct {
		name  string
		nif   string
		valid bool
	}{
		{"valid company NIF", "501964843", true},
		{"valid sequential NIF", "123456789", true},
		{"valid with check digit mapped from 10 to 0", "100000070", true},
		{"valid all nines", "999999990", true},
		{"wrong check digit", "501964844", false},
		{"bad leading digit", "401964843", false},
		{"too short", "50196484", false},
		{"too long", "5019648431", false},
		{"non numeric", "50196484a", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidNIF(tt.nif))
		})
	}
}

func TestValidATCUD(t *testing.T) {
	tests := []struct {
		name  string
		atcud string
		valid bool
	}{
		{"plain series and sequence", "JFF8A9BXZ-123", true},
		{"with label prefix", "ATCUD: JFF8A9BXZ-123", true},
		{"minimum series length", "ABCD1234-1", true},
		{"series too short", "ABC-1", false},
		{"missing sequence", "JFF8A9BXZ-", false},
		{"missing separator", "JFF8A9BXZ123", false},
		{"trailing garbage", "JFF8A9BXZ-123x", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidATCUD(tt.atcud))
		})
	}
}

func TestValidHashControl(t *testing.T) {
	assert.True(t, ValidHashControl("1"))
	assert.True(t, ValidHashControl("1.5"))
	assert.True(t, ValidHashControl("40"))
	assert.False(t, ValidHashControl(""))
	assert.False(t, ValidHashControl("abc"))
	assert.False(t, ValidHashControl("1,5"))
	assert.False(t, ValidHashControl("-1"))
}

func TestIVARates(t *testing.T) {
	rate, ok := IVARate("NOR")
	require.True(t, ok)
	assert.Equal(t, "23", rate.String())

	rate, ok = IVARate("INT")
	require.True(t, ok)
	assert.Equal(t, "13", rate.String())

	rate, ok = IVARate("RED")
	require.True(t, ok)
	assert.Equal(t, "6", rate.String())

	for _, code := range []string{"ISE", "OUT"} {
		rate, ok = IVARate(code)
		require.True(t, ok)
		assert.True(t, rate.IsZero())
	}

	_, ok = IVARate("XYZ")
	assert.False(t, ok)
	assert.False(t, KnownIVACode("XYZ"))
	assert.True(t, KnownIVACode("NOR"))
	assert.Len(t, IVACodes(), 5)
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"thousands dot with comma decimals", "1.234,56", "1234.56", true},
		{"comma decimals", "123,00", "123", true},
		{"dot decimals", "1234.56", "1234.56", true},
		{"euro sign", "€ 1.234,56", "1234.56", true},
		{"currency code", "123,45 EUR", "123.45", true},
		{"plain integer", "123", "123", true},
		{"empty", "", "", false},
		{"garbage", "abc", "", false},
		{"double comma", "1,2,3", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMoney(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestParseISODate(t *testing.T) {
	d, err := ParseISODate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseISODate("15/03/2024")
	assert.Error(t, err)

	_, err = ParseISODate("2024-02-31")
	assert.Error(t, err)

	_, err = ParseISODate("")
	assert.Error(t, err)
}

func TestATCUDRequiredFrom(t *testing.T) {
	assert.True(t, time.Date(2022, time.December, 31, 0, 0, 0, 0, time.UTC).Before(ATCUDRequiredFrom))
	assert.False(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC).Before(ATCUDRequiredFrom))
}
