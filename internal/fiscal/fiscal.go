// Package fiscal holds the Portuguese fiscal reference rules shared by the
// SAF-T validator and the OCR extractor: the NIF checksum, the ATCUD grammar,
// the IVA rate table and the tolerant money/date parsers.
package fiscal

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ivaRates maps IVA tax codes to the continental-Portugal percentages
// published by AT. Exposed read-only through IVARate.
var ivaRates = map[string]decimal.Decimal{
	"NOR": decimal.NewFromFloat(23.0),
	"INT": decimal.NewFromFloat(13.0),
	"RED": decimal.NewFromFloat(6.0),
	"ISE": decimal.NewFromFloat(0.0),
	"OUT": decimal.NewFromFloat(0.0),
}

// ATCUDRequiredFrom is the date from which AT requires an ATCUD on every
// fiscal document. Documents dated earlier are exempt.
var ATCUDRequiredFrom = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	atcudRe       = regexp.MustCompile(`^(?:ATCUD:\s*)?[A-Za-z0-9]{8,}-[0-9]+$`)
	nifRe         = regexp.MustCompile(`^\d{9}$`)
	hashControlRe = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// IVARate returns the reference percentage for an IVA tax code.
func IVARate(code string) (decimal.Decimal, bool) {
	rate, ok := ivaRates[code]
	return rate, ok
}

// KnownIVACode reports whether code is one of the published IVA tax codes.
func KnownIVACode(code string) bool {
	_, ok := ivaRates[code]
	return ok
}

// IVACodes returns the published IVA tax codes in no particular order.
func IVACodes() []string {
	codes := make([]string, 0, len(ivaRates))
	for code := range ivaRates {
		codes = append(codes, code)
	}
	return codes
}

// ValidNIF validates a Portuguese taxpayer number: nine digits, a valid
// leading digit and a mod-11 check digit weighted 9..2 over the first eight
// digits, with a computed check of 10 mapping to 0.
func ValidNIF(nif string) bool {
	if !nifRe.MatchString(nif) {
		return false
	}
	if !strings.ContainsRune("1235689", rune(nif[0])) {
		return false
	}
	total := 0
	for i := 0; i < 8; i++ {
		total += int(nif[i]-'0') * (9 - i)
	}
	check := 11 - (total % 11)
	if check >= 10 {
		check = 0
	}
	return check == int(nif[8]-'0')
}

// ValidATCUD matches the full string against the ATCUD grammar
// ("series-sequence" with an optional "ATCUD:" prefix). Callers apply it
// only to documents dated on or after ATCUDRequiredFrom.
func ValidATCUD(atcud string) bool {
	return atcudRe.MatchString(atcud)
}

// ValidHashControl reports whether a HashControl value is a plain, optionally
// decimal, number.
func ValidHashControl(hc string) bool {
	return hashControlRe.MatchString(hc)
}

// ParseMoney normalizes a European-formatted amount ("1.234,56", "123,00",
// "1234.56", with optional currency markers) into a decimal. When both "."
// and "," occur, "." is a thousands separator and "," the decimal separator.
// Returns ok=false on anything non-numeric.
func ParseMoney(s string) (decimal.Decimal, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return decimal.Zero, false
	}
	v = strings.ReplaceAll(v, "€", "")
	v = strings.ReplaceAll(v, "EUR", "")
	v = strings.ReplaceAll(v, " ", "")
	if strings.Contains(v, ",") && strings.Contains(v, ".") {
		v = strings.ReplaceAll(v, ".", "")
	}
	v = strings.ReplaceAll(v, ",", ".")
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseISODate parses a strict ISO-8601 calendar date (YYYY-MM-DD).
func ParseISODate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}
