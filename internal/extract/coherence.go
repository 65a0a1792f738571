package extract

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/verifatura/saft-validator-service/internal/fiscal"
)

// ocrTolerance absorbs OCR misreads in the totals arithmetic. Wider than the
// structured-file tolerance on purpose.
var ocrTolerance = decimal.RequireFromString("0.05")

// Coherence cross-checks the extracted fields: totals arithmetic when base,
// IVA and total were all recovered, a confidence warning when they were not,
// and calendar validity of the document date.
func Coherence(fields Fields) []string {
	var errs []string

	base, okBase := moneyValue(fields, KeyBase)
	iva, okIVA := moneyValue(fields, KeyIVA)
	total, okTotal := moneyValue(fields, KeyTotal)

	if okBase && okIVA && okTotal {
		if base.Add(iva).Sub(total).Abs().GreaterThan(ocrTolerance) {
			errs = append(errs, "Totais incoerentes: Base + IVA ≠ Total (ou OCR leu mal).")
		}
	} else {
		errs = append(errs, "Totais/IVA não foram extraídos com confiança (layout/scan).")
	}

	if f, ok := fields[KeyDate]; ok && f.Present() && strings.Contains(f.Value, "/") {
		if _, err := time.Parse("02/01/2006", f.Value); err != nil {
			errs = append(errs, "Data inválida (OCR pode ter lido mal).")
		}
	}

	return errs
}

func moneyValue(fields Fields, key string) (decimal.Decimal, bool) {
	f, ok := fields[key]
	if !ok || !f.Present() {
		return decimal.Zero, false
	}
	return fiscal.ParseMoney(f.Value)
}
