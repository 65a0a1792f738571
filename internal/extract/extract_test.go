package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInvoiceText = `FATURA
Santogal Comercio de Automoveis Lda.
NIF: PT 501964843
Exmos. Senhores
CIA LINUX LDA
Contribuinte: 123456789
Data: 15/03/2024
FT 123/2024
ATCUD: JFF8A9BXZ-123
Valor Base: 100,00
IVA: 23,00
TOTAL 123,00
Processado por programa certificado nº 1111/AT
QR Code`

func TestAnalyzeCleanInvoice(t *testing.T) {
	report := Analyze(sampleInvoiceText)

	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)

	f := report.Fields
	assert.Equal(t, "FATURA", f[KeyDocType].Value)
	assert.Equal(t, StatusOK, f[KeyDocType].Status)
	assert.Equal(t, "FT 123/2024", f[KeyNumber].Value)
	assert.Equal(t, "15/03/2024", f[KeyDate].Value)
	assert.Equal(t, "JFF8A9BXZ-123", f[KeyATCUD].Value)
	assert.Equal(t, "100,00", f[KeyBase].Value)
	assert.Equal(t, "23,00", f[KeyIVA].Value)
	assert.Equal(t, "123,00", f[KeyTotal].Value)
	assert.Equal(t, "Detetado", f[KeySoftwareCert].Value)
	assert.Equal(t, "Detetado (best-effort)", f[KeyQR].Value)
}

func TestPartyIdentification(t *testing.T) {
	report := Analyze(sampleInvoiceText)
	f := report.Fields

	// the taxpayer-marker line pins the customer NIF; the other valid NIF
	// becomes the supplier's
	assert.Equal(t, "123456789", f[KeyCustomerNIF].Value)
	assert.Equal(t, "501964843", f[KeySupplierNIF].Value)
	assert.Equal(t, "CIA LINUX LDA", f[KeyCustomerName].Value)
	assert.Equal(t, "Santogal Comercio de Automoveis Lda", f[KeySupplierName].Value)
	assert.Equal(t, "501964843, 123456789", f[KeyNIFsDetected].Value)
	assert.Equal(t, "501964843, 123456789", f[KeyNIFsValid].Value)
}

func TestNIFDeduplication(t *testing.T) {
	doc := Normalize("NIF 501964843 e outra vez 501964843 e 501964844")
	nifs := extractNIFs(doc.Text)
	assert.Equal(t, []string{"501964843", "501964844"}, nifs)
}

func TestDocTypeClassification(t *testing.T) {
	t.Run("explicit non invoice wins over the fatura token", func(t *testing.T) {
		docType, warn := classifyDocType("Esta fatura pró-forma não serve de fatura")
		assert.Equal(t, DocTypeNaoFatura, docType)
		assert.Equal(t, "⚠ Este documento não serve de fatura (proposta/orçamento).", warn)
	})
	t.Run("fatura", func(t *testing.T) {
		docType, warn := classifyDocType("FATURA nº 1")
		assert.Equal(t, DocTypeFatura, docType)
		assert.Empty(t, warn)
	})
	t.Run("factura spelling", func(t *testing.T) {
		docType, _ := classifyDocType("FACTURA nº 1")
		assert.Equal(t, DocTypeFatura, docType)
	})
	t.Run("unknown", func(t *testing.T) {
		docType, warn := classifyDocType("Guia de remessa")
		assert.Equal(t, DocTypeDesconhecido, docType)
		assert.Equal(t, "⚠ Tipo de documento não identificado com confiança.", warn)
	})
}

func TestDocTypeWarningReachesReport(t *testing.T) {
	text := strings.Replace(sampleInvoiceText, "FATURA", "Guia de remessa", 1)
	report := Analyze(text)

	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "⚠ Tipo de documento não identificado com confiança.")
	assert.Equal(t, StatusWarn, report.Fields[KeyDocType].Status)
}

func TestInvoiceNumberPriority(t *testing.T) {
	t.Run("nft series wins", func(t *testing.T) {
		doc := Normalize("NFT FTA/12345 e depois FT 1/2024")
		assert.Equal(t, "NFT FTA/12345", extractInvoiceNo(doc.Text))
	})
	t.Run("series slash number", func(t *testing.T) {
		doc := Normalize("Documento FTA/12345")
		assert.Equal(t, "FTA/12345", extractInvoiceNo(doc.Text))
	})
	t.Run("classic FT series", func(t *testing.T) {
		doc := Normalize("Fatura FT 123/2024 emitida")
		assert.Equal(t, "FT 123/2024", extractInvoiceNo(doc.Text))
	})
	t.Run("credit note", func(t *testing.T) {
		doc := Normalize("NC 7/2024")
		assert.Equal(t, "NC 7/2024", extractInvoiceNo(doc.Text))
	})
	t.Run("nothing found", func(t *testing.T) {
		doc := Normalize("sem numero por aqui")
		assert.Empty(t, extractInvoiceNo(doc.Text))
	})
}

func TestDateExtraction(t *testing.T) {
	t.Run("labelled date wins", func(t *testing.T) {
		doc := Normalize("01/01/2020\nData: 15/03/2024")
		assert.Equal(t, "15/03/2024", extractDate(doc))
	})
	t.Run("bare dmy", func(t *testing.T) {
		doc := Normalize("emitida a 15/03/2024")
		assert.Equal(t, "15/03/2024", extractDate(doc))
	})
	t.Run("iso fallback", func(t *testing.T) {
		doc := Normalize("emitida a 2024-03-15")
		assert.Equal(t, "2024-03-15", extractDate(doc))
	})
	t.Run("none", func(t *testing.T) {
		doc := Normalize("sem data")
		assert.Empty(t, extractDate(doc))
	})
}

func TestTotalsExtraction(t *testing.T) {
	t.Run("labelled lines", func(t *testing.T) {
		doc := Normalize("Valor Base: 100,00\nIVA: 23,00\nTOTAL 123,00")
		tot := extractTotals(doc)
		assert.Equal(t, "100,00", tot.base)
		assert.Equal(t, "23,00", tot.iva)
		assert.Equal(t, "123,00", tot.total)
	})
	t.Run("last TOTAL line wins", func(t *testing.T) {
		doc := Normalize("SUBTOTAL 90,00\nTOTAL 100,00\nTOTAL 123,00")
		tot := extractTotals(doc)
		assert.Equal(t, "123,00", tot.total)
	})
	t.Run("lowercase total ignored", func(t *testing.T) {
		doc := Normalize("total 99,00")
		tot := extractTotals(doc)
		assert.Empty(t, tot.total)
	})
	t.Run("total euros fallback", func(t *testing.T) {
		doc := Normalize("TOTAL (Euros) 1.234,56")
		tot := extractTotals(doc)
		assert.Equal(t, "1.234,56", tot.total)
	})
	t.Run("incidencia breakdown table", func(t *testing.T) {
		doc := Normalize("Incidência Taxa Valor IVA\n100,00 23,00 23,00\nTOTAL 123,00")
		tot := extractTotals(doc)
		assert.Equal(t, "100,00", tot.base)
		assert.Equal(t, "23,00", tot.rate)
		assert.Equal(t, "23,00", tot.iva)
	})
	t.Run("iva 23 phrase as last resort", func(t *testing.T) {
		doc := Normalize("IVA 23% incluido no valor de 23,00\nTOTAL 123,00")
		tot := extractTotals(doc)
		assert.Equal(t, "23,00", tot.iva)
	})
}

func TestBaseInference(t *testing.T) {
	text := `FATURA
Data: 15/03/2024
IVA: 23,00
TOTAL 123,00`
	report := Analyze(text)

	base := report.Fields[KeyBase]
	assert.Equal(t, "100,00", base.Value)
	assert.Equal(t, StatusInferred, base.Status)
	assert.Equal(t, "Base inferida por Total - IVA (não extraída diretamente).", base.Note)
	assert.True(t, report.Valid)
}

func TestCoherence(t *testing.T) {
	t.Run("incoherent totals", func(t *testing.T) {
		text := `FATURA
Valor Base: 100,00
IVA: 23,00
TOTAL 130,00`
		report := Analyze(text)
		require.False(t, report.Valid)
		assert.Contains(t, report.Errors, "Totais incoerentes: Base + IVA ≠ Total (ou OCR leu mal).")
		assert.NotContains(t, report.Errors, "Totais/IVA não foram extraídos com confiança (layout/scan).")
	})
	t.Run("within ocr tolerance", func(t *testing.T) {
		text := `FATURA
Valor Base: 100,00
IVA: 23,00
TOTAL 123,05`
		report := Analyze(text)
		assert.True(t, report.Valid)
	})
	t.Run("missing totals become a confidence error", func(t *testing.T) {
		report := Analyze("FATURA sem valores nenhuns neste documento de teste")
		require.False(t, report.Valid)
		assert.Contains(t, report.Errors, "Totais/IVA não foram extraídos com confiança (layout/scan).")
		assert.NotContains(t, report.Errors, "Totais incoerentes: Base + IVA ≠ Total (ou OCR leu mal).")
	})
	t.Run("impossible calendar date", func(t *testing.T) {
		text := `FATURA
Data: 31/02/2024
Valor Base: 100,00
IVA: 23,00
TOTAL 123,00`
		report := Analyze(text)
		require.False(t, report.Valid)
		assert.Contains(t, report.Errors, "Data inválida (OCR pode ter lido mal).")
	})
	t.Run("iso date skips the dmy calendar check", func(t *testing.T) {
		text := `FATURA
emitida a 2024-03-15
Valor Base: 100,00
IVA: 23,00
TOTAL 123,00`
		report := Analyze(text)
		assert.True(t, report.Valid)
	})
}

func TestMissingFieldsDegradeToWarn(t *testing.T) {
	report := Analyze("FATURA Valor Base: 100,00 IVA: 23,00 TOTAL 123,00")
	f := report.Fields

	assert.Equal(t, ValueMissing, f[KeyATCUD].Value)
	assert.Equal(t, StatusWarn, f[KeyATCUD].Status)
	assert.False(t, f[KeyATCUD].Present())

	assert.Equal(t, ValueMissing, f[KeyDate].Value)
	assert.Equal(t, StatusWarn, f[KeyDate].Status)
}

func TestNormalize(t *testing.T) {
	doc := Normalize("  linha um  \n\n   \nlinha   dois\n")
	assert.Equal(t, []string{"linha um", "linha   dois"}, doc.Lines)
	assert.Equal(t, "linha um linha dois", doc.Text)
}
