package extract

import (
	"regexp"
	"strings"

	"github.com/verifatura/saft-validator-service/internal/fiscal"
)

// Document type classifications.
const (
	DocTypeFatura       = "FATURA"
	DocTypeNaoFatura    = "NAO_FATURA"
	DocTypeDesconhecido = "DESCONHECIDO"
)

// moneyPat matches European money formats: thousands-dotted with comma
// decimals, plain comma decimals, or plain dot decimals.
const moneyPat = `([0-9]{1,3}(?:\.[0-9]{3})*,[0-9]{2}|[0-9]+,[0-9]{2}|[0-9]+\.[0-9]{2})`

var (
	nifTokenRe   = regexp.MustCompile(`(?:PT[\s\-:]*)?(\d{9})`)
	atcudTokenRe = regexp.MustCompile(`\b([A-Z0-9]{8,}-\d+)\b`)

	// Known document series, tried in priority order; first match wins.
	invoiceNoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(NFT\s+FTA/\d+)\b`),
		regexp.MustCompile(`\b([A-Z]{1,4}/\d{3,})\b`),
		regexp.MustCompile(`\b(FT\s+\d+/\d+)\b`),
		regexp.MustCompile(`\b(FA\s+\d+/\d+)\b`),
		regexp.MustCompile(`\b(FR\s+\d+/\d+)\b`),
		regexp.MustCompile(`\b(FS\s+\d+/\d+)\b`),
		regexp.MustCompile(`\b(NC\s+\d+/\d+)\b`),
		regexp.MustCompile(`\b(ND\s+\d+/\d+)\b`),
	}

	dataLineRe = regexp.MustCompile(`(?i)\bData:\s*([0-3]\d/[01]\d/\d{4})\b`)
	dmyDateRe  = regexp.MustCompile(`\b([0-3]\d/[01]\d/\d{4})\b`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4}-[01]\d-[0-3]\d)\b`)

	totalWordRe   = regexp.MustCompile(`\bTOTAL\b`)
	totalLineRe   = regexp.MustCompile(`(?i)\bTOTAL\b.*?` + moneyPat)
	totalEurosRe  = regexp.MustCompile(`(?i)TOTAL\s*\(Euros\)\s*` + moneyPat)
	baseLabelRe   = regexp.MustCompile(`(?i)\bValor\s*Base\s*:\s*` + moneyPat)
	ivaLabelRe    = regexp.MustCompile(`(?i)\bIVA\s*:\s*` + moneyPat)
	breakdownRe   = regexp.MustCompile(`(?i)Incid[êe]ncia.*(?:Valor\s*IVA|Taxa)`)
	breakdownRow  = regexp.MustCompile(`^\s*` + moneyPat + `\s+` + moneyPat + `\s+` + moneyPat)
	ivaFallbackRe = regexp.MustCompile(`(?i)\bIVA\s*(?:23%|23)\b.*?` + moneyPat)

	certRe = regexp.MustCompile(`(?i)programa\s+certificado\s+n[ºo]\.?\s*\d+/AT`)
	qrRe   = regexp.MustCompile(`(?i)\bQR\b|QRCode|QR-Code`)

	salutationRe    = regexp.MustCompile(`(?i)Exmos\.\s*Senhores`)
	companySuffixRe = regexp.MustCompile(`\bLDA\b|\bLda\b|S\.A\.`)
	companyNameRe   = regexp.MustCompile(`(?i)Lda|Unipessoal|S\.A\.`)
)

// Counterpart and vendor tokens the name heuristics key on. Data-driven so
// the lists can grow without touching the scan logic.
var (
	counterpartRe     = regexp.MustCompile(`(?i)\bCIA\s+LINUX\b`)
	knownVendorTokens = []string{"marques", "santogal"}
	vendorTokenRe     = regexp.MustCompile(`(?i)santogal|marques`)
)

// totals holds the raw monetary strings recovered from the page.
type totals struct {
	base  string
	iva   string
	total string
	rate  string
}

// Analyze runs the full pipeline over raw OCR text: normalization, field
// extraction and coherence checking. The report is valid only when no check
// raised an error.
func Analyze(raw string) Report {
	doc := Normalize(raw)
	fields, errs := Extract(doc)
	errs = append(errs, Coherence(fields)...)
	return Report{
		Fields: fields,
		Errors: errs,
		Valid:  len(errs) == 0,
	}
}

// Extract runs every heuristic over the normalized document and returns the
// field map plus extraction-side warnings (currently only the document-type
// warning).
func Extract(doc Document) (Fields, []string) {
	var errs []string

	docType, docWarn := classifyDocType(doc.Text)
	if docWarn != "" {
		errs = append(errs, docWarn)
	}

	nifs := extractNIFs(doc.Text)
	var validNIFs []string
	for _, n := range nifs {
		if fiscal.ValidNIF(n) {
			validNIFs = append(validNIFs, n)
		}
	}

	customerNIF := guessCustomerNIF(doc.Lines, validNIFs)
	supplierNIF := guessSupplierNIF(validNIFs, customerNIF)
	customerName := guessCustomerName(doc.Lines)
	supplierName := guessSupplierName(doc.Lines)

	atcud := firstSubmatch(atcudTokenRe, doc.Text)
	invoiceNo := extractInvoiceNo(doc.Text)
	date := extractDate(doc)
	t := extractTotals(doc)

	base := t.base
	inferredNote := ""
	if base == "" && t.iva != "" && t.total != "" {
		if iv, okIVA := fiscal.ParseMoney(t.iva); okIVA {
			if tv, okTotal := fiscal.ParseMoney(t.total); okTotal && tv.GreaterThanOrEqual(iv) {
				base = strings.ReplaceAll(tv.Sub(iv).StringFixed(2), ".", ",")
				inferredNote = "Base inferida por Total - IVA (não extraída diretamente)."
			}
		}
	}

	docStatus := StatusOK
	if docType != DocTypeFatura {
		docStatus = StatusWarn
	}
	baseField := field("Base tributável / Valor Base", base)
	if inferredNote != "" {
		baseField = newField("Base tributável / Valor Base", base, StatusInferred, inferredNote)
	}

	fields := Fields{
		KeyDocType:      newField("Tipo de documento", docType, docStatus, docWarn),
		KeyNumber:       field("Nº documento", invoiceNo),
		KeyDate:         field("Data", date),
		KeyATCUD:        field("ATCUD", atcud),
		KeySupplierName: field("Fornecedor (nome)", supplierName),
		KeySupplierNIF:  field("Fornecedor (NIF)", supplierNIF),
		KeyCustomerName: field("Cliente (nome)", customerName),
		KeyCustomerNIF:  field("Cliente (NIF)", customerNIF),
		KeyTaxRate:      field("Taxa IVA (se detetada)", t.rate),
		KeyBase:         baseField,
		KeyIVA:          field("IVA", t.iva),
		KeyTotal:        field("Total", t.total),
		KeySoftwareCert: detectionField("Programa certificado AT", "Detetado", certRe.MatchString(doc.Text)),
		KeyQR:           detectionField("QR Code", "Detetado (best-effort)", qrRe.MatchString(doc.Text)),
		KeyNIFsDetected: field("NIFs detetados (OCR)", strings.Join(nifs, ", ")),
		KeyNIFsValid:    field("NIFs PT válidos", strings.Join(validNIFs, ", ")),
	}
	return fields, errs
}

func detectionField(label, detectedValue string, detected bool) Field {
	if detected {
		return newField(label, detectedValue, StatusOK, "")
	}
	return newField(label, "Inconclusivo", StatusWarn, "")
}

// classifyDocType decides the document type from the collapsed text. The
// "não serve de fatura" phrase wins over the plain "fatura" token.
func classifyDocType(text string) (string, string) {
	low := strings.ToLower(text)
	if strings.Contains(low, "não serve de fatura") || strings.Contains(low, "nao serve de fatura") {
		return DocTypeNaoFatura, "⚠ Este documento não serve de fatura (proposta/orçamento)."
	}
	if strings.Contains(low, "fatura") || strings.Contains(low, "factura") {
		return DocTypeFatura, ""
	}
	return DocTypeDesconhecido, "⚠ Tipo de documento não identificado com confiança."
}

// extractNIFs scans for 9-digit sequences, optionally PT-prefixed,
// deduplicated in first-seen order.
func extractNIFs(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range nifTokenRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// guessCustomerNIF prefers a checksum-valid NIF that appears on a line
// carrying a taxpayer marker ("contribuinte"); otherwise the first valid one.
func guessCustomerNIF(lines []string, validNIFs []string) string {
	for _, ln := range lines {
		low := strings.ToLower(ln)
		if strings.Contains(low, "contribu") || strings.Contains(low, "contrib.") || strings.Contains(low, "contrib:") {
			for _, n := range validNIFs {
				if strings.Contains(ln, n) {
					return n
				}
			}
		}
	}
	if len(validNIFs) > 0 {
		return validNIFs[0]
	}
	return ""
}

// guessSupplierNIF is the first valid NIF that differs from the customer's.
func guessSupplierNIF(validNIFs []string, customerNIF string) string {
	for _, n := range validNIFs {
		if customerNIF != "" && n != customerNIF {
			return n
		}
	}
	return ""
}

// guessCustomerName looks for a known counterpart token, then for a
// company-suffixed line among the 1-3 lines preceding an "Exmos. Senhores"
// salutation.
func guessCustomerName(lines []string) string {
	for _, ln := range lines {
		if counterpartRe.MatchString(ln) {
			return strings.TrimSpace(ln)
		}
	}
	for i, ln := range lines {
		if !salutationRe.MatchString(ln) || i == 0 {
			continue
		}
		start := i - 3
		if start < 0 {
			start = 0
		}
		for j := start; j < i; j++ {
			cand := strings.TrimSpace(lines[j])
			if len(cand) >= 4 && companyNameRe.MatchString(cand) {
				return cand
			}
		}
	}
	return ""
}

// guessSupplierName scans company-suffix lines near the top and bottom of
// the page for known vendor tokens, skipping the counterpart's own lines.
func guessSupplierName(lines []string) string {
	head := lines
	if len(head) > 40 {
		head = head[:40]
	}
	for _, ln := range head {
		if !companySuffixRe.MatchString(ln) || counterpartRe.MatchString(ln) {
			continue
		}
		low := strings.ToLower(ln)
		for _, token := range knownVendorTokens {
			if strings.Contains(low, token) {
				return strings.Trim(strings.TrimSpace(ln), ".")
			}
		}
	}
	tail := lines
	if len(tail) > 50 {
		tail = tail[len(tail)-50:]
	}
	for _, ln := range tail {
		if companySuffixRe.MatchString(ln) && vendorTokenRe.MatchString(ln) {
			return strings.Trim(strings.TrimSpace(ln), ".")
		}
	}
	return ""
}

// extractInvoiceNo tries the document-series patterns in priority order.
func extractInvoiceNo(text string) string {
	for _, re := range invoiceNoPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// extractDate prefers a line-scoped "Data:" match within the first 60 lines,
// then any DD/MM/YYYY token, then an ISO date.
func extractDate(doc Document) string {
	head := doc.Lines
	if len(head) > 60 {
		head = head[:60]
	}
	for _, ln := range head {
		if m := dataLineRe.FindStringSubmatch(ln); m != nil {
			return m[1]
		}
	}
	if m := dmyDateRe.FindStringSubmatch(doc.Text); m != nil {
		return m[1]
	}
	if m := isoDateRe.FindStringSubmatch(doc.Text); m != nil {
		return m[1]
	}
	return ""
}

// extractTotals recovers the TOTAL, Valor Base and IVA amounts. The labelled
// forms win; the "Incidência" breakdown table fills whatever is still
// missing (first structural row only); a generic "IVA 23%" phrase is the
// last resort for IVA.
func extractTotals(doc Document) totals {
	var t totals

	for _, ln := range doc.Lines {
		if totalWordRe.MatchString(ln) {
			if m := totalLineRe.FindStringSubmatch(ln); m != nil {
				t.total = m[1]
			}
		}
	}
	if t.total == "" {
		if m := totalEurosRe.FindStringSubmatch(doc.Text); m != nil {
			t.total = m[1]
		}
	}

	for _, ln := range doc.Lines {
		if m := baseLabelRe.FindStringSubmatch(ln); m != nil {
			t.base = m[1]
		}
		if m := ivaLabelRe.FindStringSubmatch(ln); m != nil {
			t.iva = m[1]
		}
	}

	for i, ln := range doc.Lines {
		if !breakdownRe.MatchString(ln) {
			continue
		}
		end := i + 6
		if end > len(doc.Lines) {
			end = len(doc.Lines)
		}
		for j := i + 1; j < end; j++ {
			m := breakdownRow.FindStringSubmatch(doc.Lines[j])
			if m == nil {
				continue
			}
			if t.base == "" {
				t.base = m[1]
			}
			if t.rate == "" {
				t.rate = m[2]
			}
			if t.iva == "" {
				t.iva = m[3]
			}
			break
		}
	}

	if t.iva == "" {
		if m := ivaFallbackRe.FindStringSubmatch(doc.Text); m != nil {
			t.iva = m[1]
		}
	}

	return t
}

func firstSubmatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
