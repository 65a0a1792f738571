package saft

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/verifatura/saft-validator-service/internal/fiscal"
)

// totalsTolerance is the accepted rounding slack between NetTotal+TaxPayable
// and GrossTotal.
var totalsTolerance = decimal.RequireFromString("0.01")

// ivaTolerance is the accepted slack between a TaxTable percentage and the
// published IVA rate.
var ivaTolerance = decimal.RequireFromString("0.001")

// Accumulator collects human-readable findings for one validation run. It is
// append-only and shared by reference across all passes; the caller decides
// overall validity from Empty after the run.
type Accumulator struct {
	messages []string
}

// Addf appends a formatted finding.
func (a *Accumulator) Addf(format string, args ...any) {
	a.messages = append(a.messages, fmt.Sprintf(format, args...))
}

// Add appends a finding.
func (a *Accumulator) Add(msg string) {
	a.messages = append(a.messages, msg)
}

// Messages returns the findings in the order they were appended.
func (a *Accumulator) Messages() []string {
	if a.messages == nil {
		return []string{}
	}
	return a.messages
}

// Empty reports whether the run produced no findings.
func (a *Accumulator) Empty() bool {
	return len(a.messages) == 0
}

// Validator runs the ordered fiscal rule passes over a decoded audit file.
// Passes never short-circuit: every pass appends all of its findings and the
// next pass runs regardless.
type Validator struct {
	extended bool
}

// NewValidator creates a validator for the primary pass sequence.
func NewValidator() *Validator {
	return &Validator{}
}

// NewExtendedValidator additionally runs the Suppliers and PurchaseInvoices
// passes.
func NewExtendedValidator() *Validator {
	return &Validator{extended: true}
}

// Validate executes the pass sequence against doc, appending findings to acc.
func (v *Validator) Validate(doc *AuditFile, acc *Accumulator) {
	passes := []func(*AuditFile, *Accumulator){
		v.checkHeader,
		v.checkDates,
		v.checkHeaderNIF,
		v.checkTaxTable,
		v.checkSalesTotals,
		v.checkSalesATCUDHash,
		v.checkCustomers,
		v.checkProducts,
		v.checkPayments,
	}
	if v.extended {
		passes = append(passes, v.checkSuppliers, v.checkPurchaseInvoices)
	}
	for _, pass := range passes {
		pass(doc, acc)
	}
}

// checkHeader requires the mandatory Header fields to be present and
// non-blank. A missing Header is one finding for this pass only; the
// remaining passes still run.
func (v *Validator) checkHeader(doc *AuditFile, acc *Accumulator) {
	if doc.Header == nil {
		acc.Add("Header em falta.")
		return
	}
	h := doc.Header
	required := []struct {
		name  string
		value string
	}{
		{"AuditFileVersion", h.AuditFileVersion},
		{"CompanyID", h.CompanyID},
		{"TaxRegistrationNumber", h.TaxRegistrationNumber},
		{"CompanyName", h.CompanyName},
		{"FiscalYear", h.FiscalYear},
		{"StartDate", h.StartDate},
		{"EndDate", h.EndDate},
		{"CurrencyCode", h.CurrencyCode},
		{"DateCreated", h.DateCreated},
	}
	for _, field := range required {
		if blank(field.value) {
			acc.Addf("Header.%s é obrigatório.", field.name)
		}
	}
}

// checkDates verifies StartDate <= EndDate and that FiscalYear matches the
// StartDate year. Any malformed value collapses to a single generic finding.
func (v *Validator) checkDates(doc *AuditFile, acc *Accumulator) {
	if doc.Header == nil {
		return
	}
	h := doc.Header
	fiscalYear, err := strconv.Atoi(text(h.FiscalYear))
	if err != nil {
		acc.Add("Datas fiscais inválidas no Header.")
		return
	}
	start, err := fiscal.ParseISODate(h.StartDate)
	if err != nil {
		acc.Add("Datas fiscais inválidas no Header.")
		return
	}
	end, err := fiscal.ParseISODate(h.EndDate)
	if err != nil {
		acc.Add("Datas fiscais inválidas no Header.")
		return
	}
	if start.After(end) {
		acc.Add("StartDate não pode ser maior que EndDate.")
	}
	if start.Year() != fiscalYear {
		acc.Add("FiscalYear não corresponde ao ano de StartDate.")
	}
}

// checkHeaderNIF validates the Header taxpayer number when present. Absence
// is tolerated here; checkHeader already reports it.
func (v *Validator) checkHeaderNIF(doc *AuditFile, acc *Accumulator) {
	if doc.Header == nil {
		return
	}
	nif := text(doc.Header.TaxRegistrationNumber)
	if nif == "" {
		return
	}
	if !fiscal.ValidNIF(nif) {
		acc.Add("NIF inválido no Header.")
	}
}

// checkTaxTable requires a populated TaxTable and checks IVA/PT entries
// against the published percentages, including duplicate codes with
// conflicting percentages. Entries outside IVA/PT are only checked for
// completeness.
func (v *Validator) checkTaxTable(doc *AuditFile, acc *Accumulator) {
	if doc.MasterFiles == nil || doc.MasterFiles.TaxTable == nil {
		acc.Add("TaxTable em falta.")
		return
	}
	entries := doc.MasterFiles.TaxTable.Entries
	if len(entries) == 0 {
		acc.Add("TaxTable sem TaxTableEntry.")
		return
	}

	seen := map[string]decimal.Decimal{}
	for _, entry := range entries {
		taxType := text(entry.TaxType)
		region := text(entry.TaxCountryRegion)
		code := text(entry.TaxCode)
		percRaw := text(entry.TaxPercentage)

		if taxType == "" || region == "" || code == "" || percRaw == "" {
			acc.Add("TaxTableEntry incompleto.")
			continue
		}
		if taxType != "IVA" || region != "PT" {
			continue
		}

		perc, err := decimal.NewFromString(percRaw)
		if err != nil {
			acc.Addf("IVA %s: TaxPercentage inválido.", code)
			continue
		}
		expected, known := fiscal.IVARate(code)
		if !known {
			acc.Addf("IVA TaxCode desconhecido: %s.", code)
			continue
		}
		if perc.Sub(expected).Abs().GreaterThan(ivaTolerance) {
			acc.Addf("IVA %s: TaxPercentage inválido.", code)
		}
		if prev, dup := seen[code]; dup && !prev.Equal(perc) {
			acc.Addf("IVA %s: duplicado com percentagens diferentes.", code)
		}
		seen[code] = perc
	}
}

// parseTotals converts a DocumentTotals into decimals, failing as a unit so
// that malformed amounts become one finding per document.
func parseTotals(t *DocumentTotals) (net, tax, gross decimal.Decimal, ok bool) {
	net, err1 := decimal.NewFromString(text(t.NetTotal))
	tax, err2 := decimal.NewFromString(text(t.TaxPayable))
	gross, err3 := decimal.NewFromString(text(t.GrossTotal))
	ok = err1 == nil && err2 == nil && err3 == nil
	return net, tax, gross, ok
}

func totalsCoherent(net, tax, gross decimal.Decimal) bool {
	return !net.Add(tax).Sub(gross).Abs().GreaterThan(totalsTolerance)
}

// checkSalesTotals requires SalesInvoices with at least one Invoice and
// checks each invoice's additive totals coherence.
func (v *Validator) checkSalesTotals(doc *AuditFile, acc *Accumulator) {
	sales := salesInvoices(doc)
	if sales == nil {
		acc.Add("SalesInvoices em falta.")
		return
	}
	if len(sales.Invoices) == 0 {
		acc.Add("SalesInvoices sem Invoice.")
		return
	}
	for _, inv := range sales.Invoices {
		invNo := text(inv.InvoiceNo)
		if invNo == "" || inv.DocumentTotals == nil {
			acc.Add("Invoice incompleta.")
			continue
		}
		net, tax, gross, ok := parseTotals(inv.DocumentTotals)
		if !ok {
			acc.Addf("Invoice %s: totais inválidos.", invNo)
			continue
		}
		if !totalsCoherent(net, tax, gross) {
			acc.Addf("Invoice %s: GrossTotal incoerente.", invNo)
		}
	}
}

// checkSalesATCUDHash checks InvoiceDate, the ATCUD requirement from 2023
// onwards and the Hash/HashControl pairing on every sales invoice.
func (v *Validator) checkSalesATCUDHash(doc *AuditFile, acc *Accumulator) {
	sales := salesInvoices(doc)
	if sales == nil {
		return
	}
	for _, inv := range sales.Invoices {
		invNo := invoiceRef(inv.InvoiceNo)
		dateRaw := text(inv.InvoiceDate)
		if dateRaw == "" {
			acc.Addf("Invoice %s: InvoiceDate em falta.", invNo)
			continue
		}
		invDate, err := fiscal.ParseISODate(dateRaw)
		if err != nil {
			acc.Addf("Invoice %s: InvoiceDate inválido.", invNo)
			continue
		}

		atcud := text(inv.ATCUD)
		if !invDate.Before(fiscal.ATCUDRequiredFrom) {
			if atcud == "" || !fiscal.ValidATCUD(atcud) {
				acc.Addf("Invoice %s: ATCUD inválido ou em falta.", invNo)
			}
		}

		hash := text(inv.Hash)
		if hash == "" {
			acc.Addf("Invoice %s: Hash em falta.", invNo)
			continue
		}
		if hash != "0" {
			hc := text(inv.HashControl)
			if hc == "" || !fiscal.ValidHashControl(hc) {
				acc.Addf("Invoice %s: HashControl inválido.", invNo)
			}
		}
	}
}

// checkCustomers resolves every invoice CustomerID against MasterFiles.
func (v *Validator) checkCustomers(doc *AuditFile, acc *Accumulator) {
	customers := map[string]bool{}
	if doc.MasterFiles != nil {
		for _, c := range doc.MasterFiles.Customers {
			if id := text(c.CustomerID); id != "" {
				customers[id] = true
			}
		}
	}
	sales := salesInvoices(doc)
	if sales == nil {
		return
	}
	for _, inv := range sales.Invoices {
		cid := text(inv.CustomerID)
		if cid != "" && !customers[cid] {
			acc.Addf("Invoice %s: CustomerID %s não existe.", invoiceRef(inv.InvoiceNo), cid)
		}
	}
}

// checkProducts resolves every invoice line ProductCode against MasterFiles.
func (v *Validator) checkProducts(doc *AuditFile, acc *Accumulator) {
	codes := productCodes(doc)
	sales := salesInvoices(doc)
	if sales == nil {
		return
	}
	for _, inv := range sales.Invoices {
		invNo := invoiceRef(inv.InvoiceNo)
		for _, line := range inv.Lines {
			pc := text(line.ProductCode)
			if pc == "" || !codes[pc] {
				acc.Addf("Invoice %s: ProductCode inválido (não existe em MasterFiles).", invNo)
			}
		}
	}
}

// checkPayments validates the optional Payments section: required fields,
// totals coherence, the ATCUD requirement, the optional Hash pairing and the
// link from every payment line back to a known sales invoice.
func (v *Validator) checkPayments(doc *AuditFile, acc *Accumulator) {
	if doc.SourceDocuments == nil || doc.SourceDocuments.Payments == nil {
		return
	}
	payments := doc.SourceDocuments.Payments.Payments
	if len(payments) == 0 {
		acc.Add("Payments sem Payment.")
		return
	}

	invoices := map[string]bool{}
	if sales := salesInvoices(doc); sales != nil {
		for _, inv := range sales.Invoices {
			if no := text(inv.InvoiceNo); no != "" {
				invoices[no] = true
			}
		}
	}

	for _, pay := range payments {
		ref := text(pay.PaymentRefNo)
		if ref == "" {
			ref = "<sem PaymentRefNo>"
		}
		dateRaw := text(pay.TransactionDate)
		if dateRaw == "" || pay.DocumentTotals == nil {
			acc.Addf("Payment %s: incompleto (TransactionDate/DocumentTotals).", ref)
			continue
		}

		net, tax, gross, ok := parseTotals(pay.DocumentTotals)
		if !ok {
			acc.Addf("Payment %s: totais inválidos.", ref)
			continue
		}
		if !totalsCoherent(net, tax, gross) {
			acc.Addf("Payment %s: GrossTotal incoerente.", ref)
		}

		tdate, err := fiscal.ParseISODate(dateRaw)
		if err != nil {
			acc.Addf("Payment %s: TransactionDate inválido.", ref)
			continue
		}
		atcud := text(pay.ATCUD)
		if !tdate.Before(fiscal.ATCUDRequiredFrom) {
			if atcud == "" || !fiscal.ValidATCUD(atcud) {
				acc.Addf("Payment %s: ATCUD inválido ou em falta.", ref)
			}
		}

		// Hash is optional on payments; only a non-zero Hash demands a
		// numeric HashControl.
		if hash := text(pay.Hash); hash != "" && hash != "0" {
			hc := text(pay.HashControl)
			if hc == "" || !fiscal.ValidHashControl(hc) {
				acc.Addf("Payment %s: HashControl inválido.", ref)
			}
		}

		for _, line := range pay.Lines {
			src := ""
			if line.SourceDocumentID != nil {
				src = text(line.SourceDocumentID.OriginatingON)
			}
			if src == "" || !invoices[src] {
				display := src
				if display == "" {
					display = "vazio"
				}
				acc.Addf("Payment %s: referência a Invoice inexistente (%s).", ref, display)
			}
		}
	}
}

// checkSuppliers validates the optional Suppliers master data: unique IDs,
// required name, tax ID and billing address, and the NIF checksum for PT
// suppliers. Extended pass.
func (v *Validator) checkSuppliers(doc *AuditFile, acc *Accumulator) {
	if doc.MasterFiles == nil || len(doc.MasterFiles.Suppliers) == 0 {
		return
	}
	seen := map[string]bool{}
	for _, s := range doc.MasterFiles.Suppliers {
		sid := text(s.SupplierID)
		if sid == "" {
			acc.Add("Supplier sem SupplierID.")
			continue
		}
		if seen[sid] {
			acc.Addf("SupplierID duplicado: %s.", sid)
		}
		seen[sid] = true

		if blank(s.CompanyName) {
			acc.Addf("Supplier %s: CompanyName obrigatório.", sid)
		}
		taxID := text(s.SupplierTaxID)
		if taxID == "" {
			acc.Addf("Supplier %s: SupplierTaxID obrigatório.", sid)
		}

		if s.BillingAddress == nil {
			acc.Addf("Supplier %s: BillingAddress em falta.", sid)
			continue
		}
		addr := s.BillingAddress
		for _, field := range []struct {
			name  string
			value string
		}{
			{"AddressDetail", addr.AddressDetail},
			{"City", addr.City},
			{"Country", addr.Country},
		} {
			if blank(field.value) {
				acc.Addf("Supplier %s: BillingAddress.%s obrigatório.", sid, field.name)
			}
		}
		if text(addr.Country) == "PT" && taxID != "" && !fiscal.ValidNIF(taxID) {
			acc.Addf("Supplier %s: NIF PT inválido.", sid)
		}
	}
}

// checkPurchaseInvoices validates the optional PurchaseInvoices section:
// parseable dates, supplier resolution, non-negative coherent totals, product
// resolution and known IVA codes on line taxes. Extended pass.
func (v *Validator) checkPurchaseInvoices(doc *AuditFile, acc *Accumulator) {
	if doc.SourceDocuments == nil || doc.SourceDocuments.PurchaseInvoices == nil {
		return
	}
	invoices := doc.SourceDocuments.PurchaseInvoices.Invoices
	if len(invoices) == 0 {
		acc.Add("PurchaseInvoices sem Invoice.")
		return
	}

	suppliers := map[string]bool{}
	if doc.MasterFiles != nil {
		for _, s := range doc.MasterFiles.Suppliers {
			if id := text(s.SupplierID); id != "" {
				suppliers[id] = true
			}
		}
	}
	codes := productCodes(doc)

	for _, inv := range invoices {
		invNo := invoiceRef(inv.InvoiceNo)

		if dateRaw := text(inv.InvoiceDate); dateRaw == "" {
			acc.Addf("PurchaseInvoice %s: InvoiceDate em falta.", invNo)
		} else if _, err := fiscal.ParseISODate(dateRaw); err != nil {
			acc.Addf("PurchaseInvoice %s: InvoiceDate inválido.", invNo)
		}

		if sid := text(inv.SupplierID); sid == "" {
			acc.Addf("PurchaseInvoice %s: SupplierID em falta.", invNo)
		} else if len(suppliers) > 0 && !suppliers[sid] {
			// only resolvable when the file carries supplier master data
			acc.Addf("PurchaseInvoice %s: SupplierID %s não existe em MasterFiles.", invNo, sid)
		}

		if inv.DocumentTotals == nil {
			acc.Addf("PurchaseInvoice %s: DocumentTotals em falta.", invNo)
		} else if net, tax, gross, ok := parseTotals(inv.DocumentTotals); !ok {
			acc.Addf("PurchaseInvoice %s: totais inválidos.", invNo)
		} else {
			if net.IsNegative() || tax.IsNegative() || gross.IsNegative() {
				acc.Addf("PurchaseInvoice %s: totais negativos.", invNo)
			}
			if !totalsCoherent(net, tax, gross) {
				acc.Addf("PurchaseInvoice %s: GrossTotal incoerente.", invNo)
			}
		}

		for _, line := range inv.Lines {
			pc := text(line.ProductCode)
			if pc == "" || (len(codes) > 0 && !codes[pc]) {
				acc.Addf("PurchaseInvoice %s: ProductCode inválido (não existe em MasterFiles).", invNo)
			}
			if line.Tax != nil &&
				text(line.Tax.TaxType) == "IVA" && text(line.Tax.TaxCountryRegion) == "PT" {
				if code := text(line.Tax.TaxCode); code != "" && !fiscal.KnownIVACode(code) {
					acc.Addf("PurchaseInvoice %s: IVA TaxCode desconhecido na linha: %s.", invNo, code)
				}
			}
		}
	}
}

func salesInvoices(doc *AuditFile) *SalesInvoices {
	if doc.SourceDocuments == nil {
		return nil
	}
	return doc.SourceDocuments.SalesInvoices
}

func productCodes(doc *AuditFile) map[string]bool {
	codes := map[string]bool{}
	if doc.MasterFiles != nil {
		for _, p := range doc.MasterFiles.Products {
			if pc := text(p.ProductCode); pc != "" {
				codes[pc] = true
			}
		}
	}
	return codes
}

func invoiceRef(invoiceNo string) string {
	if no := text(invoiceNo); no != "" {
		return no
	}
	return "<sem InvoiceNo>"
}
