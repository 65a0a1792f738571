package saft

// InvoiceView is a read-only projection of the first sales invoice in a
// valid audit file, rendered for API consumers. It never feeds back into
// validation.
type InvoiceView struct {
	Supplier SupplierView `json:"supplier"`
	Customer CustomerView `json:"customer"`
	Invoice  InvoiceMeta  `json:"invoice"`
	Lines    []LineView   `json:"lines"`
	Totals   TotalsView   `json:"totals"`
	Shipping ShippingView `json:"shipping"`
}

type SupplierView struct {
	CompanyName    string `json:"company_name"`
	NIF            string `json:"nif"`
	CompanyID      string `json:"company_id"`
	Email          string `json:"email"`
	SoftwareCert   string `json:"software_cert"`
	ProductID      string `json:"product_id"`
	ProductVersion string `json:"product_version"`
	AddressDetail  string `json:"address_detail"`
	City           string `json:"city"`
	PostalCode     string `json:"postal"`
	Country        string `json:"country"`
	Currency       string `json:"currency"`
}

type CustomerView struct {
	CustomerID    string `json:"customer_id"`
	CompanyName   string `json:"company_name"`
	NIF           string `json:"nif"`
	Contact       string `json:"contact"`
	Email         string `json:"email"`
	AddressDetail string `json:"addr_detail"`
	City          string `json:"city"`
	PostalCode    string `json:"postal"`
	Country       string `json:"country"`
}

type InvoiceMeta struct {
	InvoiceNo       string `json:"invoice_no"`
	InvoiceDate     string `json:"invoice_date"`
	InvoiceType     string `json:"invoice_type"`
	Period          string `json:"period"`
	SystemEntryDate string `json:"system_entry_date"`
	ATCUD           string `json:"atcud"`
	Hash            string `json:"hash"`
	HashControl     string `json:"hash_control"`
	SourceID        string `json:"source_id"`
	CustomerID      string `json:"customer_id"`
}

type LineView struct {
	LineNumber      string `json:"line_number"`
	ProductCode     string `json:"product_code"`
	ProductDesc     string `json:"product_desc"`
	Description     string `json:"description"`
	Quantity        string `json:"qty"`
	UnitOfMeasure   string `json:"uom"`
	UnitPrice       string `json:"unit_price"`
	CreditAmount    string `json:"credit_amount"`
	DebitAmount     string `json:"debit_amount"`
	TaxType         string `json:"tax_type"`
	TaxCode         string `json:"tax_code"`
	TaxPercentage   string `json:"tax_pct"`
	ExemptionCode   string `json:"exemption_code"`
	ExemptionReason string `json:"exemption_reason"`
}

type TotalsView struct {
	Net      string `json:"net"`
	Tax      string `json:"tax"`
	Gross    string `json:"gross"`
	Currency string `json:"currency"`
}

type ShippingView struct {
	To   AddressView `json:"to"`
	From AddressView `json:"from"`
}

type AddressView struct {
	Address    string `json:"addr"`
	City       string `json:"city"`
	PostalCode string `json:"postal"`
	Country    string `json:"country"`
}

// missing is the display sentinel for absent values, shared with the OCR
// field map.
const missing = "—"

func display(s string) string {
	if t := text(s); t != "" {
		return t
	}
	return missing
}

// BuildInvoiceView projects the first sales invoice of doc. Returns nil when
// the file carries no sales invoice.
func BuildInvoiceView(doc *AuditFile) *InvoiceView {
	sales := salesInvoices(doc)
	if sales == nil || len(sales.Invoices) == 0 {
		return nil
	}
	inv := sales.Invoices[0]

	view := &InvoiceView{
		Supplier: supplierView(doc.Header),
		Customer: customerView(doc, text(inv.CustomerID)),
		Invoice: InvoiceMeta{
			InvoiceNo:       display(inv.InvoiceNo),
			InvoiceDate:     display(inv.InvoiceDate),
			InvoiceType:     display(inv.InvoiceType),
			Period:          display(inv.Period),
			SystemEntryDate: display(inv.SystemEntryDate),
			ATCUD:           display(inv.ATCUD),
			Hash:            display(inv.Hash),
			HashControl:     display(inv.HashControl),
			SourceID:        display(inv.SourceID),
			CustomerID:      display(inv.CustomerID),
		},
		Shipping: ShippingView{
			To:   shipAddress(inv.ShipTo),
			From: shipAddress(inv.ShipFrom),
		},
	}

	currency := missing
	if doc.Header != nil {
		currency = display(doc.Header.CurrencyCode)
	}
	totals := TotalsView{Net: missing, Tax: missing, Gross: missing, Currency: currency}
	if inv.DocumentTotals != nil {
		totals.Net = display(inv.DocumentTotals.NetTotal)
		totals.Tax = display(inv.DocumentTotals.TaxPayable)
		totals.Gross = display(inv.DocumentTotals.GrossTotal)
	}
	view.Totals = totals

	for _, line := range inv.Lines {
		lv := LineView{
			LineNumber:      display(line.LineNumber),
			ProductCode:     display(line.ProductCode),
			ProductDesc:     display(line.ProductDescription),
			Description:     display(line.Description),
			Quantity:        display(line.Quantity),
			UnitOfMeasure:   display(line.UnitOfMeasure),
			UnitPrice:       display(line.UnitPrice),
			CreditAmount:    display(line.CreditAmount),
			DebitAmount:     display(line.DebitAmount),
			TaxType:         missing,
			TaxCode:         missing,
			TaxPercentage:   missing,
			ExemptionCode:   display(line.TaxExemptionCode),
			ExemptionReason: display(line.TaxExemptionReason),
		}
		if line.Tax != nil {
			lv.TaxType = display(line.Tax.TaxType)
			lv.TaxCode = display(line.Tax.TaxCode)
			lv.TaxPercentage = display(line.Tax.TaxPercentage)
		}
		view.Lines = append(view.Lines, lv)
	}

	return view
}

func supplierView(h *Header) SupplierView {
	sv := SupplierView{
		CompanyName: missing, NIF: missing, CompanyID: missing, Email: missing,
		SoftwareCert: missing, ProductID: missing, ProductVersion: missing,
		AddressDetail: missing, City: missing, PostalCode: missing,
		Country: missing, Currency: missing,
	}
	if h == nil {
		return sv
	}
	sv.CompanyName = display(h.CompanyName)
	sv.NIF = display(h.TaxRegistrationNumber)
	sv.CompanyID = display(h.CompanyID)
	sv.Email = display(h.Email)
	sv.SoftwareCert = display(h.SoftwareCertificateNumber)
	sv.ProductID = display(h.ProductID)
	sv.ProductVersion = display(h.ProductVersion)
	sv.Currency = display(h.CurrencyCode)
	if h.CompanyAddress != nil {
		sv.AddressDetail = display(h.CompanyAddress.AddressDetail)
		sv.City = display(h.CompanyAddress.City)
		sv.PostalCode = display(h.CompanyAddress.PostalCode)
		sv.Country = display(h.CompanyAddress.Country)
	}
	return sv
}

func customerView(doc *AuditFile, customerID string) CustomerView {
	cv := CustomerView{
		CustomerID: missing, CompanyName: missing, NIF: missing,
		Contact: missing, Email: missing, AddressDetail: missing,
		City: missing, PostalCode: missing, Country: missing,
	}
	if doc.MasterFiles == nil || customerID == "" {
		return cv
	}
	for _, c := range doc.MasterFiles.Customers {
		if text(c.CustomerID) != customerID {
			continue
		}
		cv.CustomerID = display(c.CustomerID)
		cv.CompanyName = display(c.CompanyName)
		cv.NIF = display(c.CustomerTaxID)
		cv.Contact = display(c.Contact)
		cv.Email = display(c.Email)
		if c.BillingAddress != nil {
			cv.AddressDetail = display(c.BillingAddress.AddressDetail)
			cv.City = display(c.BillingAddress.City)
			cv.PostalCode = display(c.BillingAddress.PostalCode)
			cv.Country = display(c.BillingAddress.Country)
		}
		break
	}
	return cv
}

func shipAddress(p *ShipPoint) AddressView {
	av := AddressView{Address: missing, City: missing, PostalCode: missing, Country: missing}
	if p == nil || p.Address == nil {
		return av
	}
	av.Address = display(p.Address.AddressDetail)
	av.City = display(p.Address.City)
	av.PostalCode = display(p.Address.PostalCode)
	av.Country = display(p.Address.Country)
	return av
}
