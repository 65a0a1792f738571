// Package saft implements the fiscal rule validator for SAF-T PT audit
// files. The document tree is decoded by the caller and only read here;
// every finding is appended to a per-run Accumulator.
package saft

import (
	"encoding/xml"
	"strings"
)

// Namespace is the SAF-T PT 1.04_01 XML namespace.
const Namespace = "urn:OECD:StandardAuditFile-Tax:PT_1.04_01"

// AuditFile is the decoded SAF-T PT document tree. Leaf values are kept as
// strings; a value that is blank after trimming counts as absent, which lets
// the validator report missing fields instead of failing the decode.
type AuditFile struct {
	XMLName         xml.Name         `xml:"urn:OECD:StandardAuditFile-Tax:PT_1.04_01 AuditFile"`
	Header          *Header          `xml:"Header"`
	MasterFiles     *MasterFiles     `xml:"MasterFiles"`
	SourceDocuments *SourceDocuments `xml:"SourceDocuments"`
}

type Header struct {
	AuditFileVersion          string   `xml:"AuditFileVersion"`
	CompanyID                 string   `xml:"CompanyID"`
	TaxRegistrationNumber     string   `xml:"TaxRegistrationNumber"`
	CompanyName               string   `xml:"CompanyName"`
	CompanyAddress            *Address `xml:"CompanyAddress"`
	FiscalYear                string   `xml:"FiscalYear"`
	StartDate                 string   `xml:"StartDate"`
	EndDate                   string   `xml:"EndDate"`
	CurrencyCode              string   `xml:"CurrencyCode"`
	DateCreated               string   `xml:"DateCreated"`
	ProductID                 string   `xml:"ProductID"`
	ProductVersion            string   `xml:"ProductVersion"`
	SoftwareCertificateNumber string   `xml:"SoftwareCertificateNumber"`
	Email                     string   `xml:"Email"`
}

type MasterFiles struct {
	TaxTable  *TaxTable  `xml:"TaxTable"`
	Customers []Customer `xml:"Customer"`
	Products  []Product  `xml:"Product"`
	Suppliers []Supplier `xml:"Supplier"`
}

type TaxTable struct {
	Entries []TaxTableEntry `xml:"TaxTableEntry"`
}

type TaxTableEntry struct {
	TaxType          string `xml:"TaxType"`
	TaxCountryRegion string `xml:"TaxCountryRegion"`
	TaxCode          string `xml:"TaxCode"`
	TaxPercentage    string `xml:"TaxPercentage"`
}

type Customer struct {
	CustomerID     string   `xml:"CustomerID"`
	CompanyName    string   `xml:"CompanyName"`
	CustomerTaxID  string   `xml:"CustomerTaxID"`
	Contact        string   `xml:"Contact"`
	Email          string   `xml:"Email"`
	BillingAddress *Address `xml:"BillingAddress"`
}

type Product struct {
	ProductCode        string `xml:"ProductCode"`
	ProductDescription string `xml:"ProductDescription"`
}

type Supplier struct {
	SupplierID     string   `xml:"SupplierID"`
	CompanyName    string   `xml:"CompanyName"`
	SupplierTaxID  string   `xml:"SupplierTaxID"`
	BillingAddress *Address `xml:"BillingAddress"`
}

type Address struct {
	AddressDetail string `xml:"AddressDetail"`
	City          string `xml:"City"`
	PostalCode    string `xml:"PostalCode"`
	Country       string `xml:"Country"`
}

type SourceDocuments struct {
	SalesInvoices    *SalesInvoices    `xml:"SalesInvoices"`
	Payments         *Payments         `xml:"Payments"`
	PurchaseInvoices *PurchaseInvoices `xml:"PurchaseInvoices"`
}

type SalesInvoices struct {
	Invoices []Invoice `xml:"Invoice"`
}

type PurchaseInvoices struct {
	Invoices []Invoice `xml:"Invoice"`
}

// Invoice covers both sales and purchase invoices; purchase invoices carry a
// SupplierID instead of a CustomerID.
type Invoice struct {
	InvoiceNo       string          `xml:"InvoiceNo"`
	InvoiceDate     string          `xml:"InvoiceDate"`
	InvoiceType     string          `xml:"InvoiceType"`
	Period          string          `xml:"Period"`
	SystemEntryDate string          `xml:"SystemEntryDate"`
	ATCUD           string          `xml:"ATCUD"`
	Hash            string          `xml:"Hash"`
	HashControl     string          `xml:"HashControl"`
	SourceID        string          `xml:"SourceID"`
	CustomerID      string          `xml:"CustomerID"`
	SupplierID      string          `xml:"SupplierID"`
	ShipTo          *ShipPoint      `xml:"ShipTo"`
	ShipFrom        *ShipPoint      `xml:"ShipFrom"`
	Lines           []Line          `xml:"Line"`
	DocumentTotals  *DocumentTotals `xml:"DocumentTotals"`
}

type ShipPoint struct {
	Address *Address `xml:"Address"`
}

type Line struct {
	LineNumber         string   `xml:"LineNumber"`
	ProductCode        string   `xml:"ProductCode"`
	ProductDescription string   `xml:"ProductDescription"`
	Description        string   `xml:"Description"`
	Quantity           string   `xml:"Quantity"`
	UnitOfMeasure      string   `xml:"UnitOfMeasure"`
	UnitPrice          string   `xml:"UnitPrice"`
	CreditAmount       string   `xml:"CreditAmount"`
	DebitAmount        string   `xml:"DebitAmount"`
	Tax                *LineTax `xml:"Tax"`
	TaxExemptionCode   string   `xml:"TaxExemptionCode"`
	TaxExemptionReason string   `xml:"TaxExemptionReason"`
}

type LineTax struct {
	TaxType          string `xml:"TaxType"`
	TaxCountryRegion string `xml:"TaxCountryRegion"`
	TaxCode          string `xml:"TaxCode"`
	TaxPercentage    string `xml:"TaxPercentage"`
}

type DocumentTotals struct {
	TaxPayable string `xml:"TaxPayable"`
	NetTotal   string `xml:"NetTotal"`
	GrossTotal string `xml:"GrossTotal"`
}

type Payments struct {
	Payments []Payment `xml:"Payment"`
}

type Payment struct {
	PaymentRefNo    string          `xml:"PaymentRefNo"`
	TransactionDate string          `xml:"TransactionDate"`
	ATCUD           string          `xml:"ATCUD"`
	Hash            string          `xml:"Hash"`
	HashControl     string          `xml:"HashControl"`
	Lines           []PaymentLine   `xml:"Line"`
	DocumentTotals  *DocumentTotals `xml:"DocumentTotals"`
}

type PaymentLine struct {
	SourceDocumentID *SourceDocumentID `xml:"SourceDocumentID"`
}

type SourceDocumentID struct {
	OriginatingON string `xml:"OriginatingON"`
}

// Decode parses a SAF-T PT XML document into an AuditFile.
func Decode(data []byte) (*AuditFile, error) {
	var doc AuditFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// text trims a leaf value; the empty result means the element was missing or
// blank, mirroring how the validator treats absent nodes.
func text(s string) string {
	return strings.TrimSpace(s)
}

func blank(s string) bool {
	return text(s) == ""
}
