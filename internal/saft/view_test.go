package saft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInvoiceView(t *testing.T) {
	doc := validDoc()
	doc.Header.Email = "faturacao@exemplo.pt"
	doc.MasterFiles.Customers[0].BillingAddress = &Address{
		AddressDetail: "Av. da Liberdade 100",
		City:          "Lisboa",
		PostalCode:    "1250-146",
		Country:       "PT",
	}

	view := BuildInvoiceView(doc)
	require.NotNil(t, view)

	assert.Equal(t, "Empresa Exemplo Lda", view.Supplier.CompanyName)
	assert.Equal(t, "501964843", view.Supplier.NIF)
	assert.Equal(t, "faturacao@exemplo.pt", view.Supplier.Email)
	assert.Equal(t, "EUR", view.Supplier.Currency)

	assert.Equal(t, "C001", view.Customer.CustomerID)
	assert.Equal(t, "Cliente Um", view.Customer.CompanyName)
	assert.Equal(t, "Lisboa", view.Customer.City)

	assert.Equal(t, "FT 2024/1", view.Invoice.InvoiceNo)
	assert.Equal(t, "JFF8A9BXZ-123", view.Invoice.ATCUD)

	require.Len(t, view.Lines, 1)
	assert.Equal(t, "P001", view.Lines[0].ProductCode)
	assert.Equal(t, "100.00", view.Lines[0].CreditAmount)

	assert.Equal(t, "100.00", view.Totals.Net)
	assert.Equal(t, "23.00", view.Totals.Tax)
	assert.Equal(t, "123.00", view.Totals.Gross)
}

func TestBuildInvoiceViewMissingValues(t *testing.T) {
	doc := validDoc()
	inv := &doc.SourceDocuments.SalesInvoices.Invoices[0]
	inv.CustomerID = ""
	inv.ShipTo = nil
	doc.Header.SoftwareCertificateNumber = ""

	view := BuildInvoiceView(doc)
	require.NotNil(t, view)

	assert.Equal(t, "—", view.Supplier.SoftwareCert)
	assert.Equal(t, "—", view.Customer.CompanyName)
	assert.Equal(t, "—", view.Invoice.CustomerID)
	assert.Equal(t, "—", view.Shipping.To.City)
}

func TestBuildInvoiceViewNoSales(t *testing.T) {
	doc := validDoc()
	doc.SourceDocuments.SalesInvoices = nil
	assert.Nil(t, BuildInvoiceView(doc))

	doc = validDoc()
	doc.SourceDocuments.SalesInvoices.Invoices = nil
	assert.Nil(t, BuildInvoiceView(doc))
}
