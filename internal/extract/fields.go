// Package extract recovers purchase-invoice fields from noisy OCR text using
// pattern matching and positional heuristics, then cross-checks the result
// for arithmetic and date coherence. Everything is best-effort: a signal that
// is absent yields a warn-status field, never a failure.
package extract

// Field statuses. Inferred marks a value derived from other fields rather
// than read from the page.
const (
	StatusOK       = "ok"
	StatusWarn     = "warn"
	StatusInferred = "inferido"
)

// ValueMissing is the display sentinel for an absent value.
const ValueMissing = "—"

// Field is one extracted attribute. Never mutated after creation.
type Field struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

// Present reports whether the field carries an extracted value.
func (f Field) Present() bool {
	return f.Value != ValueMissing
}

// Keys of the field map returned by Extract.
const (
	KeyDocType      = "doc_type"
	KeyNumber       = "numero"
	KeyDate         = "data"
	KeyATCUD        = "atcud"
	KeySupplierName = "fornecedor_nome"
	KeySupplierNIF  = "fornecedor_nif"
	KeyCustomerName = "cliente_nome"
	KeyCustomerNIF  = "cliente_nif"
	KeyTaxRate      = "taxa"
	KeyBase         = "base"
	KeyIVA          = "iva"
	KeyTotal        = "total"
	KeySoftwareCert = "software_cert"
	KeyQR           = "qr"
	KeyNIFsDetected = "nifs_detectados"
	KeyNIFsValid    = "nifs_validos"
)

// Fields maps the fixed key set to extracted fields.
type Fields map[string]Field

// Report is the outcome of one extraction run. Valid is true only when
// neither the extraction itself nor the coherence checks raised an error.
type Report struct {
	Fields Fields   `json:"fields"`
	Errors []string `json:"errors"`
	Valid  bool     `json:"valid"`
}

func newField(label, value, status, note string) Field {
	if value == "" {
		value = ValueMissing
	}
	return Field{Label: label, Value: value, Status: status, Note: note}
}

// field builds a Field whose status degrades to warn when the value is
// absent.
func field(label, value string) Field {
	status := StatusOK
	if value == "" {
		status = StatusWarn
	}
	return newField(label, value, status, "")
}
