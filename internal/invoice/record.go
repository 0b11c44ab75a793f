package invoice

import "fmt"

// Field names a Record field by its serialized key.
type Field string

// Record fields in their fixed output order.
const (
	FieldIssueDate     Field = "issue_date"
	FieldSeries        Field = "company_format"
	FieldInvoiceNumber Field = "invoice_number"
	FieldReference     Field = "reference"
	FieldTaxOption     Field = "tax_option"
	FieldContactID     Field = "contact_id"
	FieldTitle         Field = "title"
	FieldName          Field = "name"
	FieldOrganization  Field = "organization"
	FieldBranch        Field = "branch"
	FieldAddress       Field = "address"
	FieldEmail         Field = "email"
	FieldTelephone     Field = "telephone"
	FieldTaxID         Field = "tax_id"
	FieldStaff         Field = "staff"
	FieldDepartment    Field = "department"
	FieldProject       Field = "project"
	FieldWarehouse     Field = "warehouse"
	FieldDueDate       Field = "due_date"
	FieldType          Field = "type"
	FieldWHT           Field = "wht"
	FieldTaxReport     Field = "tax_report"
	FieldTaxDate       Field = "tax_date"
	FieldSubtotal      Field = "subtotal"
	FieldVATAmount     Field = "vat_amount"
	FieldTotalAmount   Field = "total_amount"
	FieldVATRate       Field = "vat_rate"
)

// Fields lists every Record field in output order.
var Fields = []Field{
	FieldIssueDate, FieldSeries, FieldInvoiceNumber, FieldReference, FieldTaxOption,
	FieldContactID, FieldTitle, FieldName, FieldOrganization, FieldBranch,
	FieldAddress, FieldEmail, FieldTelephone, FieldTaxID, FieldStaff,
	FieldDepartment, FieldProject, FieldWarehouse, FieldDueDate, FieldType,
	FieldWHT, FieldTaxReport, FieldTaxDate, FieldSubtotal, FieldVATAmount,
	FieldTotalAmount, FieldVATRate,
}

// AmountFields are the fields holding two-decimal monetary values.
var AmountFields = []Field{FieldSubtotal, FieldVATAmount, FieldTotalAmount, FieldWHT}

// DateFields are the fields holding ISO 8601 (YYYY-MM-DD) dates.
var DateFields = []Field{FieldIssueDate, FieldDueDate, FieldTaxDate}

// Tax options.
const (
	TaxInclusive = "in"
	TaxExclusive = "ex"
)

// Record is one tax invoice. The struct order is the serialized order.
type Record struct {
	IssueDate     string `json:"issue_date"`
	Series        string `json:"company_format"`
	InvoiceNumber string `json:"invoice_number"`
	Reference     string `json:"reference"`
	TaxOption     string `json:"tax_option"`
	ContactID     string `json:"contact_id"`
	Title         string `json:"title"`
	Name          string `json:"name"`
	Organization  string `json:"organization"`
	Branch        string `json:"branch"`
	Address       string `json:"address"`
	Email         string `json:"email"`
	Telephone     string `json:"telephone"`
	TaxID         string `json:"tax_id"`
	Staff         string `json:"staff"`
	Department    string `json:"department"`
	Project       string `json:"project"`
	Warehouse     string `json:"warehouse"`
	DueDate       string `json:"due_date"`
	Type          string `json:"type"`
	WHT           string `json:"wht"`
	TaxReport     string `json:"tax_report"`
	TaxDate       string `json:"tax_date"`
	Subtotal      string `json:"subtotal"`
	VATAmount     string `json:"vat_amount"`
	TotalAmount   string `json:"total_amount"`
	VATRate       string `json:"vat_rate"`
}

func (r *Record) ref(f Field) *string {
	switch f {
	case FieldIssueDate:
		return &r.IssueDate
	case FieldSeries:
		return &r.Series
	case FieldInvoiceNumber:
		return &r.InvoiceNumber
	case FieldReference:
		return &r.Reference
	case FieldTaxOption:
		return &r.TaxOption
	case FieldContactID:
		return &r.ContactID
	case FieldTitle:
		return &r.Title
	case FieldName:
		return &r.Name
	case FieldOrganization:
		return &r.Organization
	case FieldBranch:
		return &r.Branch
	case FieldAddress:
		return &r.Address
	case FieldEmail:
		return &r.Email
	case FieldTelephone:
		return &r.Telephone
	case FieldTaxID:
		return &r.TaxID
	case FieldStaff:
		return &r.Staff
	case FieldDepartment:
		return &r.Department
	case FieldProject:
		return &r.Project
	case FieldWarehouse:
		return &r.Warehouse
	case FieldDueDate:
		return &r.DueDate
	case FieldType:
		return &r.Type
	case FieldWHT:
		return &r.WHT
	case FieldTaxReport:
		return &r.TaxReport
	case FieldTaxDate:
		return &r.TaxDate
	case FieldSubtotal:
		return &r.Subtotal
	case FieldVATAmount:
		return &r.VATAmount
	case FieldTotalAmount:
		return &r.TotalAmount
	case FieldVATRate:
		return &r.VATRate
	}
	return nil
}

// Get returns the value of f, or "" for an unknown field.
func (r Record) Get(f Field) string {
	if p := r.ref(f); p != nil {
		return *p
	}
	return ""
}

// Set assigns v to f.
func (r *Record) Set(f Field, v string) error {
	p := r.ref(f)
	if p == nil {
		return fmt.Errorf("unknown invoice field %q", f)
	}
	*p = v
	return nil
}

// Present reports whether f holds a value derived from text: non-empty and
// different from the field's documented default.
func (r Record) Present(f Field) bool {
	v := r.Get(f)
	if v == "" {
		return false
	}
	if d, ok := Defaults[f]; ok && v == d {
		return false
	}
	return true
}

// Map returns the record as field name to value.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(Fields))
	for _, f := range Fields {
		m[string(f)] = r.Get(f)
	}
	return m
}

// FilledCount returns how many fields are Present.
func (r Record) FilledCount() int {
	n := 0
	for _, f := range Fields {
		if r.Present(f) {
			n++
		}
	}
	return n
}
