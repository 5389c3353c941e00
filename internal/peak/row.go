// Package peak models the PEAK import row: a fixed, ordered set of 22
// columns (A–U) that every document must be reduced to before it can be
// imported into the bookkeeping system.
//
// A Row carries three kinds of data:
//   - the 22 contractual columns, as explicit struct fields;
//   - Extra: extractor-only hints (seller id, shop name, ...) that help
//     later pipeline stages but never reach the import file;
//   - Diag: "_"-prefixed diagnostic metadata that survives the schema lock
//     but is not part of the contractual output.
package peak

import "strings"

// DiagPrefix marks internal diagnostic keys. Anything starting with it
// survives Lock untouched; everything else outside the 22 columns is dropped.
const DiagPrefix = "_"

// Row is one accounting row in progress. All column values are strings in
// the import format: monetary fields as two-decimal numbers, dates as
// YYYYMMDD, identifiers zero-padded to fixed widths.
type Row struct {
	Seq             string
	CompanyName     string
	DocDate         string
	Reference       string
	VendorCode      string
	TaxID13         string
	Branch5         string
	InvoiceNo       string
	InvoiceDate     string
	TaxPurchaseDate string
	PriceType       string
	Account         string
	Description     string
	Qty             string
	UnitPrice       string
	VATRate         string
	WHT             string
	PaymentMethod   string
	PaidAmount      string
	PND             string
	Note            string
	Group           string

	// Extra holds unlocked extractor hints keyed by their raw field name.
	Extra map[string]string

	// Diag holds "_"-prefixed pipeline metadata.
	Diag map[string]string
}

// column binds a serialized key to its struct field.
type column struct {
	key string
	get func(*Row) string
	set func(*Row, string)
}

// columns is the contractual A–U order. This order is significant: the
// import file is positional and a shifted column corrupts every row after it.
var columns = []column{
	{"A_seq", func(r *Row) string { return r.Seq }, func(r *Row, v string) { r.Seq = v }},
	{"A_company_name", func(r *Row) string { return r.CompanyName }, func(r *Row, v string) { r.CompanyName = v }},
	{"B_doc_date", func(r *Row) string { return r.DocDate }, func(r *Row, v string) { r.DocDate = v }},
	{"C_reference", func(r *Row) string { return r.Reference }, func(r *Row, v string) { r.Reference = v }},
	{"D_vendor_code", func(r *Row) string { return r.VendorCode }, func(r *Row, v string) { r.VendorCode = v }},
	{"E_tax_id_13", func(r *Row) string { return r.TaxID13 }, func(r *Row, v string) { r.TaxID13 = v }},
	{"F_branch_5", func(r *Row) string { return r.Branch5 }, func(r *Row, v string) { r.Branch5 = v }},
	{"G_invoice_no", func(r *Row) string { return r.InvoiceNo }, func(r *Row, v string) { r.InvoiceNo = v }},
	{"H_invoice_date", func(r *Row) string { return r.InvoiceDate }, func(r *Row, v string) { r.InvoiceDate = v }},
	{"I_tax_purchase_date", func(r *Row) string { return r.TaxPurchaseDate }, func(r *Row, v string) { r.TaxPurchaseDate = v }},
	{"J_price_type", func(r *Row) string { return r.PriceType }, func(r *Row, v string) { r.PriceType = v }},
	{"K_account", func(r *Row) string { return r.Account }, func(r *Row, v string) { r.Account = v }},
	{"L_description", func(r *Row) string { return r.Description }, func(r *Row, v string) { r.Description = v }},
	{"M_qty", func(r *Row) string { return r.Qty }, func(r *Row, v string) { r.Qty = v }},
	{"N_unit_price", func(r *Row) string { return r.UnitPrice }, func(r *Row, v string) { r.UnitPrice = v }},
	{"O_vat_rate", func(r *Row) string { return r.VATRate }, func(r *Row, v string) { r.VATRate = v }},
	{"P_wht", func(r *Row) string { return r.WHT }, func(r *Row, v string) { r.WHT = v }},
	{"Q_payment_method", func(r *Row) string { return r.PaymentMethod }, func(r *Row, v string) { r.PaymentMethod = v }},
	{"R_paid_amount", func(r *Row) string { return r.PaidAmount }, func(r *Row, v string) { r.PaidAmount = v }},
	{"S_pnd", func(r *Row) string { return r.PND }, func(r *Row, v string) { r.PND = v }},
	{"T_note", func(r *Row) string { return r.Note }, func(r *Row, v string) { r.Note = v }},
	{"U_group", func(r *Row) string { return r.Group }, func(r *Row, v string) { r.Group = v }},
}

var columnByKey = func() map[string]column {
	m := make(map[string]column, len(columns))
	for _, c := range columns {
		m[c.key] = c
	}
	return m
}()

// Keys returns the 22 contractual column keys in import order.
func Keys() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.key
	}
	return out
}

// IsColumn reports whether key is one of the 22 contractual columns.
func IsColumn(key string) bool {
	_, ok := columnByKey[key]
	return ok
}

// New returns an empty row with initialized maps.
func New() *Row {
	return &Row{Extra: map[string]string{}, Diag: map[string]string{}}
}

// FromMap builds a row from an unlocked extractor field map. Known keys land
// in their columns, "_"-keys in Diag, everything else in Extra.
func FromMap(fields map[string]string) *Row {
	r := New()
	for k, v := range fields {
		r.Set(k, v)
	}
	return r
}

// Get returns the value for a column key, a diagnostic key, or an extra key.
func (r *Row) Get(key string) string {
	if c, ok := columnByKey[key]; ok {
		return c.get(r)
	}
	if strings.HasPrefix(key, DiagPrefix) {
		return r.Diag[key]
	}
	return r.Extra[key]
}

// Set stores a value under a column, diagnostic, or extra key.
func (r *Row) Set(key, value string) {
	if key == "" {
		return
	}
	if c, ok := columnByKey[key]; ok {
		c.set(r, value)
		return
	}
	if strings.HasPrefix(key, DiagPrefix) {
		if r.Diag == nil {
			r.Diag = map[string]string{}
		}
		r.Diag[key] = value
		return
	}
	if r.Extra == nil {
		r.Extra = map[string]string{}
	}
	r.Extra[key] = value
}

// Clone returns a deep copy.
func (r *Row) Clone() *Row {
	out := *r
	out.Extra = make(map[string]string, len(r.Extra))
	for k, v := range r.Extra {
		out.Extra[k] = v
	}
	out.Diag = make(map[string]string, len(r.Diag))
	for k, v := range r.Diag {
		out.Diag[k] = v
	}
	return &out
}

// Lock constrains the row to exactly the contractual schema: the 22 columns
// plus "_"-prefixed diagnostics. Extractor extras are dropped. The returned
// row is a copy; callers treat it as immutable.
func (r *Row) Lock() *Row {
	out := r.Clone()
	out.Extra = map[string]string{}
	return out
}

// Map renders the row as key→value pairs: the 22 columns (always present,
// empty string when unset) plus diagnostics.
func (r *Row) Map() map[string]string {
	out := make(map[string]string, len(columns)+len(r.Diag))
	for _, c := range columns {
		out[c.key] = c.get(r)
	}
	for k, v := range r.Diag {
		out[k] = v
	}
	return out
}

// Values returns the 22 column values in import order.
func (r *Row) Values() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.get(r)
	}
	return out
}
