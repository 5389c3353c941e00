package bigquery

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/peak-importer/internal/peak"
)

// PeakRowRecord is one finalized accounting row as stored in peak.rows.
// Column fields mirror the locked output schema; dates that validated are
// stored typed, the raw string is kept alongside for audit.
type PeakRowRecord struct {
	RowID   string `bigquery:"row_id"`   // REQUIRED
	BatchID string `bigquery:"batch_id"` // NULLABLE

	SourceFilename string `bigquery:"source_filename"` // NULLABLE
	Platform       string `bigquery:"platform"`        // NULLABLE

	Seq         string            `bigquery:"seq"`
	CompanyName string            `bigquery:"company_name"`
	DocDate     bigquery.NullDate `bigquery:"doc_date"`
	DocDateRaw  string            `bigquery:"doc_date_raw"`
	Reference   string            `bigquery:"reference"`
	VendorCode  string            `bigquery:"vendor_code"`
	TaxID13     string            `bigquery:"tax_id_13"`
	Branch5     string            `bigquery:"branch_5"`
	InvoiceNo   string            `bigquery:"invoice_no"`
	InvoiceDate bigquery.NullDate `bigquery:"invoice_date"`

	TaxPurchaseDate bigquery.NullDate `bigquery:"tax_purchase_date"`
	PriceType       string            `bigquery:"price_type"`
	Account         string            `bigquery:"account"`
	Description     string            `bigquery:"description"`
	Qty             string            `bigquery:"qty"`
	UnitPrice       string            `bigquery:"unit_price"`
	VATRate         string            `bigquery:"vat_rate"`
	WHT             string            `bigquery:"wht"`
	PaymentMethod   string            `bigquery:"payment_method"`
	PaidAmount      string            `bigquery:"paid_amount"`
	PND             string            `bigquery:"pnd"`
	Note            string            `bigquery:"note"`
	ExpenseGroup    string            `bigquery:"expense_group"`

	ValidationErrors []string          `bigquery:"validation_errors"` // REPEATED
	NeedsReview      bool              `bigquery:"needs_review"`
	Diagnostics      bigquery.NullJSON `bigquery:"diagnostics"` // NULLABLE JSON

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// NewPeakRowRecord maps a locked row and its validation errors into the
// storage record. A row needs review when it failed validation or has no
// payment wallet resolved.
func NewPeakRowRecord(rowID, batchID, filename, platform string, row *peak.Row, errs []string) *PeakRowRecord {
	rec := &PeakRowRecord{
		RowID:          rowID,
		BatchID:        batchID,
		SourceFilename: filename,
		Platform:       platform,

		Seq:         row.Seq,
		CompanyName: row.CompanyName,
		DocDate:     nullDateFromYYYYMMDD(row.DocDate),
		DocDateRaw:  row.DocDate,
		Reference:   row.Reference,
		VendorCode:  row.VendorCode,
		TaxID13:     row.TaxID13,
		Branch5:     row.Branch5,
		InvoiceNo:   row.InvoiceNo,
		InvoiceDate: nullDateFromYYYYMMDD(row.InvoiceDate),

		TaxPurchaseDate: nullDateFromYYYYMMDD(row.TaxPurchaseDate),
		PriceType:       row.PriceType,
		Account:         row.Account,
		Description:     row.Description,
		Qty:             row.Qty,
		UnitPrice:       row.UnitPrice,
		VATRate:         row.VATRate,
		WHT:             row.WHT,
		PaymentMethod:   row.PaymentMethod,
		PaidAmount:      row.PaidAmount,
		PND:             row.PND,
		Note:            row.Note,
		ExpenseGroup:    row.Group,

		ValidationErrors: errs,
		NeedsReview:      len(errs) > 0 || row.PaymentMethod == "",

		CreatedTS: time.Now(),
	}

	if len(row.Diag) > 0 {
		if b, err := json.Marshal(row.Diag); err == nil {
			rec.Diagnostics = bigquery.NullJSON{JSONVal: string(b), Valid: true}
		}
	}

	return rec
}

func nullDateFromYYYYMMDD(s string) bigquery.NullDate {
	if len(s) != 8 {
		return bigquery.NullDate{}
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: civil.DateOf(t), Valid: true}
}
