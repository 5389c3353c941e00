package bigquery

import (
	"testing"

	"github.com/dvloznov/peak-importer/internal/peak"
)

func TestNewPeakRowRecord(t *testing.T) {
	row := peak.New()
	row.DocDate = "20251103"
	row.InvoiceDate = "not-a-date"
	row.PaymentMethod = "EWL001"
	row.Group = "Marketplace Expense"
	row.Diag["_extraction_method"] = "rule_based_shopee"

	rec := NewPeakRowRecord("r1", "b1", "inv.pdf", "SHOPEE", row, nil)

	if !rec.DocDate.Valid {
		t.Error("valid doc date should map to a typed date")
	}
	if rec.DocDate.Date.Year != 2025 || int(rec.DocDate.Date.Month) != 11 || rec.DocDate.Date.Day != 3 {
		t.Errorf("DocDate = %v, want 2025-11-03", rec.DocDate.Date)
	}
	if rec.DocDateRaw != "20251103" {
		t.Errorf("DocDateRaw = %q", rec.DocDateRaw)
	}
	if rec.InvoiceDate.Valid {
		t.Error("unparseable invoice date should map to NULL")
	}
	if rec.ExpenseGroup != "Marketplace Expense" {
		t.Errorf("ExpenseGroup = %q", rec.ExpenseGroup)
	}
	if rec.NeedsReview {
		t.Error("row with wallet and no errors should not need review")
	}
	if !rec.Diagnostics.Valid {
		t.Error("diagnostics should be recorded")
	}
}

func TestNewPeakRowRecordNeedsReview(t *testing.T) {
	t.Run("validation errors", func(t *testing.T) {
		row := peak.New()
		row.PaymentMethod = "EWL001"
		rec := NewPeakRowRecord("r1", "b1", "", "SHOPEE", row, []string{"document date is not a valid YYYYMMDD date"})
		if !rec.NeedsReview {
			t.Error("rows with validation errors need review")
		}
	})
	t.Run("missing wallet", func(t *testing.T) {
		row := peak.New()
		rec := NewPeakRowRecord("r1", "b1", "", "SHOPEE", row, nil)
		if !rec.NeedsReview {
			t.Error("rows without a wallet need review")
		}
	})
}
