package review

import (
	"testing"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	infra "github.com/dvloznov/peak-importer/internal/infra/bigquery"
)

func TestRowToNotionProperties(t *testing.T) {
	rec := &infra.PeakRowRecord{
		RowID:          "row-123",
		BatchID:        "batch-9",
		SourceFilename: "TTSTH2025110312345.pdf",
		Platform:       "TIKTOK",
		CompanyName:    "Rabbit",
		Reference:      "TTSTH2025110312345",
		DocDate: bigquery.NullDate{
			Date:  civil.Date{Year: 2025, Month: 11, Day: 3},
			Valid: true,
		},
		PaidAmount:       "107.00",
		Description:      "Marketplace Fee",
		PaymentMethod:    "",
		ValidationErrors: []string{"missing wallet"},
	}

	props := RowToNotionProperties(rec)

	title, ok := props["Row ID"].(notionapi.TitleProperty)
	if !ok {
		t.Fatalf("Row ID is %T, want TitleProperty", props["Row ID"])
	}
	if got := title.Title[0].Text.Content; got != "row-123" {
		t.Errorf("Row ID = %q, want row-123", got)
	}

	sel, ok := props["Platform"].(notionapi.SelectProperty)
	if !ok {
		t.Fatalf("Platform is %T, want SelectProperty", props["Platform"])
	}
	if sel.Select.Name != "TIKTOK" {
		t.Errorf("Platform = %q, want TIKTOK", sel.Select.Name)
	}

	date, ok := props["Doc Date"].(notionapi.DateProperty)
	if !ok {
		t.Fatalf("Doc Date is %T, want DateProperty", props["Doc Date"])
	}
	if got := date.Date.Start.String(); got[:10] != "2025-11-03" {
		t.Errorf("Doc Date start = %q, want 2025-11-03 prefix", got)
	}

	checkbox, ok := props["Missing Wallet"].(notionapi.CheckboxProperty)
	if !ok {
		t.Fatalf("Missing Wallet is %T, want CheckboxProperty", props["Missing Wallet"])
	}
	if !checkbox.Checkbox {
		t.Error("Missing Wallet should be checked for empty payment method")
	}
	if _, ok := props["Wallet"]; ok {
		t.Error("Wallet property should be absent when payment method is empty")
	}

	problems, ok := props["Problems"].(notionapi.RichTextProperty)
	if !ok {
		t.Fatalf("Problems is %T, want RichTextProperty", props["Problems"])
	}
	if got := problems.RichText[0].Text.Content; got != "missing wallet" {
		t.Errorf("Problems = %q, want missing wallet", got)
	}
}

func TestRowToNotionPropertiesWalletPresent(t *testing.T) {
	rec := &infra.PeakRowRecord{
		RowID:         "row-1",
		PaymentMethod: "EWL001",
	}

	props := RowToNotionProperties(rec)

	if _, ok := props["Missing Wallet"]; ok {
		t.Error("Missing Wallet should be absent when wallet resolved")
	}
	wallet, ok := props["Wallet"].(notionapi.RichTextProperty)
	if !ok {
		t.Fatalf("Wallet is %T, want RichTextProperty", props["Wallet"])
	}
	if got := wallet.RichText[0].Text.Content; got != "EWL001" {
		t.Errorf("Wallet = %q, want EWL001", got)
	}
}

func TestRowToNotionPropertiesSkipsEmptyFields(t *testing.T) {
	rec := &infra.PeakRowRecord{RowID: "row-2"}

	props := RowToNotionProperties(rec)

	for _, key := range []string{"Batch", "File", "Platform", "Company", "Reference", "Doc Date", "Paid Amount", "Description", "Problems"} {
		if _, ok := props[key]; ok {
			t.Errorf("property %q should be absent for empty record field", key)
		}
	}
}
