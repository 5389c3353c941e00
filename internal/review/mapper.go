package review

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"

	infra "github.com/dvloznov/peak-importer/internal/infra/bigquery"
)

// RowToNotionProperties converts a stored row into the review database's
// properties. Row ID is the title so pages stay addressable for idempotent
// re-export.
func RowToNotionProperties(rec *infra.PeakRowRecord) notionapi.Properties {
	props := notionapi.Properties{
		"Row ID": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: rec.RowID,
					},
				},
			},
		},
	}

	if rec.BatchID != "" {
		props["Batch"] = richText(rec.BatchID)
	}
	if rec.SourceFilename != "" {
		props["File"] = richText(rec.SourceFilename)
	}
	if rec.Platform != "" {
		props["Platform"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: rec.Platform,
			},
		}
	}
	if rec.CompanyName != "" {
		props["Company"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: rec.CompanyName,
			},
		}
	}
	if rec.Reference != "" {
		props["Reference"] = richText(rec.Reference)
	}
	if rec.DocDate.Valid {
		d := notionapi.Date(time.Date(
			rec.DocDate.Date.Year,
			time.Month(rec.DocDate.Date.Month),
			rec.DocDate.Date.Day,
			0, 0, 0, 0, time.UTC,
		))
		props["Doc Date"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &d,
			},
		}
	}
	if rec.PaidAmount != "" {
		props["Paid Amount"] = richText(rec.PaidAmount)
	}
	if rec.Description != "" {
		props["Description"] = richText(rec.Description)
	}
	if rec.PaymentMethod == "" {
		props["Missing Wallet"] = notionapi.CheckboxProperty{Checkbox: true}
	} else {
		props["Wallet"] = richText(rec.PaymentMethod)
	}
	if len(rec.ValidationErrors) > 0 {
		props["Problems"] = richText(strings.Join(rec.ValidationErrors, "; "))
	}

	return props
}

func richText(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{
					Content: content,
				},
			},
		},
	}
}
