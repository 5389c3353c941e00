// Package aipatch implements the optional machine-assisted field filler. It
// asks a Gemini model for a JSON patch over the output schema and sanitizes
// the answer before the pipeline merges it. Patches are best effort: any
// model or parse failure surfaces as an error the pipeline records as a
// diagnostic and moves on from.
package aipatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/peak-importer/internal/peak"
	"github.com/dvloznov/peak-importer/internal/pipeline"
)

// DefaultModelName is the Gemini model used for field patches.
const DefaultModelName = "gemini-2.0-flash"

// Filler requests field patches from a Gemini model.
type Filler struct {
	client *genai.Client
	model  string
}

// New creates a Filler with its own GenAI client. Credentials come from the
// environment, same as every other Google client in this service.
func New(ctx context.Context) (*Filler, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("aipatch.New: create genai client: %w", err)
	}
	return &Filler{client: client, model: DefaultModelName}, nil
}

// NewWithModel creates a Filler pinned to a specific model name.
func NewWithModel(ctx context.Context, model string) (*Filler, error) {
	f, err := New(ctx)
	if err != nil {
		return nil, err
	}
	f.model = model
	return f, nil
}

// Patch implements pipeline.Patcher.
func (f *Filler) Patch(ctx context.Context, req pipeline.PatchRequest) (pipeline.PatchResult, error) {
	prompt := buildPrompt(req)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := f.client.Models.GenerateContent(ctx, f.model, contents, nil)
	if err != nil {
		return pipeline.PatchResult{}, fmt.Errorf("Patch: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return pipeline.PatchResult{}, fmt.Errorf("Patch: empty response from model")
	}

	fields, err := ParsePatch(rawText)
	if err != nil {
		return pipeline.PatchResult{}, fmt.Errorf("Patch: %w", err)
	}
	if len(fields) == 0 {
		return pipeline.PatchResult{}, nil
	}
	return pipeline.PatchResult{Fields: fields, Applied: true}, nil
}

// buildPrompt renders the extraction instruction: schema, document text,
// and on the repair pass the validation errors to address.
func buildPrompt(req pipeline.PatchRequest) string {
	var b strings.Builder
	b.WriteString("You are a document field extractor for Thai e-commerce and advertising invoices.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Read the document text below and extract accounting fields.\n")
	b.WriteString("- Output STRICT JSON only: one flat object, string values.\n")
	b.WriteString("- Use only these keys, omitting any you cannot determine:\n")
	for _, k := range peak.Keys() {
		fmt.Fprintf(&b, "  - %q\n", k)
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- Dates are YYYYMMDD.\n")
	b.WriteString("- Amounts are plain decimals without currency symbols or thousands separators.\n")
	b.WriteString("- VAT rate is \"7%\" or \"NO\".\n")
	b.WriteString("- Never invent values; omit unknown fields.\n")
	b.WriteString("- Return ONLY raw JSON, no code fences, no Markdown.\n")
	if req.PlatformHint != "" {
		fmt.Fprintf(&b, "\nThe document is believed to be from platform %s.\n", req.PlatformHint)
	}
	if req.Filename != "" {
		fmt.Fprintf(&b, "Source filename: %s\n", req.Filename)
	}
	if len(req.ValidationErrors) > 0 {
		b.WriteString("\nA previous extraction failed validation. Fix these problems:\n")
		for _, e := range req.ValidationErrors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	b.WriteString("\n# DOCUMENT TEXT\n")
	b.WriteString(req.Text)
	return b.String()
}

// ParsePatch cleans a model response and returns the sanitized field map.
// Non-column keys, blacklisted columns, and empty values are dropped.
func ParsePatch(raw string) (map[string]string, error) {
	clean := cleanModelJSON(raw)

	var loose map[string]any
	if err := json.Unmarshal([]byte(clean), &loose); err != nil {
		return nil, fmt.Errorf("ParsePatch: unmarshal JSON: %w", err)
	}

	fields := make(map[string]string, len(loose))
	for k, v := range loose {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case float64:
			fields[k] = trimFloat(val)
		case bool:
			if val {
				fields[k] = "1"
			} else {
				fields[k] = "0"
			}
		}
	}
	return peak.SanitizePatch(fields), nil
}

// cleanModelJSON strips Markdown fences and leading prose when the model
// ignores the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Some responses prepend prose before the object.
	if !strings.HasPrefix(s, "{") {
		if idx := strings.Index(s, "{"); idx != -1 {
			s = s[idx:]
		}
	}
	if !strings.HasSuffix(s, "}") {
		if idx := strings.LastIndex(s, "}"); idx != -1 {
			s = s[:idx+1]
		}
	}
	return s
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
