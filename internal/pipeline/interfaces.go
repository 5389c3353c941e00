package pipeline

import (
	"context"

	"github.com/dvloznov/peak-importer/internal/config"
)

// Input is the fixed parameter set every collaborator receives. Extractors
// take the whole struct rather than a per-extractor argument list, so adding
// a hint never changes a signature.
type Input struct {
	Text         string
	Filename     string
	ClientTaxID  string
	PlatformHint string
	Cfg          *config.Config
}

// Classifier labels a document's platform from its text and filename.
// The label is free-form; the pipeline normalizes it to a route.
type Classifier interface {
	Classify(text, filename string) (string, error)
}

// Extractor produces raw field guesses for one platform. Returned keys are
// either output-schema columns or "_"-prefixed hints; values are strings.
// An error is never fatal to the pipeline, it triggers the generic fallback.
type Extractor interface {
	Extract(ctx context.Context, in Input) (map[string]string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, in Input) (map[string]string, error)

func (f ExtractorFunc) Extract(ctx context.Context, in Input) (map[string]string, error) {
	return f(ctx, in)
}

// PatchRequest asks an external enhancer for a best-effort field patch.
// ValidationErrors is non-empty only on the repair pass.
type PatchRequest struct {
	Input
	ValidationErrors []string
}

// PatchResult is an enhancer's outcome. Applied is false when the enhancer
// declined (disabled, no model, nothing to add), which is not an error.
type PatchResult struct {
	Fields  map[string]string
	Applied bool
}

// Patcher is the optional machine-assisted field-filling collaborator.
type Patcher interface {
	Patch(ctx context.Context, req PatchRequest) (PatchResult, error)
}

// VendorResolver maps a vendor's tax id or display name to the client's
// canonical vendor code. The boolean reports whether a code was found.
type VendorResolver interface {
	VendorCode(clientTaxID, vendorTaxID, vendorName string) (string, bool)
}

// Registry dispatches platform routes to extractors.
type Registry struct {
	byRoute map[string]Extractor
	generic Extractor
}

// NewRegistry creates a registry with the given generic fallback extractor.
// The fallback is required: it serves unknown routes and extractor failures.
func NewRegistry(generic Extractor) *Registry {
	return &Registry{
		byRoute: make(map[string]Extractor),
		generic: generic,
	}
}

// Register binds an extractor to a platform route, replacing any previous
// binding for that route.
func (r *Registry) Register(route string, ex Extractor) {
	r.byRoute[route] = ex
}

// Lookup returns the extractor for a route and the method label recorded in
// diagnostics. Routes with no binding get the generic fallback.
func (r *Registry) Lookup(route string) (Extractor, string) {
	if ex, ok := r.byRoute[route]; ok && ex != nil {
		return ex, "rule_based_" + lower(route)
	}
	if route == RouteGeneric {
		return r.generic, "generic"
	}
	return r.generic, "generic_" + lower(route) + "_fallback"
}

// Generic returns the fallback extractor.
func (r *Registry) Generic() Extractor { return r.generic }
