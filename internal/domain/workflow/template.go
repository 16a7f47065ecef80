package workflow

import "fmt"

// Template identifiers.
const (
	TemplateStandardReturn = "standard_return"
	TemplateUrgentReturn   = "urgent_return"
	TemplateWarrantyReturn = "warranty_return"
)

// StepDefinition is one entry of a workflow template: the stage name
// plus the default status and remark a freshly created step carries.
type StepDefinition struct {
	Name   string
	Status StepStatus
	Remark string
}

// templates is the fixed template catalog. Defined at process start,
// immutable at runtime.
var templates = map[string][]StepDefinition{
	TemplateStandardReturn: {
		{Name: "Request Submitted", Status: StepPending, Remark: "Return request received"},
		{Name: "Initial Review", Status: StepPending, Remark: ""},
		{Name: "Approval Decision", Status: StepPending, Remark: ""},
		{Name: "Processing", Status: StepPending, Remark: ""},
		{Name: "Completion", Status: StepPending, Remark: ""},
	},
	TemplateUrgentReturn: {
		{Name: "Request Submitted", Status: StepPending, Remark: "Urgent return request received"},
		{Name: "Priority Review", Status: StepPending, Remark: ""},
		{Name: "Fast Approval", Status: StepPending, Remark: ""},
		{Name: "Express Processing", Status: StepPending, Remark: ""},
		{Name: "Completion", Status: StepPending, Remark: ""},
	},
	TemplateWarrantyReturn: {
		{Name: "Request Submitted", Status: StepPending, Remark: "Warranty return request received"},
		{Name: "Warranty Verification", Status: StepPending, Remark: ""},
		{Name: "Technical Review", Status: StepPending, Remark: ""},
		{Name: "Approval Decision", Status: StepPending, Remark: ""},
		{Name: "Replacement/Refund", Status: StepPending, Remark: ""},
	},
}

// ResolveTemplate returns the ordered step definitions for a template
// id, or ErrInvalidTemplate for an unknown id. Used where a silent
// fallback would hide caller mistakes (template application).
func ResolveTemplate(templateID string) ([]StepDefinition, error) {
	defs, ok := templates[templateID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTemplate, templateID)
	}
	return copyDefinitions(defs), nil
}

// ResolveTemplateOrDefault returns the template's step definitions,
// falling back to standard_return for unknown ids. Used in replay and
// initialization contexts where a default flow is the right behavior.
func ResolveTemplateOrDefault(templateID string) []StepDefinition {
	defs, ok := templates[templateID]
	if !ok {
		defs = templates[TemplateStandardReturn]
	}
	return copyDefinitions(defs)
}

// TemplateIDs returns the known template identifiers.
func TemplateIDs() []string {
	ids := make([]string, 0, len(templates))
	for id := range templates {
		ids = append(ids, id)
	}
	return ids
}

// copyDefinitions returns a copy so callers cannot mutate the catalog.
func copyDefinitions(defs []StepDefinition) []StepDefinition {
	out := make([]StepDefinition, len(defs))
	copy(out, defs)
	return out
}
