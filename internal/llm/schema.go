package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildPolicyJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map
// describing the expected provider response: a structured policyData object plus a
// narrative summary string. Used locally to validate every provider response.
func BuildPolicyJSONSchema() map[string]any {
	coverageDetail := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":        map[string]any{"type": "string", "minLength": 1},
			"limit":       map[string]any{"type": "string"},
			"deductible":  map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
		},
		"required": []string{"name"},
	}

	contacts := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"insurer": map[string]any{"type": "string"},
			"phone":   map[string]any{"type": "string"},
			"email":   map[string]any{"type": "string"},
			"website": map[string]any{"type": "string"},
		},
	}

	riskAssessment := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"level":   map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
			"score":   map[string]any{"type": "number", "minimum": 0.0, "maximum": 10.0},
			"factors": stringArray(),
		},
		"required": []string{"level"},
	}

	scenario := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "minLength": 1},
			"description": map[string]any{"type": "string"},
		},
		"required": []string{"title"},
	}

	policyData := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"policyType":      map[string]any{"type": "string", "minLength": 1},
			"coverageDetails": map[string]any{"type": "array", "items": coverageDetail},
			"exclusions":      stringArray(),
			"eligibility":     stringArray(),
			"keyBenefits":     stringArray(),
			"contacts":        contacts,
			"riskAssessment":  riskAssessment,
			"scenarios":       map[string]any{"type": "array", "items": scenario},
		},
		"required": []string{"policyType"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"policyData": policyData,
			"summary":    map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"policyData", "summary"},
	}
}

func stringArray() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
