package evaluatecreditscore

import (
	"encoding/json"
	"strings"

	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/common/validation"
)

// GetInputSchema describes the job variables this worker reads. Other
// process variables are allowed through.
func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:                 "object",
		Required:             []string{"farmSize", "soilScore", "rainfall", "previousLoans", "yieldAmount"},
		AdditionalProperties: true,
		Properties: map[string]validation.Property{
			"applicantName": {Type: "string", MaxLength: validation.IntPtr(200)},
			"farmSize":      {Type: "number", ExclusiveMinimum: validation.Float64Ptr(0), Description: "hectares"},
			"soilScore":     {Type: "integer", Minimum: validation.Float64Ptr(0), Maximum: validation.Float64Ptr(100)},
			"rainfall":      {Type: "number", Minimum: validation.Float64Ptr(0), Description: "annual mm"},
			"previousLoans": {Type: "integer", Minimum: validation.Float64Ptr(0)},
			"yieldAmount":   {Type: "number", ExclusiveMinimum: validation.Float64Ptr(0), Description: "tonnes per hectare"},
		},
	}
}

// ParseInput decodes and validates raw job variables.
func ParseInput(raw string) (*Input, error) {
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}

	result := validation.ValidateInput(vars, GetInputSchema())
	if !result.Valid {
		return nil, errors.NewApplicationValidationFailedError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}
	return &input, nil
}
