package sendapplicationreport

import (
	"encoding/json"
	"strings"

	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/common/validation"
	"agritrust-workers/internal/models"
)

func GetInputSchema() validation.JSONSchema {
	filters := []string{models.RiskAll}
	for _, c := range models.RiskCategories {
		filters = append(filters, string(c))
	}

	return validation.JSONSchema{
		Type:                 "object",
		AdditionalProperties: true,
		Properties: map[string]validation.Property{
			"recipients": {
				Type:  "array",
				Items: &validation.Property{Type: "string", MinLength: validation.IntPtr(3), MaxLength: validation.IntPtr(254)},
			},
			"riskFilter": {Type: "string", Enum: filters},
			"limit":      {Type: "integer", Minimum: validation.Float64Ptr(1), Maximum: validation.Float64Ptr(100)},
		},
	}
}

func ParseInput(raw string) (*Input, error) {
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}

	result := validation.ValidateInput(vars, GetInputSchema())
	if !result.Valid {
		if errs := result.GetErrorsForField("riskFilter"); len(errs) > 0 {
			filter, _ := vars["riskFilter"].(string)
			return nil, errors.NewInvalidRiskFilterError(filter)
		}
		return nil, errors.NewApplicationValidationFailedError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}
	for _, r := range input.Recipients {
		if !validation.ValidateEmail(r) {
			return nil, errors.NewApplicationValidationFailedError("invalid recipient address: " + r)
		}
	}
	return &input, nil
}
