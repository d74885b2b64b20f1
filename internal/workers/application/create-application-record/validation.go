package createapplicationrecord

import (
	"encoding/json"
	"strings"

	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/common/validation"
	"agritrust-workers/internal/models"
)

func GetInputSchema() validation.JSONSchema {
	categories := make([]string, 0, len(models.RiskCategories))
	for _, c := range models.RiskCategories {
		categories = append(categories, string(c))
	}

	return validation.JSONSchema{
		Type: "object",
		Required: []string{
			"farmSize", "soilScore", "rainfall", "previousLoans", "yieldAmount",
			"trustScore", "riskCategory",
		},
		AdditionalProperties: true,
		Properties: map[string]validation.Property{
			"applicantName": {Type: "string", MaxLength: validation.IntPtr(200)},
			"farmSize":      {Type: "number", ExclusiveMinimum: validation.Float64Ptr(0)},
			"soilScore":     {Type: "integer", Minimum: validation.Float64Ptr(0), Maximum: validation.Float64Ptr(100)},
			"rainfall":      {Type: "number", Minimum: validation.Float64Ptr(0)},
			"previousLoans": {Type: "integer", Minimum: validation.Float64Ptr(0)},
			"yieldAmount":   {Type: "number", ExclusiveMinimum: validation.Float64Ptr(0)},
			"trustScore":    {Type: "number", Minimum: validation.Float64Ptr(0), Maximum: validation.Float64Ptr(100)},
			"riskCategory":  {Type: "string", Enum: categories},
			"officerId":     {Type: "string", MaxLength: validation.IntPtr(100)},
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
		return nil, errors.NewApplicationValidationFailedError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}
	return &input, nil
}
