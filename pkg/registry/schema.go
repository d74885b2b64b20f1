// pkg/registry/schema.go
package registry

import "agritrust-workers/internal/common/validation"

// ActivityRegistry documents the BPMN service tasks this service implements:
// which job variables each reads and writes, and how failures surface.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

type Activity struct {
	ID                   string                `json:"id"`
	DisplayName          string                `json:"displayName"`
	Description          string                `json:"description"`
	Category             string                `json:"category"`
	Version              string                `json:"version"`
	TaskType             string                `json:"taskType"`
	ImplementationStatus string                `json:"implementationStatus"`
	InputSchema          validation.JSONSchema `json:"inputSchema"`
	Outputs              []string              `json:"outputs"`
	ErrorCodes           []string              `json:"errorCodes"`
	// Retries maps each BPMN error code to the retry budget the worker asks for.
	Retries map[string]int `json:"retries"`
	Tags    []string       `json:"tags,omitempty"`
}
