// cmd/tools/registry-updater/main.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/common/validation"
	createapplicationrecord "agritrust-workers/internal/workers/application/create-application-record"
	notifyloandecision "agritrust-workers/internal/workers/application/notify-loan-decision"
	sendapplicationreport "agritrust-workers/internal/workers/application/send-application-report"
	evaluatecreditscore "agritrust-workers/internal/workers/scoring/evaluate-credit-score"
	"agritrust-workers/pkg/registry"

	"github.com/spf13/cobra"
)

const registryVersion = "1.0.0"

var registryPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "registry-updater",
		Short:        "Maintain the activity registry that documents each worker's job contract",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&registryPath, "path", "configs/activity-registry.json", "Path to registry file")

	root.AddCommand(generateCmd(), checkCmd(), validateCmd(), updateCmd())
	return root
}

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Rebuild the registry from the worker packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := build(time.Now().UTC())
			if existing, err := registry.LoadRegistry(registryPath); err == nil {
				keepManualFields(reg, existing)
			}
			if err := reg.Save(registryPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d activities to %s\n", len(reg.Activities), registryPath)
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fail if the registry file no longer matches the worker contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			drift, err := diff(build(time.Now().UTC()), existing)
			if err != nil {
				return err
			}
			if len(drift) > 0 {
				for _, d := range drift {
					fmt.Fprintln(cmd.ErrOrStderr(), d)
				}
				return fmt.Errorf("registry is out of date, run registry-updater generate")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Registry is up to date.")
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the registry file for structural errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			if err := reg.Validate(); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Registry is valid.")
			return nil
		},
	}
}

func updateCmd() *cobra.Command {
	var id, field, value string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Set the status, version or description of one activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			activity, ok := reg.Find(id)
			if !ok {
				return fmt.Errorf("activity %s not found", id)
			}
			switch field {
			case "status":
				activity.ImplementationStatus = value
			case "version":
				activity.Version = value
			case "description":
				activity.Description = value
			default:
				return fmt.Errorf("unsupported field: %s", field)
			}
			reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
			if err := reg.Save(registryPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s.%s\n", id, field)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Activity ID to update")
	cmd.Flags().StringVar(&field, "field", "", "Field to update (status, version, description)")
	cmd.Flags().StringVar(&value, "value", "", "New value for the field")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}

func build(now time.Time) *registry.ActivityRegistry {
	return &registry.ActivityRegistry{
		Version:     registryVersion,
		LastUpdated: now.Format(time.RFC3339),
		Activities: []registry.Activity{
			activity(evaluatecreditscore.TaskType, "Evaluate Credit Score", "scoring",
				"Scores a farm loan application with the tree ensemble and returns trust score, risk tier and explanations.",
				evaluatecreditscore.GetInputSchema(), evaluatecreditscore.Output{},
				errors.ErrCodeInputParsingFailed, errors.ErrCodeApplicationValidationFailed,
				errors.ErrCodeModelUnavailable, errors.ErrCodeTimeout),
			activity(createapplicationrecord.TaskType, "Create Application Record", "application",
				"Persists a scored application and returns the store-assigned id.",
				createapplicationrecord.GetInputSchema(), createapplicationrecord.Output{},
				errors.ErrCodeInputParsingFailed, errors.ErrCodeApplicationValidationFailed,
				errors.ErrCodeStorageUnavailable),
			activity(notifyloandecision.TaskType, "Notify Loan Decision", "notification",
				"Publishes the approve or reject decision for an application to the decision topic.",
				notifyloandecision.GetInputSchema(), notifyloandecision.Output{},
				errors.ErrCodeInputParsingFailed, errors.ErrCodeApplicationValidationFailed,
				errors.ErrCodeNotificationSendFailed),
			activity(sendapplicationreport.TaskType, "Send Application Report", "notification",
				"Emails portfolio statistics and the most recent applications to credit officers.",
				sendapplicationreport.GetInputSchema(), sendapplicationreport.Output{},
				errors.ErrCodeInputParsingFailed, errors.ErrCodeInvalidRiskFilter,
				errors.ErrCodeStorageUnavailable, errors.ErrCodeReportSendFailed),
		},
	}
}

func activity(taskType, name, category, description string, schema validation.JSONSchema, output interface{}, codes ...errors.ErrorCode) registry.Activity {
	a := registry.Activity{
		ID:                   taskType,
		DisplayName:          name,
		Description:          description,
		Category:             category,
		Version:              "1.0.0",
		TaskType:             taskType,
		ImplementationStatus: "completed",
		InputSchema:          schema,
		Outputs:              outputNames(output),
		Retries:              make(map[string]int, len(codes)),
		Tags:                 []string{category},
	}
	for _, code := range codes {
		bpmnCode, ok := errors.BPMNErrorMapping[code]
		if !ok {
			bpmnCode = string(code)
		}
		a.ErrorCodes = append(a.ErrorCodes, bpmnCode)
		a.Retries[bpmnCode] = errors.GetRetryCount(code)
	}
	return a
}

// outputNames lists the job variables a worker output struct completes with.
func outputNames(v interface{}) []string {
	t := reflect.TypeOf(v)
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		names = append(names, tag)
	}
	return names
}

// keepManualFields carries status and version edits made with update across
// a regenerate.
func keepManualFields(reg, existing *registry.ActivityRegistry) {
	for i := range reg.Activities {
		if old, ok := existing.Find(reg.Activities[i].TaskType); ok {
			reg.Activities[i].ImplementationStatus = old.ImplementationStatus
			reg.Activities[i].Version = old.Version
			if old.Description != "" {
				reg.Activities[i].Description = old.Description
			}
		}
	}
}

// diff compares the contract fields of two registries.
func diff(want, got *registry.ActivityRegistry) ([]string, error) {
	var drift []string
	for _, w := range want.Activities {
		g, ok := got.Find(w.TaskType)
		if !ok {
			drift = append(drift, fmt.Sprintf("missing activity: %s", w.TaskType))
			continue
		}
		for _, c := range []struct {
			field     string
			want, got interface{}
		}{
			{"inputSchema", w.InputSchema, g.InputSchema},
			{"outputs", w.Outputs, g.Outputs},
			{"errorCodes", w.ErrorCodes, g.ErrorCodes},
			{"retries", w.Retries, g.Retries},
		} {
			same, err := jsonEqual(c.want, c.got)
			if err != nil {
				return nil, err
			}
			if !same {
				drift = append(drift, fmt.Sprintf("%s: %s changed", w.TaskType, c.field))
			}
		}
	}
	for _, g := range got.Activities {
		if _, ok := want.Find(g.TaskType); !ok {
			drift = append(drift, fmt.Sprintf("unknown activity: %s", g.TaskType))
		}
	}
	return drift, nil
}

func jsonEqual(a, b interface{}) (bool, error) {
	ab, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ab, bb), nil
}
