// cmd/tools/model-trainer/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"agritrust-workers/internal/classifier"
	"agritrust-workers/internal/training"

	"github.com/spf13/cobra"
)

type options struct {
	samples      int
	seed         int64
	testSize     float64
	out          string
	datasetOut   string
	modelVersion string
	params       training.Params
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{params: training.DefaultParams()}

	cmd := &cobra.Command{
		Use:   "model-trainer",
		Short: "Train the credit-scoring tree ensemble on synthetic farm data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.IntVar(&opts.samples, "samples", training.DefaultSamples, "Number of synthetic applicants")
	f.Int64Var(&opts.seed, "seed", training.DefaultSeed, "Random seed for data, split and boosting")
	f.Float64Var(&opts.testSize, "test-size", 0.2, "Fraction held out for evaluation")
	f.StringVar(&opts.out, "out", "models/credit_model.json", "Artifact output path")
	f.StringVar(&opts.datasetOut, "dataset-out", "", "Optional CSV path for the generated dataset")
	f.StringVar(&opts.modelVersion, "model-version", opts.params.ModelVersion, "Version recorded in the artifact")
	f.IntVar(&opts.params.MaxDepth, "max-depth", opts.params.MaxDepth, "Maximum tree depth")
	f.Float64Var(&opts.params.LearningRate, "learning-rate", opts.params.LearningRate, "Shrinkage applied to every leaf")
	f.IntVar(&opts.params.Rounds, "rounds", opts.params.Rounds, "Boosting rounds")
	f.Float64Var(&opts.params.Subsample, "subsample", opts.params.Subsample, "Row sampling per tree")
	f.Float64Var(&opts.params.ColsampleByTree, "colsample", opts.params.ColsampleByTree, "Feature sampling per tree")

	return cmd
}

func run(ctx context.Context, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Println("[1/5] Generating synthetic dataset")
	samples := training.GenerateDataset(opts.samples, opts.seed)
	fmt.Printf("      samples: %d  approval rate: %.2f%%\n", len(samples), training.ApprovalRate(samples)*100)

	if opts.datasetOut != "" {
		if err := writeFile(opts.datasetOut, func(f *os.File) error { return training.WriteDatasetCSV(f, samples) }); err != nil {
			return fmt.Errorf("failed to write dataset: %w", err)
		}
		fmt.Printf("      dataset written to %s\n", opts.datasetOut)
	}

	fmt.Printf("[2/5] Splitting (%.0f%% test, stratified)\n", opts.testSize*100)
	train, test, err := training.StratifiedSplit(samples, opts.testSize, opts.seed)
	if err != nil {
		return err
	}
	fmt.Printf("      train: %d  test: %d\n", len(train), len(test))

	fmt.Println("[3/5] Training gradient-boosted trees")
	params := opts.params
	params.Seed = opts.seed
	params.ModelVersion = opts.modelVersion
	artifact, err := training.Train(train, params)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Println("[4/5] Evaluating on the held-out set")
	ens, err := classifier.NewEnsemble(artifact)
	if err != nil {
		return fmt.Errorf("trained artifact does not compile: %w", err)
	}
	probs, err := training.Predict(ctx, ens, test)
	if err != nil {
		return err
	}
	accuracy := training.Accuracy(test, probs)
	auc := training.ROCAUC(test, probs)
	artifact.Metrics = map[string]float64{
		"accuracy": accuracy,
		"roc_auc":  auc,
	}
	fmt.Printf("      accuracy: %.4f  roc_auc: %.4f\n", accuracy, auc)

	names := make([]string, 0, len(artifact.Importance))
	for name := range artifact.Importance {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return artifact.Importance[names[i]] > artifact.Importance[names[j]] })
	for _, name := range names {
		fmt.Printf("      %-15s %.4f\n", name, artifact.Importance[name])
	}

	fmt.Println("[5/5] Saving artifact")
	raw, err := artifact.Marshal()
	if err != nil {
		return err
	}
	if err := classifier.ValidateArtifactJSON(raw); err != nil {
		return err
	}
	if err := writeFile(opts.out, func(f *os.File) error {
		_, err := f.Write(raw)
		return err
	}); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	fmt.Printf("      model %s saved to %s\n", artifact.ModelVersion, opts.out)
	return nil
}

func writeFile(path string, write func(f *os.File) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
