// Command datalab-cli runs the analysis core offline: parse a tabular
// file, infer column types, audit quality, and print the results to
// stdout. The same engines the server uses, without the HTTP layer.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"datalab/adapters/session"
	statstests "datalab/adapters/stats/tests"
	"datalab/adapters/tabular"
	"datalab/app"
	"datalab/internal/testkit"

	"github.com/spf13/cobra"
)

func main() {
	var withDescribe bool
	var asJSON bool

	rootCmd := &cobra.Command{
		Use:   "datalab-cli <file>",
		Short: "Offline dataset analysis",
		Long: `Parse a CSV or Excel file, infer column types, and audit data quality.

Example: datalab-cli survey.csv --describe`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), args[0], withDescribe, asJSON)
		},
	}

	rootCmd.Flags().BoolVar(&withDescribe, "describe", false, "Include descriptive statistics and the sample characteristics table")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "Emit the full report as JSON")

	rootCmd.AddCommand(newSeedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAnalyze(ctx context.Context, path string, withDescribe, asJSON bool) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	store := session.NewStore()
	imports := app.NewImportService(tabular.NewReader(0), store)
	analysis := app.NewAnalysisService(store, statstests.NewEngine(0), 0)

	result, err := imports.Import(ctx, app.ImportRequest{
		Filename: filepath.Base(path),
		Size:     info.Size(),
		Data:     file,
	})
	if err != nil {
		return err
	}

	report, err := analysis.Quality(ctx)
	if err != nil {
		return err
	}

	var described *app.DescribeResult
	if withDescribe || asJSON {
		described, err = analysis.Describe(ctx, nil)
		if err != nil {
			return err
		}
	}

	if asJSON {
		payload := map[string]any{
			"dataset":      result.Dataset,
			"quality":      report,
			"descriptives": described.Stats,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	ds := result.Dataset
	fmt.Printf("%s: %d rows, %d columns\n\n", ds.OriginalFilename, ds.RowCount, ds.ColumnCount)
	fmt.Printf("Quality score:  %d/100\n", report.Summary.QualityScore)
	fmt.Printf("Issues:         %d (%d critical)\n", report.Summary.TotalIssues, report.Summary.CriticalIssues)
	fmt.Printf("Duplicates:     %d rows (%.1f%%)\n", report.Duplicates.Count, report.Duplicates.Percentage)
	fmt.Printf("Missing cells:  %d (%.1f%%)\n", report.Missing.TotalMissing, report.Missing.OverallPercentage)
	if n := report.Outliers.ColumnsWithOutliers; n > 0 {
		fmt.Printf("Outliers:       %d column(s) flagged\n", n)
	}
	fmt.Printf("\n%s\n", report.Summary.Recommendation)

	if withDescribe {
		fmt.Printf("\n%s\n", described.Table1)
	}

	return nil
}

func newSeedCmd() *cobra.Command {
	var rows int
	var seed int64
	var output string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a synthetic survey CSV for trying the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := testkit.DefaultKitConfig()
			config.Respondents = rows
			config.Seed = seed

			data := testkit.NewGenerator(config).CSV()
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}

			fmt.Printf("Wrote %s (%d respondents, seed %d)\n", output, rows, seed)
			return nil
		},
	}

	cmd.Flags().IntVar(&rows, "rows", 120, "Number of respondents")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVar(&output, "output", "sample_survey.csv", "Output path")

	return cmd
}
