package ports

import (
	"context"

	"datalab/domain/dataset"
	"datalab/domain/stats"
)

// AnalysisRunner dispatches supplemental statistical tests beyond the
// in-core correlation and regression analyses. Implementations own their
// test registry; Run rejects unregistered analysis types.
type AnalysisRunner interface {
	// Supports reports whether a test is registered for the analysis type.
	Supports(name stats.AnalysisType) bool

	// List returns the registered tests in presentation order.
	List() []stats.TestInfo

	// Run executes one test over the dataset's selected variables.
	Run(ctx context.Context, name stats.AnalysisType, ds *dataset.Dataset, variables []string) (*stats.AnalysisResult, error)
}
