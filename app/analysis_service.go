package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"datalab/domain/core"
	domainQuality "datalab/domain/quality"
	domainStats "datalab/domain/stats"
	"datalab/internal/assumptions"
	"datalab/internal/bivariate"
	"datalab/internal/describe"
	"datalab/internal/errors"
	"datalab/internal/quality"
	"datalab/internal/reliability"
	"datalab/internal/tables"
	"datalab/ports"
)

// AnalysisService runs every read-only analysis against the held dataset:
// quality audit, descriptives, correlation, regression, the supplemental
// test registry, assumption checks, and scale reliability. Every method
// reads the slot first, so an empty slot surfaces the typed no-dataset
// error before any computation starts.
type AnalysisService struct {
	store     ports.DatasetRepository
	runner    ports.AnalysisRunner
	auditor   *quality.Auditor
	describer *describe.Engine
	bivar     *bivariate.Engine
	checker   *assumptions.Checker
	scales    *reliability.Analyzer
}

// RunRequest defines one analysis invocation. Group comparison tests read
// Variables as [grouping, outcome]; regression reads them as
// [outcome, predictor]; correlation takes any number of continuous
// variables (empty means all).
type RunRequest struct {
	AnalysisType string   `json:"analysis_type"`
	Variables    []string `json:"variables"`
	Objective    string   `json:"objective,omitempty"`
}

// DescribeResult pairs the descriptive statistics with the APA-style
// sample characteristics table rendered from them.
type DescribeResult struct {
	Stats  *domainStats.DescriptiveStats `json:"descriptives"`
	Table1 string                        `json:"table1_markdown"`
}

// AssumptionsRequest selects one assumption check. Variables follow the
// convention of the analysis the check guards: homogeneity reads
// [grouping, outcome] and independence reads [outcome, predictor];
// the other checks take the columns to examine.
type AssumptionsRequest struct {
	CheckType string   `json:"check_type"`
	Variables []string `json:"variables"`
}

// AssumptionsResult carries the one report the requested check produced
type AssumptionsResult struct {
	CheckType         string                               `json:"check_type"`
	Normality         []assumptions.NormalityReport        `json:"normality,omitempty"`
	Homogeneity       *assumptions.HomogeneityReport       `json:"homogeneity,omitempty"`
	Multicollinearity *assumptions.MulticollinearityReport `json:"multicollinearity,omitempty"`
	Independence      *assumptions.IndependenceReport      `json:"independence,omitempty"`
}

// ReliabilityRequest names the scale items to analyze
type ReliabilityRequest struct {
	ScaleName string   `json:"scale_name,omitempty"`
	Items     []string `json:"items"`
}

// NewAnalysisService creates an analysis service over the store and the
// supplemental test runner. maxConcurrent bounds per-engine parallelism;
// a non-positive value falls back to each engine's default.
func NewAnalysisService(store ports.DatasetRepository, runner ports.AnalysisRunner, maxConcurrent int64) *AnalysisService {
	return &AnalysisService{
		store:     store,
		runner:    runner,
		auditor:   quality.NewAuditor(),
		describer: describe.NewEngine(maxConcurrent),
		bivar:     bivariate.NewEngine(maxConcurrent),
		checker:   assumptions.NewChecker(),
		scales:    reliability.NewAnalyzer(),
	}
}

// Quality audits the held dataset and returns the report with its
// data dictionary.
func (s *AnalysisService) Quality(ctx context.Context) (*domainQuality.QualityReport, error) {
	ds, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	report := s.auditor.Audit(ds)
	log.Printf("[Analysis] Quality audit of %s: score %d, %d issue(s)",
		ds.ID, report.Summary.QualityScore, report.Summary.TotalIssues)
	return report, nil
}

// Describe summarizes the held dataset's columns. A non-empty variables
// list narrows the summary to those columns; unknown names are ignored.
func (s *AnalysisService) Describe(ctx context.Context, variables []string) (*DescribeResult, error) {
	ds, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.describer.Describe(ctx, ds)
	if err != nil {
		return nil, err
	}
	if len(variables) > 0 {
		filterDescriptives(stats, variables)
	}
	table1 := tables.NewBuilder().Characteristics(stats).Document()
	return &DescribeResult{Stats: stats, Table1: table1}, nil
}

// Run executes one analysis. Correlation and regression run in-core;
// every other type dispatches to the supplemental test registry.
func (s *AnalysisService) Run(ctx context.Context, req RunRequest) (*domainStats.AnalysisResult, error) {
	ds, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	name := domainStats.AnalysisType(req.AnalysisType)

	var result *domainStats.AnalysisResult
	switch {
	case name == domainStats.AnalysisCorrelation:
		result, err = s.bivar.Correlation(ctx, ds, req.Variables)
	case name == domainStats.AnalysisRegression:
		result, err = s.bivar.Regression(ctx, ds, req.Variables)
	case s.runner.Supports(name):
		result, err = s.runner.Run(ctx, name, ds, req.Variables)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedAnalysis, req.AnalysisType)
	}
	if err != nil {
		return nil, err
	}

	if req.Objective != "" {
		log.Printf("[Analysis] %s for objective %q completed in %dms",
			name, req.Objective, time.Since(start).Milliseconds())
	} else {
		log.Printf("[Analysis] %s completed in %dms", name, time.Since(start).Milliseconds())
	}
	return result, nil
}

// Tests lists the supplemental tests the registry offers
func (s *AnalysisService) Tests() []domainStats.TestInfo {
	return s.runner.List()
}

// Assumptions runs the requested assumption check against the held dataset
func (s *AnalysisService) Assumptions(ctx context.Context, req AssumptionsRequest) (*AssumptionsResult, error) {
	ds, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}

	result := &AssumptionsResult{CheckType: req.CheckType}
	switch req.CheckType {
	case "normality":
		result.Normality, err = s.checker.Normality(ds, req.Variables)
	case "homogeneity":
		if len(req.Variables) != 2 {
			return nil, errors.ValidationError("homogeneity needs variables [grouping, outcome]")
		}
		result.Homogeneity, err = s.checker.Homogeneity(ds, req.Variables[1], req.Variables[0])
	case "multicollinearity":
		result.Multicollinearity, err = s.checker.Multicollinearity(ds, req.Variables)
	case "independence":
		if len(req.Variables) != 2 {
			return nil, errors.ValidationError("independence needs variables [outcome, predictor]")
		}
		result.Independence, err = s.checker.Independence(ds, req.Variables[0], req.Variables[1])
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown check type %q", req.CheckType))
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reliability computes Cronbach's alpha over the named scale items
func (s *AnalysisService) Reliability(ctx context.Context, req ReliabilityRequest) (*reliability.Report, error) {
	ds, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	name := req.ScaleName
	if name == "" {
		name = "Scale"
	}
	return s.scales.Analyze(ds, name, req.Items)
}

// filterDescriptives narrows the summary to the selected columns,
// preserving dataset order.
func filterDescriptives(stats *domainStats.DescriptiveStats, variables []string) {
	keep := make(map[string]bool, len(variables))
	for _, v := range variables {
		keep[v] = true
	}

	columns := stats.Columns[:0]
	for _, col := range stats.Columns {
		if keep[col] {
			columns = append(columns, col)
			continue
		}
		delete(stats.Continuous, col)
		delete(stats.Categorical, col)
	}
	stats.Columns = columns
}
