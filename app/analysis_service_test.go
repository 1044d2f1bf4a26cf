package app

import (
	"context"
	"strings"
	"testing"

	"datalab/adapters/session"
	statstests "datalab/adapters/stats/tests"
	"datalab/domain/core"
	domainStats "datalab/domain/stats"
	"datalab/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// analysisFixture wires the service over a loaded store
func analysisFixture(t *testing.T) *AnalysisService {
	t.Helper()
	store := session.NewStore()
	ds := testkit.NewGenerator(testkit.DefaultKitConfig()).Dataset("survey.csv")
	_, err := store.Save(context.Background(), ds)
	require.NoError(t, err)
	return NewAnalysisService(store, statstests.NewEngine(0), 0)
}

func TestQualityFindsInjectedDefects(t *testing.T) {
	svc := analysisFixture(t)

	report, err := svc.Quality(context.Background())
	require.NoError(t, err)

	config := testkit.DefaultKitConfig()
	assert.GreaterOrEqual(t, report.Duplicates.Count, config.DuplicateRows)
	assert.Greater(t, report.Missing.TotalMissing, 0)
	assert.Contains(t, report.Outliers.ByColumn, "age")
	assert.NotEmpty(t, report.Dictionary)
	assert.LessOrEqual(t, report.Summary.QualityScore, 100)
}

func TestDescribeFiltersVariables(t *testing.T) {
	svc := analysisFixture(t)

	result, err := svc.Describe(context.Background(), []string{"age", "gender"})
	require.NoError(t, err)

	assert.Equal(t, []string{"age", "gender"}, result.Stats.Columns)
	assert.Contains(t, result.Stats.Continuous, "age")
	assert.NotContains(t, result.Stats.Continuous, "satisfaction_score")
	assert.Contains(t, result.Stats.Categorical, "gender")

	assert.Contains(t, result.Table1, "Table 1")
	assert.Contains(t, result.Table1, "Sample Characteristics")
}

func TestDescribeUnfiltered(t *testing.T) {
	svc := analysisFixture(t)

	result, err := svc.Describe(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, result.Stats.Columns, 12)
}

func TestRunDispatchesCorrelation(t *testing.T) {
	svc := analysisFixture(t)

	result, err := svc.Run(context.Background(), RunRequest{AnalysisType: "correlation"})
	require.NoError(t, err)
	require.NotNil(t, result.Correlation)
	assert.Contains(t, result.Correlation.Variables, "satisfaction_score")
	assert.Contains(t, result.Correlation.Variables, "stress_score")
}

func TestRunDispatchesRegistryTest(t *testing.T) {
	svc := analysisFixture(t)

	result, err := svc.Run(context.Background(), RunRequest{
		AnalysisType: "ttest",
		Variables:    []string{"remote_worker", "satisfaction_score"},
		Objective:    "remote work and satisfaction",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Test)
	assert.Equal(t, domainStats.AnalysisTTest, result.Type)
	assert.NotEmpty(t, result.APA)
}

func TestRunRejectsUnknownType(t *testing.T) {
	svc := analysisFixture(t)

	_, err := svc.Run(context.Background(), RunRequest{AnalysisType: "manova"})
	assert.ErrorIs(t, err, core.ErrUnsupportedAnalysis)
}

func TestRunRequiresDataset(t *testing.T) {
	svc := NewAnalysisService(session.NewStore(), statstests.NewEngine(0), 0)

	_, err := svc.Run(context.Background(), RunRequest{AnalysisType: "correlation"})
	assert.ErrorIs(t, err, core.ErrNoDataset)
}

func TestTestsListsRegistry(t *testing.T) {
	svc := analysisFixture(t)

	infos := svc.Tests()
	require.Len(t, infos, 5)
	assert.Equal(t, domainStats.AnalysisTTest, infos[0].Name)
}

func TestAssumptionsDispatch(t *testing.T) {
	svc := analysisFixture(t)

	result, err := svc.Assumptions(context.Background(), AssumptionsRequest{
		CheckType: "normality",
		Variables: []string{"satisfaction_score"},
	})
	require.NoError(t, err)
	require.Len(t, result.Normality, 1)
	assert.Equal(t, "satisfaction_score", result.Normality[0].Variable)

	result, err = svc.Assumptions(context.Background(), AssumptionsRequest{
		CheckType: "homogeneity",
		Variables: []string{"remote_worker", "satisfaction_score"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Homogeneity)

	_, err = svc.Assumptions(context.Background(), AssumptionsRequest{
		CheckType: "homogeneity",
		Variables: []string{"satisfaction_score"},
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "grouping"))

	_, err = svc.Assumptions(context.Background(), AssumptionsRequest{CheckType: "sphericity"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown check type")
}

func TestReliabilityOverLikertItems(t *testing.T) {
	svc := analysisFixture(t)

	report, err := svc.Reliability(context.Background(), ReliabilityRequest{
		Items: []string{"item_1", "item_2", "item_3", "item_4", "item_5"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Scale", report.ScaleName)
	assert.Greater(t, report.Alpha, 0.0)
}
