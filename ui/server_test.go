package ui

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"datalab/adapters/session"
	statstests "datalab/adapters/stats/tests"
	"datalab/adapters/tabular"
	"datalab/app"
	"datalab/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := session.NewStore()
	imports := app.NewImportService(tabular.NewReader(testUploadLimit), store)
	analysis := app.NewAnalysisService(store, statstests.NewEngine(0), 0)
	cleaning := app.NewCleaningService(store, store, nil)
	audits := app.NewAuditService(store)

	server, err := NewServer(imports, analysis, cleaning, audits)
	require.NoError(t, err)
	return server
}

func loadSurvey(t *testing.T, s *Server) {
	t.Helper()

	data := testkit.NewGenerator(testkit.DefaultKitConfig()).CSV()
	_, err := s.imports.Import(context.Background(), app.ImportRequest{
		Filename: "survey.csv",
		Size:     int64(len(data)),
		Data:     bytes.NewReader(data),
	})
	require.NoError(t, err)
}

func serveDashboard(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestDashboardIndexRenders(t *testing.T) {
	s := newTestServer(t)

	rec := serveDashboard(s, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upload dataset")
}

func TestDashboardIndexShowsDatasetCard(t *testing.T) {
	s := newTestServer(t)
	loadSurvey(t, s)

	rec := serveDashboard(s, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "survey.csv")
	assert.Contains(t, body, "v1_raw")
}

func TestDashboardQualityRedirectsWithoutDataset(t *testing.T) {
	s := newTestServer(t)

	rec := serveDashboard(s, http.MethodGet, "/quality")

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=")
}

func TestDashboardQualityView(t *testing.T) {
	s := newTestServer(t)
	loadSurvey(t, s)

	rec := serveDashboard(s, http.MethodGet, "/quality")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Quality audit")
	assert.Contains(t, body, "Data dictionary")
}

func TestDashboardDescriptivesView(t *testing.T) {
	s := newTestServer(t)
	loadSurvey(t, s)

	rec := serveDashboard(s, http.MethodGet, "/descriptives")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sample Characteristics")
}

func TestDashboardAnalysisView(t *testing.T) {
	s := newTestServer(t)
	loadSurvey(t, s)

	rec := serveDashboard(s, http.MethodGet, "/analysis")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Registered tests")
	assert.Contains(t, body, "satisfaction_score")
}

func TestDashboardAuditView(t *testing.T) {
	s := newTestServer(t)
	loadSurvey(t, s)

	_, err := s.cleaning.Apply(context.Background(), app.CleanRequest{Operation: "remove_duplicates"})
	require.NoError(t, err)

	rec := serveDashboard(s, http.MethodGet, "/audit")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "remove_duplicates")
}
