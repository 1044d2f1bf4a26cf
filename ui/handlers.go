package ui

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"datalab/app"
	"datalab/domain/core"
	apperrors "datalab/internal/errors"
)

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "DataLab",
	})
}

// handleImport accepts a multipart upload under the "file" field, parses
// it, and loads it into the analysis slot.
func (a *App) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		a.respondError(w, apperrors.New(apperrors.CodeInvalidInput, "multipart upload with a \"file\" field is required"))
		return
	}
	defer file.Close()

	result, err := a.imports.Import(r.Context(), app.ImportRequest{
		Filename: header.Filename,
		Size:     header.Size,
		Data:     file,
	})
	if err != nil {
		a.respondError(w, err)
		return
	}

	payload := map[string]any{
		"success":      true,
		"dataset_id":   result.Dataset.ID,
		"filename":     result.Dataset.OriginalFilename,
		"row_count":    result.Dataset.RowCount,
		"column_count": result.Dataset.ColumnCount,
		"columns":      result.Dataset.Table.Columns,
		"column_types": result.Dataset.Types,
	}
	if result.Replaced != "" {
		payload["replaced"] = result.Replaced
	}
	respondJSON(w, http.StatusOK, payload)
}

func (a *App) handleDatasets(w http.ResponseWriter, r *http.Request) {
	slot, err := a.imports.Slot(r.Context())
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"dataset":  slot.Dataset,
		"versions": slot.Versions,
	})
}

func (a *App) handleClearDataset(w http.ResponseWriter, r *http.Request) {
	if err := a.imports.Clear(r.Context()); err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *App) handleQualityCheck(w http.ResponseWriter, r *http.Request) {
	report, err := a.analysis.Quality(r.Context())
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}

func (a *App) handleDescribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Variables []string `json:"variables"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	result, err := a.analysis.Describe(r.Context(), req.Variables)
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"descriptives":    result.Stats,
		"table1_markdown": result.Table1,
	})
}

func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	var req app.RunRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	result, err := a.analysis.Run(r.Context(), req)
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  result,
	})
}

func (a *App) handleAssumptions(w http.ResponseWriter, r *http.Request) {
	var req app.AssumptionsRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	result, err := a.analysis.Assumptions(r.Context(), req)
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  result,
	})
}

func (a *App) handleReliability(w http.ResponseWriter, r *http.Request) {
	var req app.ReliabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	report, err := a.analysis.Reliability(r.Context(), req)
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}

func (a *App) handleTests(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tests":   a.analysis.Tests(),
	})
}

func (a *App) handleClean(w http.ResponseWriter, r *http.Request) {
	var req app.CleanRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	result, err := a.cleaning.Apply(r.Context(), req)
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"operation":    result.Operation,
		"summary":      result.Summary,
		"detail":       result.Detail,
		"version":      result.Version,
		"entry":        result.Entry,
		"row_count":    result.Dataset.RowCount,
		"column_count": result.Dataset.ColumnCount,
	})
}

func (a *App) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Version string `json:"version"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}
	if req.Version == "" {
		a.respondError(w, apperrors.ValidationError("version is required"))
		return
	}

	ds, err := a.cleaning.RestoreVersion(r.Context(), req.Version)
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"version":      req.Version,
		"row_count":    ds.RowCount,
		"column_count": ds.ColumnCount,
	})
}

// handleAudit returns the trail as JSON, or as the markdown appendix
// when ?format=markdown is requested.
func (a *App) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "markdown" {
		doc, err := a.audits.Markdown(r.Context())
		if err != nil {
			a.respondError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(doc))
		return
	}

	trail, err := a.audits.Trail(r.Context())
	if err != nil {
		a.respondError(w, err)
		return
	}
	summary := trail.Summarize()
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"trail":   trail,
		"summary": summary,
	})
}

func (a *App) handleAuditUndo(w http.ResponseWriter, r *http.Request) {
	entry, err := a.audits.Undo(r.Context())
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"undone":  entry,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

// decodeJSON fills v from the request body. An empty body is accepted so
// filter-style requests can omit it entirely.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return apperrors.New(apperrors.CodeInvalidInput, "request body must be valid JSON")
	}
	return nil
}

// respondError maps domain and application errors onto the error
// envelope {success:false, error, code}.
func (a *App) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := apperrors.CodeInternalError

	switch {
	case core.IsNoDatasetError(err):
		status = http.StatusConflict
		code = "NO_DATASET"
	case core.IsNotFoundError(err):
		status = http.StatusNotFound
		code = apperrors.CodeNotFound
	case core.IsInputFormatError(err):
		status = http.StatusBadRequest
		code = apperrors.CodeParseError
	case errors.Is(err, core.ErrUnsupportedAnalysis),
		errors.Is(err, core.ErrUnsupportedOperation):
		status = http.StatusBadRequest
		code = apperrors.CodeInvalidInput
	case core.IsInsufficientDataError(err):
		status = http.StatusUnprocessableEntity
		code = apperrors.CodeAnalysisError
	case apperrors.GetCode(err) == apperrors.CodeValidationError,
		apperrors.GetCode(err) == apperrors.CodeInvalidInput:
		status = http.StatusBadRequest
		code = apperrors.GetCode(err)
	}

	if status == http.StatusInternalServerError {
		log.Printf("[API] Internal error: %v", err)
	}

	respondJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}
