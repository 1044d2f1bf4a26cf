package ui

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"datalab/app"
	"datalab/domain/core"
	domainStats "datalab/domain/stats"
	"datalab/internal/tables"

	"github.com/gin-gonic/gin"
)

// handleIndex renders the landing page: upload form plus the current
// dataset card and version list when the slot is occupied.
func (s *Server) handleIndex(c *gin.Context) {
	data := gin.H{
		"Error":  c.Query("error"),
		"Notice": c.Query("notice"),
	}

	slot, err := s.imports.Slot(c.Request.Context())
	if err == nil {
		data["Dataset"] = slot.Dataset
		data["Versions"] = slot.Versions
	} else if !core.IsNoDatasetError(err) {
		s.redirectError(c, err)
		return
	}

	s.renderTemplate(c, "index.html", data)
}

func (s *Server) handleUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		s.redirectError(c, err)
		return
	}

	file, err := header.Open()
	if err != nil {
		s.redirectError(c, err)
		return
	}
	defer file.Close()

	result, err := s.imports.Import(c.Request.Context(), app.ImportRequest{
		Filename: header.Filename,
		Size:     header.Size,
		Data:     file,
	})
	if err != nil {
		s.redirectError(c, err)
		return
	}

	notice := "Imported " + result.Dataset.OriginalFilename
	c.Redirect(http.StatusSeeOther, "/?notice="+url.QueryEscape(notice))
}

func (s *Server) handleClear(c *gin.Context) {
	if err := s.imports.Clear(c.Request.Context()); err != nil {
		s.redirectError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleQualityView(c *gin.Context) {
	report, err := s.analysis.Quality(c.Request.Context())
	if err != nil {
		s.redirectError(c, err)
		return
	}

	s.renderTemplate(c, "quality.html", gin.H{
		"Report": report,
	})
}

func (s *Server) handleDescriptivesView(c *gin.Context) {
	variables := splitList(c.Query("variables"))

	result, err := s.analysis.Describe(c.Request.Context(), variables)
	if err != nil {
		s.redirectError(c, err)
		return
	}

	s.renderTemplate(c, "descriptives.html", gin.H{
		"Stats":  result.Stats,
		"Table1": markdownHTML(result.Table1),
	})
}

func (s *Server) handleAnalysisView(c *gin.Context) {
	slot, err := s.imports.Slot(c.Request.Context())
	if err != nil {
		s.redirectError(c, err)
		return
	}

	s.renderTemplate(c, "analysis.html", gin.H{
		"Dataset": slot.Dataset,
		"Columns": slot.Dataset.Table.Columns,
		"Tests":   s.analysis.Tests(),
	})
}

// handleAnalysisRun runs the requested analysis and re-renders the
// analysis page with the outcome and its APA table.
func (s *Server) handleAnalysisRun(c *gin.Context) {
	req := app.RunRequest{
		AnalysisType: c.PostForm("analysis_type"),
		Variables:    splitList(c.PostForm("variables")),
		Objective:    strings.TrimSpace(c.PostForm("objective")),
	}

	slot, err := s.imports.Slot(c.Request.Context())
	if err != nil {
		s.redirectError(c, err)
		return
	}

	data := gin.H{
		"Dataset": slot.Dataset,
		"Columns": slot.Dataset.Table.Columns,
		"Tests":   s.analysis.Tests(),
	}

	result, err := s.analysis.Run(c.Request.Context(), req)
	if err != nil {
		data["Error"] = err.Error()
		s.renderTemplate(c, "analysis.html", data)
		return
	}

	data["Result"] = result
	data["ResultTable"] = resultTable(result, req.Variables)
	s.renderTemplate(c, "analysis.html", data)
}

func (s *Server) handleCleanForm(c *gin.Context) {
	params := map[string]any{}
	if col := strings.TrimSpace(c.PostForm("column")); col != "" {
		params["column"] = col
	}
	if method := strings.TrimSpace(c.PostForm("method")); method != "" {
		params["method"] = method
	}
	if cols := splitList(c.PostForm("columns")); len(cols) > 0 {
		params["columns"] = cols
	}

	result, err := s.cleaning.Apply(c.Request.Context(), app.CleanRequest{
		Operation: c.PostForm("operation"),
		Params:    params,
	})
	if err != nil {
		s.redirectError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/audit?notice="+url.QueryEscape(result.Summary))
}

func (s *Server) handleAuditView(c *gin.Context) {
	doc, err := s.audits.Markdown(c.Request.Context())
	if err != nil {
		s.redirectError(c, err)
		return
	}

	trail, err := s.audits.Trail(c.Request.Context())
	if err != nil {
		s.redirectError(c, err)
		return
	}

	s.renderTemplate(c, "audit.html", gin.H{
		"Notice":   c.Query("notice"),
		"Appendix": markdownHTML(doc),
		"Entries":  trail.Entries,
	})
}

// resultTable builds the APA markdown table matching the result kind and
// renders it to HTML. Empty when the result has no tabular form.
func resultTable(result *domainStats.AnalysisResult, variables []string) template.HTML {
	builder := tables.NewBuilder()

	switch {
	case result.Correlation != nil:
		return markdownHTML(builder.CorrelationMatrix(result.Correlation).Document())
	case result.Regression != nil:
		return markdownHTML(builder.Regression(result.Regression).Document())
	case result.Test != nil && result.Type == domainStats.AnalysisChiSquare:
		table, err := builder.Contingency(result)
		if err != nil {
			return ""
		}
		return markdownHTML(table.Document())
	case result.Test != nil && len(variables) >= 2:
		table, err := builder.GroupComparison(result, variables[1])
		if err != nil {
			return ""
		}
		return markdownHTML(table.Document())
	}

	return ""
}

func (s *Server) redirectError(c *gin.Context, err error) {
	c.Redirect(http.StatusSeeOther, "/?error="+url.QueryEscape(err.Error()))
}

// splitList parses a comma-separated form value into trimmed names
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
