package ui

import (
	"bytes"
	"html/template"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// renderTemplate executes a template into a buffer first so a rendering
// failure produces a clean error response instead of a half-written page.
func (s *Server) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		log.Printf("[Dashboard] Template %s failed: %v", templateName, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":    "Template rendering failed",
			"template": templateName,
		})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// markdownHTML renders generated markdown (APA tables, the audit
// appendix) to HTML for embedding in a view. A fresh parser per call;
// gomarkdown parsers are single-use.
func markdownHTML(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return template.HTML(markdown.ToHTML([]byte(md), p, renderer))
}
