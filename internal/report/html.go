package report

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"labreport/domain/report"
)

// RenderHTML renders Markdown text as a complete HTML page. Raw HTML is
// dropped and links are limited to safe protocols.
func RenderHTML(title string, md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(md)

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage | html.SkipHTML | html.Safelink,
		Title: title,
	})
	return markdown.Render(doc, renderer)
}

// DocumentHTML renders an assembled document as a complete HTML page
func DocumentHTML(doc *report.Document) []byte {
	return RenderHTML(doc.Title, []byte(doc.Markdown()))
}
