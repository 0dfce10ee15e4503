package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"labreport/internal"
	apperrors "labreport/internal/errors"
	"labreport/ports"
)

// DefaultMaxChars bounds the text handed to the LLM
const DefaultMaxChars = 30000

var (
	spaceRuns = regexp.MustCompile(`[ \t\f\v]+`)
	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// Extractor pulls the plain text out of PDF experiment manuals
type Extractor struct {
	maxChars int
	logger   *internal.Logger
}

var _ ports.TextExtractorPort = (*Extractor)(nil)

// NewExtractor creates an extractor; maxChars <= 0 uses DefaultMaxChars
func NewExtractor(maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Extractor{
		maxChars: maxChars,
		logger:   internal.DefaultLogger.WithComponent("PDFText"),
	}
}

// ExtractText returns the normalised text of every page, truncated to maxChars runes.
// Scanned documents without a text layer fail with INVALID_INPUT.
func (e *Extractor) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	// the parser panics on some malformed objects
	defer func() {
		if r := recover(); r != nil {
			text, err = "", apperrors.InvalidFileFormat(fmt.Sprintf("unreadable PDF: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperrors.InvalidFileFormat(fmt.Sprintf("unreadable PDF: %v", err))
	}

	pages := r.NumPage()
	fonts := make(map[string]*pdf.Font)
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := p.GetPlainText(fonts)
		if err != nil {
			e.logger.Warn("skipping page %d: %v", i, err)
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n\n")
	}

	text = normalize(sb.String())
	if text == "" {
		return "", apperrors.InvalidInput("the PDF has no extractable text; scanned manuals are not supported")
	}
	if runes := []rune(text); len(runes) > e.maxChars {
		e.logger.Info("manual text truncated from %d to %d characters", len(runes), e.maxChars)
		text = string(runes[:e.maxChars])
	}
	e.logger.Debug("extracted %d characters from %d pages", len(text), pages)
	return text, nil
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
