package report

import (
	"strings"

	"labreport/domain/core"
)

// NarrativeSections is the prose produced by the narrative collaborator
type NarrativeSections struct {
	ExperimentInterpretation string `json:"experiment_results"`
	ResultAnalysis           string `json:"result_analysis"`
	Discussion               string `json:"discussion"`
}

// Validate enforces the required sections
func (n NarrativeSections) Validate() error {
	if strings.TrimSpace(n.ResultAnalysis) == "" {
		return core.NewInvalidInputError("result_analysis", "narrative section is required")
	}
	if strings.TrimSpace(n.Discussion) == "" {
		return core.NewInvalidInputError("discussion", "narrative section is required")
	}
	return nil
}

// BlockKind tags a document block
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockList      BlockKind = "list"
	BlockTable     BlockKind = "table"
	BlockNote      BlockKind = "note"
	BlockImage     BlockKind = "image"
	BlockRule      BlockKind = "rule"
)

// Block is one rendered Markdown fragment of a document
type Block struct {
	Kind  BlockKind `json:"kind"`
	Level int       `json:"level,omitempty"` // heading level
	Text  string    `json:"text"`
}

// Document is an ordered sequence of blocks
type Document struct {
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`
}

// Markdown renders the document as a single Markdown text.
// Blocks are separated by one blank line.
func (d *Document) Markdown() string {
	var b strings.Builder
	for i, blk := range d.Blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(blk.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// Headings returns heading texts in document order (without the leading #s)
func (d *Document) Headings() []string {
	var out []string
	for _, blk := range d.Blocks {
		if blk.Kind == BlockHeading {
			out = append(out, strings.TrimLeft(blk.Text, "# "))
		}
	}
	return out
}
