package ports

import (
	"context"

	"labreport/domain/experiment"
)

// TextExtractorPort pulls plain text out of an uploaded document
type TextExtractorPort interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// ManualExtractorPort turns the text of an experiment manual into ManualInfo
type ManualExtractorPort interface {
	ExtractManual(ctx context.Context, filename, text string) (*experiment.ManualInfo, error)
}
