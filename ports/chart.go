package ports

import (
	"context"

	"labreport/domain/dataset"
	"labreport/domain/experiment"
)

// ChartPort renders a scatter plot of a series with its fitted line
type ChartPort interface {
	Render(ctx context.Context, req ChartRequest) (experiment.ChartRef, error)
}

// ChartRequest describes one chart
type ChartRequest struct {
	Series    dataset.Series
	Slope     float64
	Intercept float64
	RSquared  float64
	Title     string
	XLabel    string
	YLabel    string
}
