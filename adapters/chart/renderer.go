package chart

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"labreport/domain/experiment"
	apperrors "labreport/internal/errors"
	"labreport/ports"
)

// trendlineSamples is the number of points used to draw the fitted line
const trendlineSamples = 100

// Config holds chart output settings
type Config struct {
	WidthCm  float64
	HeightCm float64
	DPI      int
}

// DefaultConfig returns a 10x6 inch canvas at 150 dpi
func DefaultConfig() Config {
	return Config{
		WidthCm:  25.4,
		HeightCm: 15.24,
		DPI:      150,
	}
}

// Renderer implements ChartPort with gonum/plot and returns inline PNG data
type Renderer struct {
	config Config
}

var _ ports.ChartPort = (*Renderer)(nil)

// NewRenderer creates a renderer; zero config values fall back to defaults
func NewRenderer(config Config) *Renderer {
	def := DefaultConfig()
	if config.WidthCm <= 0 {
		config.WidthCm = def.WidthCm
	}
	if config.HeightCm <= 0 {
		config.HeightCm = def.HeightCm
	}
	if config.DPI <= 0 {
		config.DPI = def.DPI
	}
	return &Renderer{config: config}
}

// Render draws the scatter plot with a dashed trendline and an R² legend entry
func (r *Renderer) Render(ctx context.Context, req ports.ChartRequest) (experiment.ChartRef, error) {
	if err := ctx.Err(); err != nil {
		return experiment.ChartRef{}, err
	}
	if req.Series.Len() == 0 || len(req.Series.X) != len(req.Series.Y) {
		return experiment.ChartRef{}, apperrors.InvalidInput("chart requires a non-empty series with equal x and y lengths")
	}

	p, err := r.buildPlot(req)
	if err != nil {
		return experiment.ChartRef{}, apperrors.Wrap(err, "failed to build chart")
	}

	png, err := r.encodePNG(p)
	if err != nil {
		return experiment.ChartRef{}, apperrors.Wrap(err, "failed to encode chart")
	}

	return experiment.ChartRef{ImageBase64: base64.StdEncoding.EncodeToString(png)}, nil
}

func (r *Renderer) buildPlot(req ports.ChartRequest) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = req.Title
	p.X.Label.Text = req.XLabel
	p.Y.Label.Text = req.YLabel
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, req.Series.Len())
	xMin, xMax := req.Series.X[0], req.Series.X[0]
	for i := range pts {
		pts[i].X = req.Series.X[i]
		pts[i].Y = req.Series.Y[i]
		if pts[i].X < xMin {
			xMin = pts[i].X
		}
		if pts[i].X > xMax {
			xMax = pts[i].X
		}
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}

	line, err := plotter.NewLine(trendline(req.Slope, req.Intercept, xMin, xMax))
	if err != nil {
		return nil, fmt.Errorf("trendline: %w", err)
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}

	p.Add(scatter, line)
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Add("Data", scatter)
	p.Legend.Add(fmt.Sprintf("y = %.4fx %+.4f", req.Slope, req.Intercept), line)
	p.Legend.Add(fmt.Sprintf("R² = %.4f", req.RSquared))

	return p, nil
}

func (r *Renderer) encodePNG(p *plot.Plot) ([]byte, error) {
	w := vg.Length(r.config.WidthCm) * vg.Centimeter
	h := vg.Length(r.config.HeightCm) * vg.Centimeter

	canvas := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(r.config.DPI))
	p.Draw(draw.New(canvas))

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// trendline samples y = slope*x + intercept evenly over [xMin, xMax]
func trendline(slope, intercept, xMin, xMax float64) plotter.XYs {
	pts := make(plotter.XYs, trendlineSamples)
	step := (xMax - xMin) / float64(trendlineSamples-1)
	for i := range pts {
		x := xMin + step*float64(i)
		pts[i].X = x
		pts[i].Y = slope*x + intercept
	}
	return pts
}
