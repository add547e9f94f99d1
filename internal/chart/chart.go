package chart

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/oshokin/outage-watch/internal/domain/outage"
)

const (
	// Width of the image in pixels.
	Width = 1000
	// Height of the image in pixels.
	Height = 400

	// tickEvery is the spacing of hour labels on the time axis.
	tickEvery = 4 * time.Hour
	// tickLayout formats hour labels.
	tickLayout = "15:04"

	// OnLabel marks the powered level.
	OnLabel = "Світло є"
	// OffLabel marks the outage level.
	OffLabel = "Відключено"
)

// ErrNoPoints is returned when there is nothing to draw.
var ErrNoPoints = errors.New("no points to chart")

//nolint:gochecknoglobals // Palette.
var (
	lineColor = drawing.ColorFromHex("d32f2f")
	fillColor = drawing.ColorFromHex("d32f2f").WithAlpha(76)
)

// Render draws points over the span ending at now and returns the PNG bytes.
// Labels use the location of now.
func Render(title string, points []outage.Point, now time.Time) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}

	from := now.Add(-outage.VisualizationSpan)
	xs, ys := steps(points, from, now)

	graph := gochart.Chart{
		Title:  title,
		Width:  Width,
		Height: Height,
		XAxis: gochart.XAxis{
			Range: &gochart.ContinuousRange{
				Min: gochart.TimeToFloat64(from),
				Max: gochart.TimeToFloat64(now),
			},
			Ticks: hourTicks(from, now),
		},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: -0.1, Max: 1.1},
			Ticks: []gochart.Tick{
				{Value: 0, Label: OnLabel},
				{Value: 1, Label: OffLabel},
			},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Style: gochart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					FillColor:   fillColor,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var out bytes.Buffer
	if err := graph.Render(gochart.PNG, &out); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}

	return out.Bytes(), nil
}

// steps expands points into a step line from from to now: the level holds
// until the next point, and the state before the first point is its opposite.
func steps(points []outage.Point, from, now time.Time) ([]time.Time, []float64) {
	xs := make([]time.Time, 0, 2*len(points)+2)
	ys := make([]float64, 0, 2*len(points)+2)

	level := float64(1 - points[0].Value)
	xs, ys = append(xs, from), append(ys, level)

	for _, point := range points {
		at := point.At
		if at.Before(from) {
			at = from
		}

		xs, ys = append(xs, at), append(ys, level)
		level = float64(point.Value)
		xs, ys = append(xs, at), append(ys, level)
	}

	xs, ys = append(xs, now), append(ys, level)

	return xs, ys
}

// hourTicks labels every tickEvery hours in the location of now.
func hourTicks(from, now time.Time) []gochart.Tick {
	var ticks []gochart.Tick

	every := int(tickEvery / time.Hour)

	for tick := from.Truncate(time.Hour).Add(time.Hour); !tick.After(now); tick = tick.Add(time.Hour) {
		local := tick.In(now.Location())
		if local.Hour()%every != 0 {
			continue
		}

		ticks = append(ticks, gochart.Tick{
			Value: gochart.TimeToFloat64(tick),
			Label: local.Format(tickLayout),
		})
	}

	return ticks
}
