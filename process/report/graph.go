package report

import (
	"errors"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const maxticks = 31

// Solve rates below this percentage are worth a look at new signatures.
const targetRate = 95

// createLine creates a horizontal line at y across xvalues.
func createLine(xvalues []float64, y float64, c drawing.Color) chart.ContinuousSeries {
	var yvalues []float64
	for range xvalues {
		yvalues = append(yvalues, y)
	}
	return chart.ContinuousSeries{
		XValues: xvalues,
		YValues: yvalues,
		Style: chart.Style{
			StrokeColor:     c,
			StrokeDashArray: []float64{5.0, 5.0},
		},
	}
}

// Graph renders the daily success rate as a PNG.
func Graph(days []DayStats, title string, w io.Writer) error {
	if len(days) < 2 {
		return errors.New("not enough days to graph")
	}

	var xvalues, yvalues []float64
	var ticks []chart.Tick
	tickevery := len(days) / maxticks
	if tickevery < 1 {
		tickevery = 1
	}
	for i, d := range days {
		x := float64(i)
		xvalues = append(xvalues, x)
		yvalues = append(yvalues, d.SuccessRate()*100)
		if i%tickevery == 0 {
			ticks = append(ticks, chart.Tick{Value: x, Label: d.Day})
		}
	}

	graph := chart.Chart{
		Title:  title,
		Width:  1600,
		Height: 900,
		XAxis: chart.XAxis{
			Name:  "Day",
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name: "Solved %",
			Range: &chart.ContinuousRange{
				Min: 0.0,
				Max: 100.0,
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					FillColor:   chart.ColorAlternateBlue,
				},
				XValues: xvalues,
				YValues: yvalues,
			},
			createLine(xvalues, targetRate, chart.ColorAlternateGreen),
		},
	}
	return graph.Render(chart.PNG, w)
}
