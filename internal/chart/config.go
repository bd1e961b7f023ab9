package chart

import (
	json "github.com/goccy/go-json"
)

// LineConfig mirrors the Chart.js configuration object for a line chart.
type LineConfig struct {
	Type    string      `json:"type"`
	Data    LineData    `json:"data"`
	Options LineOptions `json:"options"`
}

type LineData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor"`
	BackgroundColor string    `json:"backgroundColor"`
	BorderWidth     int       `json:"borderWidth"`
	PointRadius     int       `json:"pointRadius"`
}

type LineOptions struct {
	Responsive bool   `json:"responsive"`
	Scales     Scales `json:"scales"`
}

type Scales struct {
	X Axis `json:"x"`
	Y Axis `json:"y"`
}

type Axis struct {
	BeginAtZero bool      `json:"beginAtZero,omitempty"`
	Title       AxisTitle `json:"title"`
}

type AxisTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

// NewLineConfig builds the chart configuration for a projection.
func NewLineConfig(p Projection) LineConfig {
	labels := p.Labels
	if labels == nil {
		labels = []string{}
	}
	datasets := make([]Dataset, 0, len(p.Series))
	for _, s := range p.Series {
		datasets = append(datasets, Dataset{
			Label:           s.Label,
			Data:            s.Data,
			BorderColor:     s.Color,
			BackgroundColor: "transparent",
			BorderWidth:     2,
			PointRadius:     4,
		})
	}
	return LineConfig{
		Type: "line",
		Data: LineData{Labels: labels, Datasets: datasets},
		Options: LineOptions{
			Responsive: true,
			Scales: Scales{
				X: Axis{Title: AxisTitle{Display: true, Text: "Date"}},
				Y: Axis{BeginAtZero: true, Title: AxisTitle{Display: true, Text: "Expense Amount ($)"}},
			},
		},
	}
}

// JSON encodes the configuration for the browser.
func (c LineConfig) JSON() ([]byte, error) {
	return json.Marshal(c)
}
