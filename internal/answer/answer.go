// Package answer interprets raw model output as a structured chart answer.
package answer

// ModelAnswer is one model response after parsing. Empty strings mean absent.
type ModelAnswer struct {
	Query             string       `json:"sqlQuery,omitempty"`
	VisualizationType string       `json:"visualizationType,omitempty"`
	ChartConfig       *ChartConfig `json:"chartConfig,omitempty"`
	Explanation       string       `json:"explanation,omitempty"`
	IsValid           bool         `json:"isValid"`
	ErrorMessage      string       `json:"errorMessage,omitempty"`
}

// ChartConfig carries optional rendering hints. Columns and SeriesFields are in render order.
type ChartConfig struct {
	Title             string            `json:"title,omitempty"`
	Subtitle          string            `json:"subtitle,omitempty"`
	Columns           []string          `json:"columns,omitempty"`
	ColumnLabels      map[string]string `json:"columnLabels,omitempty"`
	XAxisLabel        string            `json:"xAxisLabel,omitempty"`
	YAxisLabel        string            `json:"yAxisLabel,omitempty"`
	XAxisField        string            `json:"xAxisField,omitempty"`
	YAxisField        string            `json:"yAxisField,omitempty"`
	SeriesFields      []string          `json:"seriesFields,omitempty"`
	LabelField        string            `json:"labelField,omitempty"`
	ValueField        string            `json:"valueField,omitempty"`
	XField            string            `json:"xField,omitempty"`
	YField            string            `json:"yField,omitempty"`
	SizeField         string            `json:"sizeField,omitempty"`
	CategoryField     string            `json:"categoryField,omitempty"`
	ShowLegend        *bool             `json:"showLegend,omitempty"`
	ShowDataLabels    *bool             `json:"showDataLabels,omitempty"`
	LegendPosition    string            `json:"legendPosition,omitempty"`
	AdditionalOptions map[string]any    `json:"additionalOptions,omitempty"`
}

// Clone returns a deep copy so callers can hand the config outward without sharing maps or slices.
func (c *ChartConfig) Clone() *ChartConfig {
	if c == nil {
		return nil
	}
	out := *c
	if c.Columns != nil {
		out.Columns = append([]string(nil), c.Columns...)
	}
	if c.SeriesFields != nil {
		out.SeriesFields = append([]string(nil), c.SeriesFields...)
	}
	if c.ColumnLabels != nil {
		out.ColumnLabels = make(map[string]string, len(c.ColumnLabels))
		for k, v := range c.ColumnLabels {
			out.ColumnLabels[k] = v
		}
	}
	if c.AdditionalOptions != nil {
		out.AdditionalOptions = make(map[string]any, len(c.AdditionalOptions))
		for k, v := range c.AdditionalOptions {
			out.AdditionalOptions[k] = v
		}
	}
	if c.ShowLegend != nil {
		v := *c.ShowLegend
		out.ShowLegend = &v
	}
	if c.ShowDataLabels != nil {
		v := *c.ShowDataLabels
		out.ShowDataLabels = &v
	}
	return &out
}
