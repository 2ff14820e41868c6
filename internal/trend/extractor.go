package trend

import (
	"encoding/json"
	"strconv"
	"strings"
)

// MetricExtractor pulls one named metric out of an upstream report payload.
// A nil return means the payload does not carry that metric.
type MetricExtractor interface {
	Extract(payload json.RawMessage, metric string) *float64
}

// RowsExtractor understands the rows/metricHeaders convention of the metrics
// provider: the header list names each column and every row carries the
// column values as strings. The metric is matched case-insensitively by name
// or substring and summed across all rows.
type RowsExtractor struct{}

type reportPayload struct {
	MetricHeaders []struct {
		Name string `json:"name"`
	} `json:"metricHeaders"`
	Rows []struct {
		MetricValues []struct {
			Value string `json:"value"`
		} `json:"metricValues"`
	} `json:"rows"`
}

func (RowsExtractor) Extract(payload json.RawMessage, metric string) *float64 {
	if len(payload) == 0 {
		return nil
	}

	var report reportPayload
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil
	}
	if len(report.Rows) == 0 {
		return nil
	}

	index := -1
	lowerMetric := strings.ToLower(metric)
	for i, header := range report.MetricHeaders {
		lowerName := strings.ToLower(header.Name)
		if lowerName == lowerMetric || strings.Contains(lowerName, lowerMetric) {
			index = i
			break
		}
	}
	if index == -1 {
		return nil
	}

	var sum float64
	for _, row := range report.Rows {
		if index >= len(row.MetricValues) {
			continue
		}
		value, err := strconv.ParseFloat(row.MetricValues[index].Value, 64)
		if err != nil {
			continue
		}
		sum += value
	}

	return &sum
}
