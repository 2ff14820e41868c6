package models

import (
	"encoding/json"
	"time"
)

// CacheRecord is one cached report payload, keyed by
// (propertyID, dataType, period). At most one live record exists per key.
type CacheRecord struct {
	PropertyID      string          `json:"propertyId"`
	DataType        string          `json:"dataType"`
	Period          string          `json:"period"`
	Data            json.RawMessage `json:"data"`
	LastUpdated     time.Time       `json:"lastUpdated"`
	ExpiresAt       time.Time       `json:"expiresAt"`
	UpdateFrequency int             `json:"updateFrequency"`
}

// WeekSnapshot is one trailing 7-day window of cached data. Data is nil when
// nothing was cached for that week.
type WeekSnapshot struct {
	WeekNumber int             `json:"weekNumber"`
	StartDate  time.Time       `json:"startDate"`
	EndDate    time.Time       `json:"endDate"`
	Data       json.RawMessage `json:"data"`
}

// ChangeRate holds per-metric week-over-week percentage deltas. A nil value
// means the delta is undefined for that metric (missing data or a zero
// previous value).
type ChangeRate struct {
	FromWeek int                 `json:"fromWeek"`
	ToWeek   int                 `json:"toWeek"`
	Changes  map[string]*float64 `json:"changeRate"`
}

type WeeklyTrend struct {
	PropertyID   string         `json:"propertyId"`
	DataType     string         `json:"dataType"`
	Weeks        []WeekSnapshot `json:"weeks"`
	ChangeRates  []ChangeRate   `json:"changeRates"`
	CalculatedAt time.Time      `json:"calculatedAt"`
}

// PromptTemplate is managed by the settings screens; this core only reads it.
type PromptTemplate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	InsightType string    `json:"insightType"`
	Prompt      string    `json:"prompt"`
	IsActive    bool      `json:"isActive"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Insight is append-only: every generation run creates a new row and the
// latest insight for a (type, property) is the most recently created one.
type Insight struct {
	ID                string          `json:"id"`
	Type              string          `json:"type"`
	PropertyID        string          `json:"propertyId"`
	Model             string          `json:"model"`
	Prompt            string          `json:"prompt"`
	Result            string          `json:"result"`
	DataSourceTypes   []string        `json:"dataSourceTypes"`
	AnalysisStartDate time.Time       `json:"analysisStartDate"`
	AnalysisEndDate   time.Time       `json:"analysisEndDate"`
	SourceInsightIDs  []string        `json:"sourceInsightIds,omitempty"`
	IsComprehensive   bool            `json:"isComprehensive"`
	WeeklyTrend       json.RawMessage `json:"weeklyTrend,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}
