package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/marketing-insight/backend/internal/storage/models"
	"github.com/marketing-insight/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cached_analytics_data (
		property_id TEXT NOT NULL,
		data_type TEXT NOT NULL,
		period TEXT NOT NULL,
		data TEXT NOT NULL,
		last_updated INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		update_frequency INTEGER NOT NULL,
		PRIMARY KEY (property_id, data_type, period)
	);
	CREATE INDEX IF NOT EXISTS idx_cached_expires ON cached_analytics_data(expires_at);

	CREATE TABLE IF NOT EXISTS weekly_trend_data (
		property_id TEXT NOT NULL,
		data_type TEXT NOT NULL,
		weeks TEXT NOT NULL,
		change_rates TEXT NOT NULL,
		calculated_at INTEGER NOT NULL,
		PRIMARY KEY (property_id, data_type)
	);

	CREATE TABLE IF NOT EXISTS prompt_templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		insight_type TEXT,
		prompt TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_default INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_templates_type ON prompt_templates(insight_type);

	CREATE TABLE IF NOT EXISTS insights (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		property_id TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt TEXT NOT NULL,
		result TEXT NOT NULL,
		data_source_types TEXT,
		analysis_start_date INTEGER NOT NULL,
		analysis_end_date INTEGER NOT NULL,
		source_insight_ids TEXT,
		is_comprehensive INTEGER NOT NULL DEFAULT 0,
		weekly_trend TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_insights_lookup ON insights(type, property_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_insights_property ON insights(property_id, created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) GetCachedData(propertyID, dataType, period string) (*models.CacheRecord, error) {
	query := `
		SELECT property_id, data_type, period, data, last_updated, expires_at, update_frequency
		FROM cached_analytics_data
		WHERE property_id = ? AND data_type = ? AND period = ?
	`

	var rec models.CacheRecord
	var data string
	var lastUpdated, expiresAt int64

	err := c.db.QueryRow(query, propertyID, dataType, period).Scan(
		&rec.PropertyID,
		&rec.DataType,
		&rec.Period,
		&data,
		&lastUpdated,
		&expiresAt,
		&rec.UpdateFrequency,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached data: %w", err)
	}

	rec.Data = json.RawMessage(data)
	rec.LastUpdated = time.Unix(lastUpdated, 0)
	rec.ExpiresAt = time.Unix(expiresAt, 0)

	return &rec, nil
}

func (c *Client) UpsertCachedData(rec *models.CacheRecord) error {
	query := `
		INSERT INTO cached_analytics_data (property_id, data_type, period, data, last_updated, expires_at, update_frequency)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(property_id, data_type, period) DO UPDATE SET
			data = excluded.data,
			last_updated = excluded.last_updated,
			expires_at = excluded.expires_at,
			update_frequency = excluded.update_frequency
	`

	_, err := c.db.Exec(
		query,
		rec.PropertyID,
		rec.DataType,
		rec.Period,
		string(rec.Data),
		rec.LastUpdated.Unix(),
		rec.ExpiresAt.Unix(),
		rec.UpdateFrequency,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert cached data: %w", err)
	}

	logger.Debug("Cached data upserted",
		zap.String("property_id", rec.PropertyID),
		zap.String("data_type", rec.DataType),
		zap.String("period", rec.Period),
	)
	return nil
}

// DeleteExpiredCache removes records whose expiry has passed and which no
// refresh has touched since. This is garbage collection, not correctness.
func (c *Client) DeleteExpiredCache(now time.Time) (int64, error) {
	result, err := c.db.Exec(`DELETE FROM cached_analytics_data WHERE expires_at < ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}

func (c *Client) CachedDataCount() (int, error) {
	var count int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM cached_analytics_data`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cached data: %w", err)
	}
	return count, nil
}

func (c *Client) UpsertWeeklyTrend(trend *models.WeeklyTrend) error {
	weeksJSON, err := json.Marshal(trend.Weeks)
	if err != nil {
		return fmt.Errorf("failed to marshal weeks: %w", err)
	}
	ratesJSON, err := json.Marshal(trend.ChangeRates)
	if err != nil {
		return fmt.Errorf("failed to marshal change rates: %w", err)
	}

	query := `
		INSERT INTO weekly_trend_data (property_id, data_type, weeks, change_rates, calculated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(property_id, data_type) DO UPDATE SET
			weeks = excluded.weeks,
			change_rates = excluded.change_rates,
			calculated_at = excluded.calculated_at
	`

	_, err = c.db.Exec(
		query,
		trend.PropertyID,
		trend.DataType,
		string(weeksJSON),
		string(ratesJSON),
		trend.CalculatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert weekly trend: %w", err)
	}

	logger.Debug("Weekly trend upserted",
		zap.String("property_id", trend.PropertyID),
		zap.String("data_type", trend.DataType),
	)
	return nil
}

func (c *Client) GetWeeklyTrend(propertyID, dataType string) (*models.WeeklyTrend, error) {
	query := `
		SELECT property_id, data_type, weeks, change_rates, calculated_at
		FROM weekly_trend_data
		WHERE property_id = ? AND data_type = ?
	`

	var trend models.WeeklyTrend
	var weeksJSON, ratesJSON string
	var calculatedAt int64

	err := c.db.QueryRow(query, propertyID, dataType).Scan(
		&trend.PropertyID,
		&trend.DataType,
		&weeksJSON,
		&ratesJSON,
		&calculatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly trend: %w", err)
	}

	if err := json.Unmarshal([]byte(weeksJSON), &trend.Weeks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weeks: %w", err)
	}
	if err := json.Unmarshal([]byte(ratesJSON), &trend.ChangeRates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal change rates: %w", err)
	}
	trend.CalculatedAt = time.Unix(calculatedAt, 0)

	return &trend, nil
}

func (c *Client) GetPromptTemplate(id string) (*models.PromptTemplate, error) {
	query := `
		SELECT id, name, COALESCE(insight_type, ''), prompt, is_active, is_default, created_at, updated_at
		FROM prompt_templates
		WHERE id = ?
	`

	var tpl models.PromptTemplate
	var isActive, isDefault int
	var createdAt, updatedAt int64

	err := c.db.QueryRow(query, id).Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.InsightType,
		&tpl.Prompt,
		&isActive,
		&isDefault,
		&createdAt,
		&updatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt template: %w", err)
	}

	tpl.IsActive = isActive != 0
	tpl.IsDefault = isDefault != 0
	tpl.CreatedAt = time.Unix(createdAt, 0)
	tpl.UpdatedAt = time.Unix(updatedAt, 0)

	return &tpl, nil
}

func (c *Client) InsertInsight(ins *models.Insight) error {
	sourcesJSON, err := json.Marshal(ins.DataSourceTypes)
	if err != nil {
		return fmt.Errorf("failed to marshal data source types: %w", err)
	}

	var sourceIDsJSON interface{}
	if len(ins.SourceInsightIDs) > 0 {
		b, err := json.Marshal(ins.SourceInsightIDs)
		if err != nil {
			return fmt.Errorf("failed to marshal source insight ids: %w", err)
		}
		sourceIDsJSON = string(b)
	}

	var weeklyTrend interface{}
	if len(ins.WeeklyTrend) > 0 {
		weeklyTrend = string(ins.WeeklyTrend)
	}

	query := `
		INSERT INTO insights (id, type, property_id, model, prompt, result, data_source_types,
			analysis_start_date, analysis_end_date, source_insight_ids, is_comprehensive, weekly_trend, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	isComprehensive := 0
	if ins.IsComprehensive {
		isComprehensive = 1
	}

	_, err = c.db.Exec(
		query,
		ins.ID,
		ins.Type,
		ins.PropertyID,
		ins.Model,
		ins.Prompt,
		ins.Result,
		string(sourcesJSON),
		ins.AnalysisStartDate.Unix(),
		ins.AnalysisEndDate.Unix(),
		sourceIDsJSON,
		isComprehensive,
		weeklyTrend,
		ins.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}

	logger.Info("Insight saved",
		zap.String("insight_id", ins.ID),
		zap.String("type", ins.Type),
		zap.String("property_id", ins.PropertyID),
		zap.Bool("comprehensive", ins.IsComprehensive),
	)
	return nil
}

// GetLatestInsight returns the most recently created insight for the
// property, optionally narrowed by type and by the comprehensive flag.
// Returns nil when no insight matches.
func (c *Client) GetLatestInsight(insightType, propertyID string, comprehensive *bool) (*models.Insight, error) {
	query := `
		SELECT id, type, property_id, model, prompt, result, COALESCE(data_source_types, '[]'),
			analysis_start_date, analysis_end_date, COALESCE(source_insight_ids, ''),
			is_comprehensive, COALESCE(weekly_trend, ''), created_at
		FROM insights
		WHERE property_id = ?
	`
	args := []interface{}{propertyID}

	if insightType != "" {
		query += ` AND type = ?`
		args = append(args, insightType)
	}
	if comprehensive != nil {
		query += ` AND is_comprehensive = ?`
		if *comprehensive {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}
	query += ` ORDER BY created_at DESC LIMIT 1`

	var ins models.Insight
	var sourcesJSON, sourceIDsJSON, weeklyTrend string
	var isComprehensive int
	var startDate, endDate, createdAt int64

	err := c.db.QueryRow(query, args...).Scan(
		&ins.ID,
		&ins.Type,
		&ins.PropertyID,
		&ins.Model,
		&ins.Prompt,
		&ins.Result,
		&sourcesJSON,
		&startDate,
		&endDate,
		&sourceIDsJSON,
		&isComprehensive,
		&weeklyTrend,
		&createdAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest insight: %w", err)
	}

	if err := json.Unmarshal([]byte(sourcesJSON), &ins.DataSourceTypes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data source types: %w", err)
	}
	if sourceIDsJSON != "" {
		if err := json.Unmarshal([]byte(sourceIDsJSON), &ins.SourceInsightIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal source insight ids: %w", err)
		}
	}
	if weeklyTrend != "" {
		ins.WeeklyTrend = json.RawMessage(weeklyTrend)
	}
	ins.IsComprehensive = isComprehensive != 0
	ins.AnalysisStartDate = time.Unix(startDate, 0)
	ins.AnalysisEndDate = time.Unix(endDate, 0)
	ins.CreatedAt = time.Unix(createdAt, 0)

	return &ins, nil
}
