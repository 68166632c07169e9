package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/db"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/metrics"
)

const eventColumns = 7

const schema = `
CREATE TABLE IF NOT EXISTS analytics_events (
	id         TEXT PRIMARY KEY,
	ts         TIMESTAMPTZ NOT NULL,
	type       TEXT NOT NULL,
	category   TEXT NOT NULL,
	session_id TEXT NOT NULL,
	user_id    TEXT,
	data       JSONB
);
CREATE INDEX IF NOT EXISTS analytics_events_ts_idx ON analytics_events (ts DESC);
CREATE INDEX IF NOT EXISTS analytics_events_type_idx ON analytics_events (type);
CREATE INDEX IF NOT EXISTS analytics_events_category_idx ON analytics_events (category);
CREATE INDEX IF NOT EXISTS analytics_events_session_idx ON analytics_events (session_id);
CREATE TABLE IF NOT EXISTS analytics_metrics (
	date         DATE PRIMARY KEY,
	total_events INTEGER NOT NULL,
	by_type      JSONB NOT NULL,
	by_category  JSONB NOT NULL,
	sessions     INTEGER NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// refreshMetricsSQL recomputes one day's aggregate from the events table.
// Day bounds are UTC midnights, matching Event.Date.
const refreshMetricsSQL = `
WITH day AS (
	SELECT type, category, session_id FROM analytics_events
	WHERE ts >= ($1::date)::timestamp AT TIME ZONE 'UTC'
	  AND ts < ($1::date + 1)::timestamp AT TIME ZONE 'UTC'
)
INSERT INTO analytics_metrics (date, total_events, by_type, by_category, sessions, updated_at)
SELECT $1::date,
	(SELECT count(*) FROM day),
	COALESCE((SELECT jsonb_object_agg(type, n) FROM (SELECT type, count(*) AS n FROM day GROUP BY type) t), '{}'::jsonb),
	COALESCE((SELECT jsonb_object_agg(category, n) FROM (SELECT category, count(*) AS n FROM day GROUP BY category) c), '{}'::jsonb),
	(SELECT count(DISTINCT session_id) FROM day),
	now()
ON CONFLICT (date) DO UPDATE SET
	total_events = EXCLUDED.total_events,
	by_type = EXCLUDED.by_type,
	by_category = EXCLUDED.by_category,
	sessions = EXCLUDED.sessions,
	updated_at = EXCLUDED.updated_at`

// PostgresStore keeps events and daily metrics in Postgres.
type PostgresStore struct {
	conn      *sql.DB
	batchSize int
}

// NewPostgresStore wraps an open connection. batchSize bounds rows per INSERT.
func NewPostgresStore(conn *sql.DB, batchSize int) *PostgresStore {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &PostgresStore{conn: conn, batchSize: batchSize}
}

// Migrate creates the tables and indexes if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, schema)
	// Two instances racing on CREATE TABLE IF NOT EXISTS can collide on the
	// catalog; the loser sees a unique violation and the schema exists.
	if err != nil && !db.IsUniqueViolation(err) {
		return fmt.Errorf("migrate analytics schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	defer observe("save_batch", time.Now())
	err := db.InTx(ctx, s.conn, func(tx *sql.Tx) error {
		return s.writeBatch(ctx, tx, events)
	})
	if err != nil {
		metrics.AnalyticsStoreErrors.WithLabelValues("save_batch").Inc()
	}
	return err
}

// writeBatch inserts events in chunks and refreshes the metrics row of
// every day they touch.
func (s *PostgresStore) writeBatch(ctx context.Context, q db.DBTX, events []Event) error {
	for _, r := range db.Batches(len(events), s.batchSize) {
		query, args, err := insertEventsQuery(events[r[0]:r[1]])
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
	}
	for _, date := range datesOf(events) {
		if _, err := q.ExecContext(ctx, refreshMetricsSQL, date); err != nil {
			return fmt.Errorf("refresh metrics for %s: %w", date, err)
		}
	}
	return nil
}

func insertEventsQuery(events []Event) (string, []any, error) {
	args := make([]any, 0, len(events)*eventColumns)
	for _, e := range events {
		data, err := encodeData(e.Data)
		if err != nil {
			return "", nil, fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		args = append(args, e.ID, e.Timestamp.UTC(), e.Type, e.Category, e.SessionID,
			sql.NullString{String: e.UserID, Valid: e.UserID != ""}, data)
	}
	query := "INSERT INTO analytics_events (id, ts, type, category, session_id, user_id, data) VALUES " +
		db.ValuesPlaceholders(len(events), eventColumns) +
		" ON CONFLICT (id) DO NOTHING"
	return query, args, nil
}

func encodeData(data map[string]any) (pqtype.NullRawMessage, error) {
	if len(data) == 0 {
		return pqtype.NullRawMessage{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}

func (s *PostgresStore) Metrics(ctx context.Context, date string) (DailyMetrics, error) {
	defer observe("metrics", time.Now())
	var (
		m          DailyMetrics
		day        time.Time
		byType     pqtype.NullRawMessage
		byCategory pqtype.NullRawMessage
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT date, total_events, by_type, by_category, sessions, updated_at
		   FROM analytics_metrics WHERE date = $1::date`, date).
		Scan(&day, &m.TotalEvents, &byType, &byCategory, &m.Sessions, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return DailyMetrics{}, ErrNotFound
	}
	if err != nil {
		metrics.AnalyticsStoreErrors.WithLabelValues("metrics").Inc()
		return DailyMetrics{}, fmt.Errorf("query metrics: %w", err)
	}
	m.Date = day.Format(DateLayout)
	if m.ByType, err = decodeCounts(byType); err != nil {
		return DailyMetrics{}, err
	}
	if m.ByCategory, err = decodeCounts(byCategory); err != nil {
		return DailyMetrics{}, err
	}
	return m, nil
}

func decodeCounts(raw pqtype.NullRawMessage) (map[string]int, error) {
	out := map[string]int{}
	if !raw.Valid || len(raw.RawMessage) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw.RawMessage, &out); err != nil {
		return nil, fmt.Errorf("decode counts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Events(ctx context.Context, f EventFilter) ([]Event, error) {
	defer observe("events", time.Now())
	query, args := eventsQuery(f.Normalize())
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.AnalyticsStoreErrors.WithLabelValues("events").Inc()
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var (
			e      Event
			userID sql.NullString
			data   pqtype.NullRawMessage
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &e.Category, &e.SessionID, &userID, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.UserID = userID.String
		if data.Valid && len(data.RawMessage) > 0 {
			if err := json.Unmarshal(data.RawMessage, &e.Data); err != nil {
				return nil, fmt.Errorf("decode event %s data: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// eventsQuery builds the filtered SELECT with positional arguments.
func eventsQuery(f EventFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.SessionID != "" {
		add("session_id = $%d", f.SessionID)
	}
	if !f.Since.IsZero() {
		add("ts >= $%d", f.Since.UTC())
	}
	if !f.Until.IsZero() {
		add("ts < $%d", f.Until.UTC())
	}

	var sb strings.Builder
	sb.WriteString("SELECT id, ts, type, category, session_id, user_id, data FROM analytics_events")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, f.Limit)
	fmt.Fprintf(&sb, " ORDER BY ts DESC LIMIT $%d", len(args))
	return sb.String(), args
}

func observe(op string, start time.Time) {
	metrics.AnalyticsStoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
