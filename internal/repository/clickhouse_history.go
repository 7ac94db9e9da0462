package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"YieldScope/internal/domain/models"
	drepo "YieldScope/internal/domain/repository"
)

const historySchema = `CREATE TABLE IF NOT EXISTS %s (
	ts                   DateTime('UTC'),
	market_id            LowCardinality(String),
	asset                LowCardinality(String),
	smoothed_yield       Float64,
	effective_yield      Float64,
	trend                Float64,
	noise_variance       Float64,
	instability_variance Float64,
	liquidity_stress     Float64,
	confidence           Nullable(Float64),
	decision             LowCardinality(String)
) ENGINE = MergeTree
ORDER BY (market_id, asset, ts)`

const historyColumns = "ts, market_id, asset, smoothed_yield, effective_yield, trend, noise_variance, instability_variance, liquidity_stress, confidence, decision"

// ClickHouseHistory appends every output to a MergeTree table and serves
// range reads for the history endpoint.
type ClickHouseHistory struct {
	db    *sql.DB
	table string
}

func NewClickHouseHistory(db *sql.DB, table string) *ClickHouseHistory {
	return &ClickHouseHistory{db: db, table: table}
}

func (h *ClickHouseHistory) Name() string { return "clickhouse" }

func (h *ClickHouseHistory) Init(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, fmt.Sprintf(historySchema, h.table)); err != nil {
		return fmt.Errorf("create %s: %w", h.table, err)
	}
	return nil
}

func (h *ClickHouseHistory) Write(ctx context.Context, out *models.Output) error {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", h.table, historyColumns)
	var conf sql.NullFloat64
	if out.Metrics.Confidence != nil {
		conf = sql.NullFloat64{Float64: *out.Metrics.Confidence, Valid: true}
	}
	_, err := h.db.ExecContext(ctx, q,
		time.Unix(out.Timestamp, 0).UTC(),
		out.MarketID,
		out.Asset,
		out.Metrics.SmoothedYield,
		out.Metrics.EffectiveYield,
		out.Metrics.Trend,
		out.Metrics.Risk.NoiseVariance,
		out.Metrics.Risk.InstabilityVariance,
		out.Metrics.Risk.LiquidityStress,
		conf,
		string(out.Decision),
	)
	return err
}

// Query returns outputs in [from, to], newest first.
func (h *ClickHouseHistory) Query(ctx context.Context, marketID, asset string, from, to time.Time, limit int) ([]*models.Output, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE market_id = ? AND asset = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", historyColumns, h.table)
	rows, err := h.db.QueryContext(ctx, q, marketID, asset, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outs []*models.Output
	for rows.Next() {
		var (
			o        models.Output
			ts       time.Time
			conf     sql.NullFloat64
			decision string
		)
		if err := rows.Scan(&ts, &o.MarketID, &o.Asset,
			&o.Metrics.SmoothedYield, &o.Metrics.EffectiveYield, &o.Metrics.Trend,
			&o.Metrics.Risk.NoiseVariance, &o.Metrics.Risk.InstabilityVariance, &o.Metrics.Risk.LiquidityStress,
			&conf, &decision); err != nil {
			return nil, err
		}
		o.Timestamp = ts.Unix()
		if conf.Valid {
			c := conf.Float64
			o.Metrics.Confidence = &c
		}
		o.Decision = models.Decision(decision)
		outs = append(outs, &o)
	}
	return outs, rows.Err()
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (h *ClickHouseHistory) Close() error { return nil }

var (
	_ drepo.OutputSink = (*ClickHouseHistory)(nil)
	_ drepo.History    = (*ClickHouseHistory)(nil)
)
