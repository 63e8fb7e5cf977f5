package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"MarketSage/internal/domain/models"
	applogger "MarketSage/pkg/logger"
)

const predictionSchema = `
CREATE TABLE IF NOT EXISTS predictions (
	id BIGSERIAL PRIMARY KEY,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	target_price DOUBLE PRECISION,
	stop_loss DOUBLE PRECISION,
	time_horizon TEXT NOT NULL,
	market_condition TEXT NOT NULL,
	price_at_creation DOUBLE PRECISION NOT NULL,
	analysis_kind TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	outcome TEXT NOT NULL DEFAULT 'pending',
	outcome_verified_at TIMESTAMPTZ,
	price_at_verification DOUBLE PRECISION,
	accuracy_score DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_predictions_pending
	ON predictions (expires_at) WHERE outcome = 'pending';
CREATE INDEX IF NOT EXISTS idx_predictions_symbol
	ON predictions (symbol, created_at DESC);

CREATE TABLE IF NOT EXISTS prediction_factors (
	id BIGSERIAL PRIMARY KEY,
	prediction_id BIGINT NOT NULL REFERENCES predictions(id) ON DELETE CASCADE,
	factor_type TEXT NOT NULL,
	factor_name TEXT NOT NULL,
	factor_value TEXT NOT NULL,
	weight DOUBLE PRECISION NOT NULL,
	description TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prediction_factors_prediction
	ON prediction_factors (prediction_id);
`

// PGPredictionStore implements PredictionStore backed by Postgres.
type PGPredictionStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewPGPredictionStore(db *sql.DB) *PGPredictionStore {
	return &PGPredictionStore{db: db}
}

// SetLogger injects a structured logger.
func (s *PGPredictionStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init creates the schema when it does not exist yet.
func (s *PGPredictionStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, predictionSchema); err != nil {
		return fmt.Errorf("init prediction schema: %w", err)
	}
	return nil
}

// CreateWithFactors persists the record and its factor rows in one
// transaction. Either everything lands or nothing does.
func (s *PGPredictionStore) CreateWithFactors(ctx context.Context, rec *models.PredictionRecord, factors []models.Factor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	const insertPrediction = `
		INSERT INTO predictions (
			symbol, direction, confidence, target_price, stop_loss,
			time_horizon, market_condition, price_at_creation, analysis_kind,
			created_at, expires_at, outcome
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	err = tx.QueryRowContext(ctx, insertPrediction,
		rec.Symbol,
		string(rec.Direction),
		rec.Confidence,
		rec.TargetPrice,
		rec.StopLoss,
		string(rec.TimeHorizon),
		string(rec.MarketCondition),
		rec.PriceAtCreation,
		string(rec.AnalysisKind),
		rec.CreatedAt,
		rec.ExpiresAt,
		string(models.OutcomePending),
	).Scan(&rec.ID)
	if err != nil {
		if s.l != nil {
			s.l.Error("insert prediction failed",
				applogger.String("symbol", rec.Symbol),
				applogger.Error(err))
		}
		return fmt.Errorf("insert prediction: %w", err)
	}

	const insertFactor = `
		INSERT INTO prediction_factors (
			prediction_id, factor_type, factor_name, factor_value, weight, description
		) VALUES ($1, $2, $3, $4, $5, $6)`
	for _, f := range factors {
		if _, err := tx.ExecContext(ctx, insertFactor,
			rec.ID, string(f.Kind), f.Name, f.Value, f.Weight, f.Description); err != nil {
			return fmt.Errorf("insert factor %q: %w", f.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	rec.Outcome = models.OutcomePending
	return nil
}

const predictionColumns = `
	id, symbol, direction, confidence, target_price, stop_loss,
	time_horizon, market_condition, price_at_creation, analysis_kind,
	created_at, expires_at, outcome, outcome_verified_at,
	price_at_verification, accuracy_score`

func (s *PGPredictionStore) ListPendingExpired(ctx context.Context, now time.Time, symbols []string) ([]models.PredictionRecord, error) {
	q := `SELECT` + predictionColumns + `
		FROM predictions
		WHERE outcome = 'pending' AND expires_at <= $1`
	args := []interface{}{now}
	if len(symbols) > 0 {
		q += ` AND symbol = ANY($2)`
		args = append(args, pq.Array(symbols))
	}
	q += ` ORDER BY expires_at ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()
	return scanPredictions(rows)
}

// MarkOutcome settles a record. The pending guard makes re-verification a
// no-op rather than an error.
func (s *PGPredictionStore) MarkOutcome(ctx context.Context, id int64, outcome models.Outcome, verifiedAt time.Time, price, accuracy float64) (bool, error) {
	const q = `
		UPDATE predictions
		SET outcome = $1, outcome_verified_at = $2,
			price_at_verification = $3, accuracy_score = $4
		WHERE id = $5 AND outcome = 'pending'`
	res, err := s.db.ExecContext(ctx, q, string(outcome), verifiedAt, price, accuracy, id)
	if err != nil {
		return false, fmt.Errorf("mark outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *PGPredictionStore) History(ctx context.Context, symbol string, limit int) ([]models.PredictionRecord, error) {
	q := `SELECT` + predictionColumns + ` FROM predictions`
	args := []interface{}{}
	if symbol != "" {
		q += ` WHERE symbol = $1`
		args = append(args, symbol)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	recs, err := scanPredictions(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachFactors(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *PGPredictionStore) AccuracyStats(ctx context.Context, symbol string) (models.AccuracyStats, error) {
	q := `
		SELECT COUNT(*) FILTER (WHERE outcome IN ('correct', 'incorrect')),
			COUNT(*) FILTER (WHERE outcome = 'correct')
		FROM predictions`
	args := []interface{}{}
	if symbol != "" {
		q += ` WHERE symbol = $1`
		args = append(args, symbol)
	}

	stats := models.AccuracyStats{Symbol: symbol}
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&stats.Total, &stats.Correct); err != nil {
		return models.AccuracyStats{}, fmt.Errorf("accuracy stats: %w", err)
	}
	if stats.Total > 0 {
		stats.AccuracyPercent = float64(stats.Correct) / float64(stats.Total) * 100
	}
	return stats, nil
}

func (s *PGPredictionStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PGPredictionStore) Close() error {
	return s.db.Close()
}

// attachFactors loads factor rows for every record in one query.
func (s *PGPredictionStore) attachFactors(ctx context.Context, recs []models.PredictionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	ids := make([]int64, len(recs))
	byID := make(map[int64]*models.PredictionRecord, len(recs))
	for i := range recs {
		ids[i] = recs[i].ID
		byID[recs[i].ID] = &recs[i]
	}

	const q = `
		SELECT prediction_id, factor_type, factor_name, factor_value, weight, description
		FROM prediction_factors
		WHERE prediction_id = ANY($1)
		ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, q, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load factors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var f models.Factor
		var kind string
		if err := rows.Scan(&id, &kind, &f.Name, &f.Value, &f.Weight, &f.Description); err != nil {
			return fmt.Errorf("scan factor: %w", err)
		}
		f.Kind = models.FactorKind(kind)
		if rec, ok := byID[id]; ok {
			rec.Factors = append(rec.Factors, f)
		}
	}
	return rows.Err()
}

func scanPredictions(rows *sql.Rows) ([]models.PredictionRecord, error) {
	var out []models.PredictionRecord
	for rows.Next() {
		var rec models.PredictionRecord
		var direction, horizon, condition, kind, outcome string
		if err := rows.Scan(
			&rec.ID,
			&rec.Symbol,
			&direction,
			&rec.Confidence,
			&rec.TargetPrice,
			&rec.StopLoss,
			&horizon,
			&condition,
			&rec.PriceAtCreation,
			&kind,
			&rec.CreatedAt,
			&rec.ExpiresAt,
			&outcome,
			&rec.OutcomeVerifiedAt,
			&rec.PriceAtVerification,
			&rec.AccuracyScore,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		rec.Direction = models.PredictionDirection(direction)
		rec.TimeHorizon = models.TimeHorizon(horizon)
		rec.MarketCondition = models.MarketCondition(condition)
		rec.AnalysisKind = models.AnalysisKind(kind)
		rec.Outcome = models.Outcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}
