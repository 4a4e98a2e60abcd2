package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/domain"
	"github.com/pccbooth/payment-gateway/internal/infrastructure/persistence"
)

const sessionColumns = `session_id, user_number, promo_code,
	       original_satang, discount_satang, final_satang,
	       payment_intent_id, status, expires_at, expired, expired_at,
	       redeemed, redeem_at, redeem_result, created_at, updated_at`

// terminalGuard keeps any UPDATE from moving a session out of a settled
// state. The guard lives in SQL so concurrent poll and webhook writers
// race at the row, not in application memory.
const terminalGuard = `status NOT IN ('succeeded', 'canceled', 'failed')`

type SessionRepository struct {
	db *persistence.DB
}

func NewSessionRepository(db *persistence.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.PaySession) error {
	query := `
		INSERT INTO pay_sessions (
			session_id, user_number, promo_code,
			original_satang, discount_satang, final_satang,
			payment_intent_id, status, expires_at, expired, expired_at,
			redeemed, redeem_at, redeem_result, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	m := toDBModel(session)
	_, err := r.db.Pool.Exec(ctx, query,
		m.SessionID,
		m.UserNumber,
		m.PromoCode,
		m.OriginalSatang,
		m.DiscountSatang,
		m.FinalSatang,
		m.PaymentIntentID,
		m.Status,
		m.ExpiresAt,
		m.Expired,
		m.ExpiredAt,
		m.Redeemed,
		m.RedeemAt,
		m.RedeemResult,
		m.CreatedAt,
		m.UpdatedAt,
	)

	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return fmt.Errorf("pay session already exists: %w", err)
		}
		return fmt.Errorf("failed to create pay session: %w", err)
	}

	return nil
}

func (r *SessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.PaySession, error) {
	query := `SELECT ` + sessionColumns + ` FROM pay_sessions WHERE session_id = $1`

	row := r.db.Pool.QueryRow(ctx, query, sessionID)
	return scanSession(row)
}

func (r *SessionRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.PaySession, error) {
	query := `SELECT ` + sessionColumns + ` FROM pay_sessions WHERE payment_intent_id = $1`

	row := r.db.Pool.QueryRow(ctx, query, paymentIntentID)
	return scanSession(row)
}

// UpdateStatus advances a session's status in a single guarded UPDATE. The
// returned bool reports whether the row actually changed: false means the
// session was already in that status or already terminal, and the caller
// gets the current row back to decide what that meant.
func (r *SessionRepository) UpdateStatus(ctx context.Context, paymentIntentID string, status domain.SessionStatus) (*domain.PaySession, bool, error) {
	query := `
		UPDATE pay_sessions
		SET status = $2, updated_at = $3
		WHERE payment_intent_id = $1
		  AND status <> $2
		  AND ` + terminalGuard + `
		RETURNING ` + sessionColumns

	row := r.db.Pool.QueryRow(ctx, query, paymentIntentID, string(status), time.Now())
	session, err := scanSession(row)
	if err == nil {
		return session, true, nil
	}
	if !errors.Is(err, application.ErrSessionNotFound) {
		return nil, false, err
	}

	// No row changed. Re-read to tell "unknown intent" apart from "guard
	// held": the latter returns the untouched row.
	session, err = r.FindByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return nil, false, err
	}
	return session, false, nil
}

// ClaimRedemption is the single atomic claim on a session's redemption slot.
// Exactly one caller ever sees true, no matter how many poll and webhook
// paths observe the success concurrently.
func (r *SessionRepository) ClaimRedemption(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	query := `
		UPDATE pay_sessions
		SET redeem_at = $2, updated_at = $2
		WHERE session_id = $1 AND redeem_at IS NULL
	`

	tag, err := r.db.Pool.Exec(ctx, query, sessionID, at)
	if err != nil {
		return false, fmt.Errorf("failed to claim redemption: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordRedemption stores the outcome of the redemption attempt on the
// session that won the claim.
func (r *SessionRepository) RecordRedemption(ctx context.Context, sessionID string, outcome domain.RedeemOutcome) error {
	query := `
		UPDATE pay_sessions
		SET redeemed = $2, redeem_result = $3, updated_at = $4
		WHERE session_id = $1
	`

	result, err := encodeOutcome(outcome)
	if err != nil {
		return err
	}

	tag, err := r.db.Pool.Exec(ctx, query, sessionID, outcome.Ok, result, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record redemption: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return application.ErrSessionNotFound
	}
	return nil
}

// MarkExpired cancels a non-terminal session and stamps it expired. If the
// session settled in the meantime the guard holds and the settled row is
// returned unchanged.
func (r *SessionRepository) MarkExpired(ctx context.Context, paymentIntentID string, at time.Time) (*domain.PaySession, error) {
	query := `
		UPDATE pay_sessions
		SET status = 'canceled', expired = TRUE, expired_at = $2, updated_at = $2
		WHERE payment_intent_id = $1
		  AND ` + terminalGuard + `
		RETURNING ` + sessionColumns

	row := r.db.Pool.QueryRow(ctx, query, paymentIntentID, at)
	session, err := scanSession(row)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, application.ErrSessionNotFound) {
		return nil, err
	}

	return r.FindByPaymentIntentID(ctx, paymentIntentID)
}

// FindExpiredSessions lists open sessions whose deadline has passed, oldest
// first, for the expiration sweeper.
func (r *SessionRepository) FindExpiredSessions(ctx context.Context, now time.Time, limit int) ([]*domain.PaySession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM pay_sessions
		WHERE ` + terminalGuard + `
		  AND expires_at IS NOT NULL
		  AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}

	return collectSessions(rows)
}

func (r *SessionRepository) ListRecent(ctx context.Context, limit int) ([]*domain.PaySession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM pay_sessions
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}

	return collectSessions(rows)
}

// RevenueByDay sums settled revenue per calendar day since the cutoff. Days
// are bucketed in UTC regardless of the database server's timezone, matching
// the keys the caller zero-fills against. Days without revenue are absent.
func (r *SessionRepository) RevenueByDay(ctx context.Context, since time.Time) ([]application.DailyRevenue, error) {
	query := `
		SELECT to_char((created_at AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD') AS day,
		       COALESCE(SUM(final_satang), 0) AS satang
		FROM pay_sessions
		WHERE status = 'succeeded' AND created_at >= $1
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query revenue by day: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (application.DailyRevenue, error) {
		var d application.DailyRevenue
		err := row.Scan(&d.Date, &d.Satang)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("error occcured while scanning rows: %w", err)
	}
	return results, nil
}

// scanSession converts a database row into a domain PaySession.
// Returns application.ErrSessionNotFound if the row doesn't exist.
func scanSession(row pgx.Row) (*domain.PaySession, error) {
	var m PaySessionModel
	err := row.Scan(
		&m.SessionID, &m.UserNumber, &m.PromoCode,
		&m.OriginalSatang, &m.DiscountSatang, &m.FinalSatang,
		&m.PaymentIntentID, &m.Status, &m.ExpiresAt, &m.Expired, &m.ExpiredAt,
		&m.Redeemed, &m.RedeemAt, &m.RedeemResult, &m.CreatedAt, &m.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, application.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to scan pay session: %w", err)
	}
	return toDomainModel(m), nil
}

func collectSessions(rows pgx.Rows) ([]*domain.PaySession, error) {
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.PaySession, error) {
		var m PaySessionModel
		err := row.Scan(
			&m.SessionID, &m.UserNumber, &m.PromoCode,
			&m.OriginalSatang, &m.DiscountSatang, &m.FinalSatang,
			&m.PaymentIntentID, &m.Status, &m.ExpiresAt, &m.Expired, &m.ExpiredAt,
			&m.Redeemed, &m.RedeemAt, &m.RedeemResult, &m.CreatedAt, &m.UpdatedAt,
		)
		return toDomainModel(m), err
	})

	if err != nil {
		return nil, fmt.Errorf("error occcured while scanning rows: %w", err)
	}
	return results, nil
}
