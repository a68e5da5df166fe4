package retention

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateCampaign is returned when the cooldown uniqueness guard in the
// database rejects a second campaign inside the window.
var ErrDuplicateCampaign = errors.New("retention campaign already sent within cooldown")

const uniqueViolation = "23505"

// User is an app user as the retention scan sees them.
type User struct {
	ID            uuid.UUID
	Email         string
	Name          string
	PushToken     string
	LastActivity  time.Time
	CampaignsSent int
}

// CampaignTier is the urgency classification of one retention send.
type CampaignTier string

const (
	TierMediumPriority CampaignTier = "medium_priority"
	TierHighPriority   CampaignTier = "high_priority"
)

// CampaignRecord is one retention send. Records are immutable after
// creation; later scans only read them for dedupe.
type CampaignRecord struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	Tier    CampaignTier
	Message string
	SentAt  time.Time
	Status  string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListInactiveUsers returns active users whose last activity predates the
// cutoff, least recently active first.
func (r *Repository) ListInactiveUsers(ctx context.Context, cutoff time.Time, limit int) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, COALESCE(name, ''), COALESCE(push_token, ''), last_activity, retention_campaigns_sent
		FROM app_users
		WHERE status = 'active' AND last_activity < $1
		ORDER BY last_activity ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUsers(rows)
}

// HasRecentCampaign reports whether a campaign was recorded for the user
// after the given instant.
func (r *Repository) HasRecentCampaign(ctx context.Context, userID uuid.UUID, since time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM retention_campaigns WHERE user_id = $1 AND sent_at > $2
		)
	`, userID, since).Scan(&exists)
	return exists, err
}

// CreateCampaign inserts a campaign record and bumps the user's counter in
// one transaction. The partial unique index on recent (user, window) rows
// backs up the in-process lock; losing that race maps to
// ErrDuplicateCampaign.
func (r *Repository) CreateCampaign(ctx context.Context, record CampaignRecord) (uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO retention_campaigns (user_id, tier, message, sent_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, record.UserID, string(record.Tier), record.Message, record.SentAt, record.Status).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return uuid.Nil, ErrDuplicateCampaign
		}
		return uuid.Nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE app_users
		SET retention_campaigns_sent = retention_campaigns_sent + 1, last_retention_campaign = $2
		WHERE id = $1
	`, record.UserID, record.SentAt)
	if err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// CreateNotification records the in-app "we miss you" notification.
func (r *Repository) CreateNotification(ctx context.Context, userID, campaignID uuid.UUID, title, message string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (user_id, type, title, message, campaign_id, created_at, read)
		VALUES ($1, 'retention', $2, $3, $4, now(), false)
	`, userID, title, message, campaignID)
	return err
}

// EnqueuePush queues a push notification for users with a registered token.
// A separate worker drains the queue.
func (r *Repository) EnqueuePush(ctx context.Context, userID, campaignID uuid.UUID, title, message string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO push_queue (user_id, campaign_id, title, message, status, created_at)
		VALUES ($1, $2, $3, $4, 'pending', now())
	`, userID, campaignID, title, message)
	return err
}

// ListChurnRisks returns active users past the campaign limit who are still
// inactive beyond the cutoff.
func (r *Repository) ListChurnRisks(ctx context.Context, campaignLimit int, cutoff time.Time) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, COALESCE(name, ''), COALESCE(push_token, ''), last_activity, retention_campaigns_sent
		FROM app_users
		WHERE status = 'active' AND retention_campaigns_sent > $1 AND last_activity < $2
	`, campaignLimit, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUsers(rows)
}

// CreateChurnAlert records a high churn risk alert. At most one open alert
// exists per user.
func (r *Repository) CreateChurnAlert(ctx context.Context, user User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO churn_alerts (user_id, user_email, message, campaigns_sent, last_activity, status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'active', now())
		ON CONFLICT (user_id) WHERE status = 'active' DO NOTHING
	`, user.ID, user.Email, "User "+user.Email+" shows high churn risk", user.CampaignsSent, user.LastActivity)
	return err
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanUsers(rows rowScanner) ([]User, error) {
	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PushToken, &u.LastActivity, &u.CampaignsSent); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
