package repository

import (
	"context"
	"errors"

	"nurture_backend/internal/scoring"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FetchTiers returns the stored tier configuration ordered by range start.
// An empty result means the shipped defaults apply.
func (r *Repository) FetchTiers(ctx context.Context) ([]scoring.Tier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, min_points, max_points, description
		FROM score_tiers
		ORDER BY min_points ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tiers := make([]scoring.Tier, 0)
	for rows.Next() {
		var t scoring.Tier
		if err := rows.Scan(&t.ID, &t.Min, &t.Max, &t.Description); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// FetchRuleOverrides returns operator adjustments to the rule catalog keyed
// by rule id.
func (r *Repository) FetchRuleOverrides(ctx context.Context) (map[string]scoring.RuleOverride, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rule_id, points, enabled FROM scoring_rules
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := make(map[string]scoring.RuleOverride)
	for rows.Next() {
		var ruleID string
		var override scoring.RuleOverride
		if err := rows.Scan(&ruleID, &override.Points, &override.Enabled); err != nil {
			return nil, err
		}
		overrides[ruleID] = override
	}
	return overrides, rows.Err()
}

// GetScore returns a lead's score state. An unscored lead yields the zero
// state rather than an error.
func (r *Repository) GetScore(ctx context.Context, leadID uuid.UUID) (scoring.LeadScoreState, error) {
	state := scoring.LeadScoreState{LeadID: leadID}
	err := r.pool.QueryRow(ctx, `
		SELECT total_points, tier FROM lead_scores WHERE lead_id = $1
	`, leadID).Scan(&state.TotalPoints, &state.Tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return scoring.LeadScoreState{LeadID: leadID}, nil
	}
	if err != nil {
		return scoring.LeadScoreState{}, err
	}
	return state, nil
}

// SaveScore upserts a lead's score state.
func (r *Repository) SaveScore(ctx context.Context, state scoring.LeadScoreState) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_scores (lead_id, total_points, tier, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (lead_id)
		DO UPDATE SET total_points = EXCLUDED.total_points, tier = EXCLUDED.tier, updated_at = now()
	`, state.LeadID, state.TotalPoints, state.Tier)
	return err
}

// ListScores returns the score states for all of an agent's leads.
func (r *Repository) ListScores(ctx context.Context, ownerID uuid.UUID) ([]scoring.LeadScoreState, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ls.lead_id, ls.total_points, ls.tier
		FROM lead_scores ls
		JOIN leads l ON l.id = ls.lead_id
		WHERE l.owner_id = $1
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make([]scoring.LeadScoreState, 0)
	for rows.Next() {
		var state scoring.LeadScoreState
		if err := rows.Scan(&state.LeadID, &state.TotalPoints, &state.Tier); err != nil {
			return nil, err
		}
		scores = append(scores, state)
	}
	return scores, rows.Err()
}

// ListSourceTiers returns source and current tier for an agent's leads.
// Unscored leads count as Cold so the breakdown covers the whole book.
func (r *Repository) ListSourceTiers(ctx context.Context, ownerID uuid.UUID) ([]scoring.SourceTier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(l.source, ''), COALESCE(ls.tier, 'Cold')
		FROM leads l
		LEFT JOIN lead_scores ls ON ls.lead_id = l.id
		WHERE l.owner_id = $1
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]scoring.SourceTier, 0)
	for rows.Next() {
		var st scoring.SourceTier
		if err := rows.Scan(&st.Source, &st.Tier); err != nil {
			return nil, err
		}
		leads = append(leads, st)
	}
	return leads, rows.Err()
}
