package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nurture_backend/internal/funnels/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("funnel not found")
	// ErrStaleRun is returned when an optimistic run update loses to a
	// concurrent advance. The caller re-reads and re-evaluates dueness.
	ErrStaleRun = errors.New("run state changed concurrently")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// stepRecord is the JSONB shape steps are persisted in. Kept separate from
// the domain type so stored funnels survive domain refactors.
type stepRecord struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description,omitempty"`
	Icon               string `json:"icon,omitempty"`
	Delay              string `json:"delay"`
	Type               string `json:"type"`
	Subject            string `json:"subject,omitempty"`
	Content            string `json:"content,omitempty"`
	MediaURL           string `json:"mediaUrl,omitempty"`
	ConditionRule      string `json:"conditionRule,omitempty"`
	ConditionValue     int    `json:"conditionValue,omitempty"`
	IncludeUnsubscribe bool   `json:"includeUnsubscribe,omitempty"`
	TrackOpens         bool   `json:"trackOpens,omitempty"`
}

func toRecords(steps []domain.Step) []stepRecord {
	records := make([]stepRecord, 0, len(steps))
	for _, s := range steps {
		records = append(records, stepRecord{
			ID:                 s.ID,
			Title:              s.Title,
			Description:        s.Description,
			Icon:               s.Icon,
			Delay:              s.Delay,
			Type:               string(s.Type),
			Subject:            s.Subject,
			Content:            s.ContentTemplate,
			MediaURL:           s.MediaURL,
			ConditionRule:      string(s.ConditionRule),
			ConditionValue:     s.ConditionValue,
			IncludeUnsubscribe: s.IncludeUnsubscribe,
			TrackOpens:         s.TrackOpens,
		})
	}
	return records
}

func fromRecords(records []stepRecord) ([]domain.Step, error) {
	steps := make([]domain.Step, 0, len(records))
	for _, r := range records {
		stepType, err := domain.ParseStepType(r.Type)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", r.ID, err)
		}
		steps = append(steps, domain.Step{
			ID:                 r.ID,
			Title:              r.Title,
			Description:        r.Description,
			Icon:               r.Icon,
			Delay:              r.Delay,
			Type:               stepType,
			Subject:            r.Subject,
			ContentTemplate:    r.Content,
			MediaURL:           r.MediaURL,
			ConditionRule:      domain.ConditionRule(r.ConditionRule),
			ConditionValue:     r.ConditionValue,
			IncludeUnsubscribe: r.IncludeUnsubscribe,
			TrackOpens:         r.TrackOpens,
		})
	}
	return steps, nil
}

// FetchFunnels returns all funnels owned by an agent, keyed by funnel type.
func (r *Repository) FetchFunnels(ctx context.Context, ownerID uuid.UUID) (map[domain.FunnelType][]domain.Step, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT funnel_type, steps
		FROM funnels
		WHERE owner_id = $1
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	funnels := make(map[domain.FunnelType][]domain.Step)
	for rows.Next() {
		var funnelType string
		var raw []byte
		if err := rows.Scan(&funnelType, &raw); err != nil {
			return nil, err
		}

		var records []stepRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode funnel %s: %w", funnelType, err)
		}
		steps, err := fromRecords(records)
		if err != nil {
			return nil, err
		}
		funnels[domain.FunnelType(funnelType)] = steps
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return funnels, nil
}

// GetFunnel returns one funnel's steps.
func (r *Repository) GetFunnel(ctx context.Context, ownerID uuid.UUID, funnelType domain.FunnelType) ([]domain.Step, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		SELECT steps FROM funnels WHERE owner_id = $1 AND funnel_type = $2
	`, ownerID, string(funnelType)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var records []stepRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode funnel %s: %w", funnelType, err)
	}
	return fromRecords(records)
}

// SaveFunnelSteps replaces a funnel's step list. Replace semantics only; no
// partial-step updates.
func (r *Repository) SaveFunnelSteps(ctx context.Context, ownerID uuid.UUID, funnelType domain.FunnelType, steps []domain.Step) error {
	raw, err := json.Marshal(toRecords(steps))
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO funnels (owner_id, funnel_type, steps, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (owner_id, funnel_type)
		DO UPDATE SET steps = EXCLUDED.steps, updated_at = now()
	`, ownerID, string(funnelType), raw)
	return err
}

// =============================================================================
// Run state
// =============================================================================

// CreateRun enrolls a lead in a funnel. A lead holds at most one run per
// funnel type.
func (r *Repository) CreateRun(ctx context.Context, run domain.FunnelRunState) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO funnel_runs (lead_id, owner_id, funnel_type, current_step_index, entered_at, last_advanced_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, run.LeadID, run.OwnerID, string(run.FunnelType), run.CurrentStepIndex, run.EnteredAt, run.LastAdvancedAt, string(run.Status))
	return err
}

// GetRun returns the run state for a lead and funnel type.
func (r *Repository) GetRun(ctx context.Context, leadID uuid.UUID, funnelType domain.FunnelType) (domain.FunnelRunState, error) {
	var run domain.FunnelRunState
	var ft, status string
	err := r.pool.QueryRow(ctx, `
		SELECT lead_id, owner_id, funnel_type, current_step_index, entered_at, last_advanced_at, status
		FROM funnel_runs
		WHERE lead_id = $1 AND funnel_type = $2
	`, leadID, string(funnelType)).Scan(
		&run.LeadID, &run.OwnerID, &ft, &run.CurrentStepIndex, &run.EnteredAt, &run.LastAdvancedAt, &status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FunnelRunState{}, ErrNotFound
	}
	if err != nil {
		return domain.FunnelRunState{}, err
	}
	run.FunnelType = domain.FunnelType(ft)
	run.Status = domain.RunStatus(status)
	return run, nil
}

// UpdateRun persists a mutated run, guarded by the index the caller read.
// The guard keeps per-lead step ordering monotone when scheduler passes
// overlap: the second writer loses and re-reads.
func (r *Repository) UpdateRun(ctx context.Context, run domain.FunnelRunState, expectedIndex int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE funnel_runs
		SET current_step_index = $1, last_advanced_at = $2, status = $3
		WHERE lead_id = $4 AND funnel_type = $5 AND current_step_index = $6
	`, run.CurrentStepIndex, run.LastAdvancedAt, string(run.Status), run.LeadID, string(run.FunnelType), expectedIndex)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRun
	}
	return nil
}

// UpdateRunStatus persists a pause/resume/cancel transition without touching
// the step index.
func (r *Repository) UpdateRunStatus(ctx context.Context, leadID uuid.UUID, funnelType domain.FunnelType, status domain.RunStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE funnel_runs SET status = $1 WHERE lead_id = $2 AND funnel_type = $3
	`, string(status), leadID, string(funnelType))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DueRun pairs a run with the parsed steps of its funnel.
type DueRun struct {
	Run   domain.FunnelRunState
	Steps []domain.Step
}

// ListDueRuns returns active runs whose current step delay has elapsed, with
// their funnel steps, ordered by how long they have been due.
func (r *Repository) ListDueRuns(ctx context.Context, now time.Time, limit int) ([]DueRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT fr.lead_id, fr.owner_id, fr.funnel_type, fr.current_step_index,
		       fr.entered_at, fr.last_advanced_at, fr.status, f.steps
		FROM funnel_runs fr
		JOIN funnels f ON f.owner_id = fr.owner_id AND f.funnel_type = fr.funnel_type
		WHERE fr.status = 'active'
		ORDER BY fr.last_advanced_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	due := make([]DueRun, 0)
	for rows.Next() {
		var run domain.FunnelRunState
		var ft, status string
		var raw []byte
		if err := rows.Scan(&run.LeadID, &run.OwnerID, &ft, &run.CurrentStepIndex,
			&run.EnteredAt, &run.LastAdvancedAt, &status, &raw); err != nil {
			return nil, err
		}
		run.FunnelType = domain.FunnelType(ft)
		run.Status = domain.RunStatus(status)

		var records []stepRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode funnel %s: %w", ft, err)
		}
		steps, err := fromRecords(records)
		if err != nil {
			return nil, err
		}

		// Delay filtering happens here rather than in SQL because delays
		// live inside the step JSONB.
		if run.CurrentStepIndex < len(steps) && run.IsDue(steps[run.CurrentStepIndex], now) {
			due = append(due, DueRun{Run: run, Steps: steps})
		}
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return due, nil
}

// =============================================================================
// Behavior signals
// =============================================================================

// RecordSignal increments the counter for a behavioral signal on a lead.
func (r *Repository) RecordSignal(ctx context.Context, leadID uuid.UUID, signal domain.ConditionRule) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO behavior_signals (lead_id, signal, count, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (lead_id, signal)
		DO UPDATE SET count = behavior_signals.count + 1, updated_at = now()
	`, leadID, string(signal))
	return err
}

// SignalCount returns how many times a signal has been observed for a lead.
func (r *Repository) SignalCount(ctx context.Context, leadID uuid.UUID, signal domain.ConditionRule) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count FROM behavior_signals WHERE lead_id = $1 AND signal = $2
	`, leadID, string(signal)).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// =============================================================================
// Merge context sources
// =============================================================================

// LeadFields returns the flat merge fields stored for a lead.
func (r *Repository) LeadFields(ctx context.Context, leadID uuid.UUID) (map[string]string, error) {
	return r.fields(ctx, `SELECT merge_fields FROM leads WHERE id = $1`, leadID)
}

// AgentFields returns the flat merge fields stored for an agent profile.
func (r *Repository) AgentFields(ctx context.Context, ownerID uuid.UUID) (map[string]string, error) {
	return r.fields(ctx, `SELECT merge_fields FROM agent_profiles WHERE owner_id = $1`, ownerID)
}

func (r *Repository) fields(ctx context.Context, query string, id uuid.UUID) (map[string]string, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// LeadContact returns the recipient coordinates for dispatch.
func (r *Repository) LeadContact(ctx context.Context, leadID uuid.UUID) (email, phone string, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(email, ''), COALESCE(phone, '') FROM leads WHERE id = $1
	`, leadID).Scan(&email, &phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return email, phone, err
}

// SignatureOverride returns the agent's custom signature, if set.
func (r *Repository) SignatureOverride(ctx context.Context, ownerID uuid.UUID) (string, error) {
	var signature string
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(signature_override, '') FROM agent_profiles WHERE owner_id = $1
	`, ownerID).Scan(&signature)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return signature, err
}

// =============================================================================
// Agent tasks
// =============================================================================

// CreateTask records an internal reminder for a human operator. Task steps
// dispatch here instead of to an external channel.
func (r *Repository) CreateTask(ctx context.Context, ownerID, leadID uuid.UUID, title, note string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO agent_tasks (owner_id, lead_id, title, note, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id
	`, ownerID, leadID, title, note).Scan(&id)
	return id, err
}
