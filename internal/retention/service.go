// Package retention runs the periodic win-back job: it finds inactive users,
// classifies how stale they are, sends at most one campaign per cooldown
// window, and raises churn alerts for users the campaigns stopped reaching.
package retention

import (
	"context"
	"errors"
	"sync"
	"time"

	"nurture_backend/internal/events"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	campaignSubject = "We Miss You!"
	mediumMessage   = "Don't miss out on the latest properties in your area!"
	highMessage     = "We miss you! Come back and discover amazing properties waiting for you."

	scanBatchSize = 500
)

// EmailSender delivers the campaign email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// Store is the persistence the scheduler needs.
type Store interface {
	ListInactiveUsers(ctx context.Context, cutoff time.Time, limit int) ([]User, error)
	HasRecentCampaign(ctx context.Context, userID uuid.UUID, since time.Time) (bool, error)
	CreateCampaign(ctx context.Context, record CampaignRecord) (uuid.UUID, error)
	CreateNotification(ctx context.Context, userID, campaignID uuid.UUID, title, message string) error
	EnqueuePush(ctx context.Context, userID, campaignID uuid.UUID, title, message string) error
	ListChurnRisks(ctx context.Context, campaignLimit int, cutoff time.Time) ([]User, error)
	CreateChurnAlert(ctx context.Context, user User) error
}

// Scheduler is the ticker-driven retention job.
type Scheduler struct {
	store Store
	email EmailSender
	cfg   config.RetentionConfig
	bus   events.Bus
	log   *logger.Logger
	locks *keyedMutex
	now   func() time.Time
}

func NewScheduler(store Store, email EmailSender, cfg config.RetentionConfig, bus events.Bus, log *logger.Logger) *Scheduler {
	return &Scheduler{
		store: store,
		email: email,
		cfg:   cfg,
		bus:   bus,
		log:   log,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
}

// Run loops until the context ends, scanning once immediately and then on
// every tick. A failed scan never blocks the next one.
func (s *Scheduler) Run(ctx context.Context) {
	if s == nil || s.store == nil {
		return
	}

	s.Scan(ctx)

	ticker := time.NewTicker(s.cfg.GetRetentionScanInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Scan performs one retention pass: campaign sends for inactive users, then
// churn risk alerts.
func (s *Scheduler) Scan(ctx context.Context) {
	now := s.now()
	mediumCutoff := now.Add(-s.cfg.GetRetentionMediumThreshold())

	users, err := s.store.ListInactiveUsers(ctx, mediumCutoff, scanBatchSize)
	if err != nil {
		s.log.Error("retention scan failed", "error", err.Error())
		return
	}

	var processed, skipped, failed int64
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.GetRetentionWorkerLimit())
	for _, user := range users {
		user := user
		g.Go(func() error {
			sent, err := s.processUser(gctx, user, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				// One user's failure never aborts the batch.
				failed++
				s.log.JobError("retention_scan", user.ID.String(), err)
			case sent:
				processed++
			default:
				skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.scanChurnRisks(ctx, now)

	s.log.JobSummary("retention_scan", int(processed), int(skipped), int(failed))
}

// processUser holds the user's lock across the dedupe check and the
// campaign insert. The reported bool is whether a campaign went out.
func (s *Scheduler) processUser(ctx context.Context, user User, now time.Time) (bool, error) {
	unlock := s.locks.Lock(user.ID.String())
	defer unlock()

	recent, err := s.store.HasRecentCampaign(ctx, user.ID, now.Add(-s.cfg.GetRetentionCooldown()))
	if err != nil {
		return false, err
	}
	if recent {
		return false, nil
	}

	tier := TierMediumPriority
	message := mediumMessage
	if user.LastActivity.Before(now.Add(-s.cfg.GetRetentionHighThreshold())) {
		tier = TierHighPriority
		message = highMessage
	}

	campaignID, err := s.store.CreateCampaign(ctx, CampaignRecord{
		UserID:  user.ID,
		Tier:    tier,
		Message: message,
		SentAt:  now,
		Status:  "sent",
	})
	if errors.Is(err, ErrDuplicateCampaign) {
		// A concurrent invocation won the insert. Nothing left to do.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := s.store.CreateNotification(ctx, user.ID, campaignID, campaignSubject, message); err != nil {
		return false, err
	}

	if err := s.email.Send(ctx, user.Email, campaignSubject, message, message); err != nil {
		return false, err
	}

	if user.PushToken != "" {
		if err := s.store.EnqueuePush(ctx, user.ID, campaignID, campaignSubject, message); err != nil {
			return false, err
		}
	}

	s.bus.Publish(ctx, events.RetentionCampaignSent{
		BaseEvent:  events.NewBaseEvent(),
		UserID:     user.ID,
		CampaignID: campaignID,
		Tier:       string(tier),
	})
	return true, nil
}

// scanChurnRisks alerts on users past the campaign limit who stayed
// inactive. An alert is informational; it never sends a message.
func (s *Scheduler) scanChurnRisks(ctx context.Context, now time.Time) {
	highCutoff := now.Add(-s.cfg.GetRetentionHighThreshold())

	users, err := s.store.ListChurnRisks(ctx, s.cfg.GetRetentionChurnCampaignLimit(), highCutoff)
	if err != nil {
		s.log.Error("churn risk scan failed", "error", err.Error())
		return
	}

	for _, user := range users {
		if err := s.store.CreateChurnAlert(ctx, user); err != nil {
			s.log.JobError("churn_risk_scan", user.ID.String(), err)
			continue
		}
		s.bus.Publish(ctx, events.HighChurnRiskDetected{
			BaseEvent:     events.NewBaseEvent(),
			UserID:        user.ID,
			Email:         user.Email,
			CampaignsSent: user.CampaignsSent,
			LastActivity:  user.LastActivity,
		})
	}
}
