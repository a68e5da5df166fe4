package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nurture_backend/internal/events"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRetentionConfig struct {
	scanInterval  time.Duration
	cooldown      time.Duration
	medium        time.Duration
	high          time.Duration
	campaignLimit int
	workerLimit   int
}

func (c fakeRetentionConfig) GetRetentionScanInterval() time.Duration    { return c.scanInterval }
func (c fakeRetentionConfig) GetRetentionCooldown() time.Duration        { return c.cooldown }
func (c fakeRetentionConfig) GetRetentionMediumThreshold() time.Duration { return c.medium }
func (c fakeRetentionConfig) GetRetentionHighThreshold() time.Duration   { return c.high }
func (c fakeRetentionConfig) GetRetentionChurnCampaignLimit() int        { return c.campaignLimit }
func (c fakeRetentionConfig) GetRetentionWorkerLimit() int               { return c.workerLimit }

func testConfig() fakeRetentionConfig {
	return fakeRetentionConfig{
		scanInterval:  time.Hour,
		cooldown:      24 * time.Hour,
		medium:        72 * time.Hour,
		high:          168 * time.Hour,
		campaignLimit: 3,
		workerLimit:   4,
	}
}

type fakeRetentionStore struct {
	mu            sync.Mutex
	users         []User
	churnRisks    []User
	campaigns     []CampaignRecord
	notifications int
	pushes        int
	alerts        []User

	listErr      error
	campaignErr  error
	recentByUser map[uuid.UUID]bool
}

func (f *fakeRetentionStore) ListInactiveUsers(_ context.Context, _ time.Time, _ int) ([]User, error) {
	return f.users, f.listErr
}

func (f *fakeRetentionStore) HasRecentCampaign(_ context.Context, userID uuid.UUID, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recentByUser[userID], nil
}

func (f *fakeRetentionStore) CreateCampaign(_ context.Context, record CampaignRecord) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.campaignErr != nil {
		return uuid.Nil, f.campaignErr
	}
	f.campaigns = append(f.campaigns, record)
	if f.recentByUser == nil {
		f.recentByUser = make(map[uuid.UUID]bool)
	}
	f.recentByUser[record.UserID] = true
	return uuid.New(), nil
}

func (f *fakeRetentionStore) CreateNotification(_ context.Context, _, _ uuid.UUID, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications++
	return nil
}

func (f *fakeRetentionStore) EnqueuePush(_ context.Context, _, _ uuid.UUID, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes++
	return nil
}

func (f *fakeRetentionStore) ListChurnRisks(_ context.Context, _ int, _ time.Time) ([]User, error) {
	return f.churnRisks, nil
}

func (f *fakeRetentionStore) CreateChurnAlert(_ context.Context, user User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, user)
	return nil
}

type fakeRetentionEmail struct {
	mu    sync.Mutex
	sends []string
	err   error
	fail  map[string]error
}

func (f *fakeRetentionEmail) Send(_ context.Context, to, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[to]; ok {
		return err
	}
	if f.err != nil {
		return f.err
	}
	f.sends = append(f.sends, to)
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestScheduler(store *fakeRetentionStore, email *fakeRetentionEmail, bus *recordingBus) *Scheduler {
	s := NewScheduler(store, email, testConfig(), bus, logger.New("test"))
	s.now = func() time.Time { return testNow }
	return s
}

func inactiveUser(hoursAgo int) User {
	return User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		Name:         "Casey",
		LastActivity: testNow.Add(-time.Duration(hoursAgo) * time.Hour),
	}
}

func TestScanSendsMediumCampaign(t *testing.T) {
	user := inactiveUser(96) // 4 days: past medium, before high
	store := &fakeRetentionStore{users: []User{user}}
	email := &fakeRetentionEmail{}
	bus := &recordingBus{}
	s := newTestScheduler(store, email, bus)

	s.Scan(context.Background())

	if len(store.campaigns) != 1 {
		t.Fatalf("expected one campaign, got %d", len(store.campaigns))
	}
	got := store.campaigns[0]
	if got.Tier != TierMediumPriority {
		t.Fatalf("expected medium tier, got %s", got.Tier)
	}
	if got.Message != "Don't miss out on the latest properties in your area!" {
		t.Fatalf("unexpected message %q", got.Message)
	}
	if store.notifications != 1 {
		t.Fatalf("expected one notification, got %d", store.notifications)
	}
	if len(email.sends) != 1 || email.sends[0] != "user@example.com" {
		t.Fatalf("expected one email to the user, got %v", email.sends)
	}
	if bus.count("retention.campaign.sent") != 1 {
		t.Fatal("expected campaign sent event")
	}
}

func TestScanSendsHighCampaignForLongInactivity(t *testing.T) {
	user := inactiveUser(200) // past the 168h high threshold
	store := &fakeRetentionStore{users: []User{user}}
	s := newTestScheduler(store, &fakeRetentionEmail{}, &recordingBus{})

	s.Scan(context.Background())

	if len(store.campaigns) != 1 {
		t.Fatalf("expected one campaign, got %d", len(store.campaigns))
	}
	got := store.campaigns[0]
	if got.Tier != TierHighPriority {
		t.Fatalf("expected high tier, got %s", got.Tier)
	}
	if got.Message != "We miss you! Come back and discover amazing properties waiting for you." {
		t.Fatalf("unexpected message %q", got.Message)
	}
}

func TestScanSkipsUserInsideCooldown(t *testing.T) {
	user := inactiveUser(96)
	store := &fakeRetentionStore{
		users:        []User{user},
		recentByUser: map[uuid.UUID]bool{user.ID: true},
	}
	email := &fakeRetentionEmail{}
	s := newTestScheduler(store, email, &recordingBus{})

	s.Scan(context.Background())

	if len(store.campaigns) != 0 {
		t.Fatalf("expected no campaign inside cooldown, got %d", len(store.campaigns))
	}
	if len(email.sends) != 0 {
		t.Fatal("expected no email inside cooldown")
	}
}

func TestConcurrentScansSendExactlyOneCampaign(t *testing.T) {
	user := inactiveUser(96)
	store := &fakeRetentionStore{}
	s := newTestScheduler(store, &fakeRetentionEmail{}, &recordingBus{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.processUser(context.Background(), user, testNow); err != nil {
				t.Errorf("process user failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(store.campaigns) != 1 {
		t.Fatalf("expected exactly one campaign across concurrent scans, got %d", len(store.campaigns))
	}
}

func TestScanDuplicateInsertIsBenign(t *testing.T) {
	user := inactiveUser(96)
	store := &fakeRetentionStore{users: []User{user}, campaignErr: ErrDuplicateCampaign}
	email := &fakeRetentionEmail{}
	s := newTestScheduler(store, email, &recordingBus{})

	s.Scan(context.Background())

	if len(email.sends) != 0 {
		t.Fatal("expected no email when another invocation won the insert")
	}
}

func TestScanIsolatesPerUserFailures(t *testing.T) {
	broken := inactiveUser(96)
	broken.Email = "broken@example.com"
	healthy := inactiveUser(96)
	healthy.Email = "healthy@example.com"

	store := &fakeRetentionStore{users: []User{broken, healthy}}
	email := &fakeRetentionEmail{fail: map[string]error{"broken@example.com": errors.New("bounce")}}
	s := newTestScheduler(store, email, &recordingBus{})

	s.Scan(context.Background())

	if len(email.sends) != 1 || email.sends[0] != "healthy@example.com" {
		t.Fatalf("expected the healthy user still emailed, got %v", email.sends)
	}
}

func TestScanEnqueuesPushOnlyWithToken(t *testing.T) {
	withToken := inactiveUser(96)
	withToken.PushToken = "tok-1"
	withoutToken := inactiveUser(96)

	store := &fakeRetentionStore{users: []User{withToken, withoutToken}}
	s := newTestScheduler(store, &fakeRetentionEmail{}, &recordingBus{})

	s.Scan(context.Background())

	if store.pushes != 1 {
		t.Fatalf("expected one push enqueued, got %d", store.pushes)
	}
}

func TestScanRaisesChurnAlerts(t *testing.T) {
	churned := inactiveUser(400)
	churned.CampaignsSent = 5
	store := &fakeRetentionStore{churnRisks: []User{churned}}
	bus := &recordingBus{}
	s := newTestScheduler(store, &fakeRetentionEmail{}, bus)

	s.Scan(context.Background())

	if len(store.alerts) != 1 || store.alerts[0].ID != churned.ID {
		t.Fatalf("expected one churn alert, got %+v", store.alerts)
	}
	if bus.count("retention.churn_risk.detected") != 1 {
		t.Fatal("expected churn risk event")
	}
}
