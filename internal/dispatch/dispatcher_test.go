package dispatch

import (
	"context"
	"errors"
	"testing"

	"nurture_backend/internal/funnels/domain"
	"nurture_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeEmail struct {
	to      string
	subject string
	html    string
	text    string
	calls   int
	err     error
}

func (f *fakeEmail) Send(_ context.Context, to, subject, htmlBody, textBody string) error {
	f.calls++
	f.to, f.subject, f.html, f.text = to, subject, htmlBody, textBody
	return f.err
}

type fakeSMS struct {
	to      string
	message string
	media   []string
	calls   int
	err     error
}

func (f *fakeSMS) Send(_ context.Context, toE164, message string, mediaURLs []string) error {
	f.calls++
	f.to, f.message, f.media = toE164, message, mediaURLs
	return f.err
}

type fakeVoice struct {
	to     string
	script string
	calls  int
	err    error
}

func (f *fakeVoice) Call(_ context.Context, toE164, script string) error {
	f.calls++
	f.to, f.script = toE164, script
	return f.err
}

type fakeTasks struct {
	ownerID uuid.UUID
	leadID  uuid.UUID
	title   string
	note    string
	id      uuid.UUID
	err     error
}

func (f *fakeTasks) CreateTask(_ context.Context, ownerID, leadID uuid.UUID, title, note string) (uuid.UUID, error) {
	f.ownerID, f.leadID, f.title, f.note = ownerID, leadID, title, note
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.id, nil
}

func testRecipient() Recipient {
	return Recipient{
		LeadID:  uuid.New(),
		OwnerID: uuid.New(),
		Email:   "lead@example.com",
		Phone:   "+14155552671",
	}
}

func TestDispatchEmailRoutesToEmailSender(t *testing.T) {
	email := &fakeEmail{}
	d := New(email, nil, nil, nil, nil, nil)
	step := domain.Step{ID: "s1", Type: domain.StepEmail, ContentTemplate: "x"}
	content := Content{Subject: "Welcome", Body: "Hi Jordan\nSee you soon"}

	outcome, err := d.Dispatch(context.Background(), step, content, testRecipient())
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if outcome.Channel != "email" || outcome.Target != "lead@example.com" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if email.calls != 1 {
		t.Fatalf("expected exactly one send, got %d", email.calls)
	}
	if email.html != "Hi Jordan<br/>See you soon" {
		t.Fatalf("expected newlines converted for html body, got %q", email.html)
	}
	if email.text != "Hi Jordan\nSee you soon" {
		t.Fatalf("expected plain text alternative preserved, got %q", email.text)
	}
}

func TestDispatchSMSNormalizesPhoneAndPassesMedia(t *testing.T) {
	sms := &fakeSMS{}
	d := New(nil, sms, nil, nil, nil, nil)
	step := domain.Step{ID: "s1", Type: domain.StepSMS, ContentTemplate: "x"}
	rcpt := testRecipient()
	rcpt.Phone = "(415) 555-2671"

	outcome, err := d.Dispatch(context.Background(), step, Content{Body: "ping", MediaURL: "https://cdn.example.com/a.jpg"}, rcpt)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if outcome.Target != "+14155552671" {
		t.Fatalf("expected normalized E.164 target, got %q", outcome.Target)
	}
	if sms.to != "+14155552671" {
		t.Fatalf("expected adapter to receive normalized number, got %q", sms.to)
	}
	if len(sms.media) != 1 || sms.media[0] != "https://cdn.example.com/a.jpg" {
		t.Fatalf("expected media url passed through, got %v", sms.media)
	}
}

func TestDispatchInvalidPhoneFailsBeforeAdapter(t *testing.T) {
	sms := &fakeSMS{}
	d := New(nil, sms, nil, nil, nil, nil)
	step := domain.Step{ID: "s1", Type: domain.StepSMS, ContentTemplate: "x"}
	rcpt := testRecipient()
	rcpt.Phone = "not-a-number"

	_, err := d.Dispatch(context.Background(), step, Content{Body: "ping"}, rcpt)
	if err == nil {
		t.Fatal("expected validation error for malformed phone")
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}
	if sms.calls != 0 {
		t.Fatal("expected no adapter call for malformed phone")
	}
}

func TestDispatchMissingEmailAddressFails(t *testing.T) {
	email := &fakeEmail{}
	d := New(email, nil, nil, nil, nil, nil)
	step := domain.Step{ID: "s1", Type: domain.StepEmail, ContentTemplate: "x"}
	rcpt := testRecipient()
	rcpt.Email = ""

	_, err := d.Dispatch(context.Background(), step, Content{}, rcpt)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if email.calls != 0 {
		t.Fatal("expected no send without an address")
	}
}

func TestDispatchUnconfiguredChannelFails(t *testing.T) {
	d := New(nil, nil, nil, nil, nil, nil)
	step := domain.Step{ID: "s1", Type: domain.StepVoice}

	_, err := d.Dispatch(context.Background(), step, Content{Body: "script"}, testRecipient())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for unconfigured channel, got %v", err)
	}
}

func TestDispatchAdapterFailureIsTransportError(t *testing.T) {
	email := &fakeEmail{err: errors.New("smtp timeout")}
	d := New(email, nil, nil, nil, nil, nil)
	step := domain.Step{ID: "s1", Type: domain.StepEmail, ContentTemplate: "x"}

	_, err := d.Dispatch(context.Background(), step, Content{Subject: "s", Body: "b"}, testRecipient())
	if err == nil {
		t.Fatal("expected adapter failure to surface")
	}
	if !apperr.Is(err, apperr.KindTransport) {
		t.Fatalf("expected transport kind, got %v", err)
	}
}

func TestDispatchTaskCreatesOperatorTask(t *testing.T) {
	taskID := uuid.New()
	tasks := &fakeTasks{id: taskID}
	d := New(nil, nil, nil, tasks, nil, nil)
	step := domain.Step{ID: "s1", Type: domain.StepTask, Title: "Call the lead"}
	rcpt := testRecipient()

	outcome, err := d.Dispatch(context.Background(), step, Content{Body: "They asked about Elm St"}, rcpt)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if outcome.Channel != "task" || outcome.TaskID != taskID {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if tasks.ownerID != rcpt.OwnerID || tasks.leadID != rcpt.LeadID {
		t.Fatal("expected task attributed to the recipient's owner and lead")
	}
	if tasks.title != "Call the lead" || tasks.note != "They asked about Elm St" {
		t.Fatalf("unexpected task fields title=%q note=%q", tasks.title, tasks.note)
	}
}

func TestDispatchNoOpStepsSendNothing(t *testing.T) {
	email := &fakeEmail{}
	sms := &fakeSMS{}
	d := New(email, sms, nil, nil, nil, nil)

	for _, st := range []domain.StepType{domain.StepWait, domain.StepCondition, domain.StepCustom} {
		outcome, err := d.Dispatch(context.Background(), domain.Step{ID: "s1", Type: st}, Content{}, testRecipient())
		if err != nil {
			t.Fatalf("dispatch of %s failed: %v", st, err)
		}
		if !outcome.NoOp {
			t.Fatalf("expected %s to be a no-op", st)
		}
	}
	if email.calls != 0 || sms.calls != 0 {
		t.Fatal("expected no adapter calls for no-op steps")
	}
}

func TestTestSendPrefixesSubjectAndUsesOperatorTarget(t *testing.T) {
	email := &fakeEmail{}
	d := New(email, nil, nil, nil, nil, nil)
	step := domain.Step{ID: "s1", Type: domain.StepEmail, ContentTemplate: "x"}

	outcome, err := d.TestSend(context.Background(), step, Content{Subject: "Welcome", Body: "b"}, TestTarget{Email: "agent@example.com"})
	if err != nil {
		t.Fatalf("test send failed: %v", err)
	}
	if email.subject != "[TEST] Welcome" {
		t.Fatalf("expected prefixed subject, got %q", email.subject)
	}
	if outcome.Target != "agent@example.com" {
		t.Fatalf("expected operator address as target, got %q", outcome.Target)
	}
}

func TestTestSendRequiresTargetForChannel(t *testing.T) {
	d := New(&fakeEmail{}, &fakeSMS{}, nil, nil, nil, nil)

	if _, err := d.TestSend(context.Background(), domain.Step{Type: domain.StepEmail}, Content{}, TestTarget{}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error without email target, got %v", err)
	}
	if _, err := d.TestSend(context.Background(), domain.Step{Type: domain.StepSMS}, Content{}, TestTarget{}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error without phone target, got %v", err)
	}
}

func TestTestSendRejectsNonChannelSteps(t *testing.T) {
	tasks := &fakeTasks{id: uuid.New()}
	d := New(nil, nil, nil, tasks, nil, nil)

	for _, st := range []domain.StepType{domain.StepTask, domain.StepWait, domain.StepCondition, domain.StepCustom} {
		_, err := d.TestSend(context.Background(), domain.Step{Type: st}, Content{}, TestTarget{Email: "a@b.c", Phone: "+14155552671"})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected %s test send to be rejected, got %v", st, err)
		}
	}
	if tasks.title != "" {
		t.Fatal("expected no task created by a test send")
	}
}
