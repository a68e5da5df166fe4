// Package dispatch routes resolved funnel steps to the correct outbound
// channel adapter. It validates recipients before any network call, applies
// outbound throttling, and reports a single outcome per send; retry policy
// belongs to the provider, not here.
package dispatch

import (
	"context"
	"strings"

	"nurture_backend/internal/funnels/domain"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Content is a step's rendered payload, with all merge tokens resolved.
type Content struct {
	Subject  string
	Body     string
	MediaURL string
}

// Recipient is the lead-side delivery target.
type Recipient struct {
	LeadID  uuid.UUID
	OwnerID uuid.UUID
	Email   string
	Phone   string
}

// Outcome describes one completed dispatch.
type Outcome struct {
	Channel string
	Target  string
	TaskID  uuid.UUID
	// NoOp is set for wait/condition/custom steps, which exist for the
	// sequencer's timing and branching and send nothing.
	NoOp bool
}

// EmailSender delivers an email message.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// SMSSender delivers a text message to an E.164 phone number.
type SMSSender interface {
	Send(ctx context.Context, toE164, message string, mediaURLs []string) error
}

// VoiceSender places an outbound scripted call to an E.164 phone number.
type VoiceSender interface {
	Call(ctx context.Context, toE164, script string) error
}

// TaskWriter records an internal reminder for a human operator.
type TaskWriter interface {
	CreateTask(ctx context.Context, ownerID, leadID uuid.UUID, title, note string) (uuid.UUID, error)
}

// Dispatcher fans resolved steps out to channel adapters.
type Dispatcher struct {
	email   EmailSender
	sms     SMSSender
	voice   VoiceSender
	tasks   TaskWriter
	limiter *rate.Limiter
	log     *logger.Logger
}

// New creates a dispatcher. Nil adapters mark a channel as not configured;
// dispatching to one fails with a validation error before any send attempt.
func New(email EmailSender, sms SMSSender, voice VoiceSender, tasks TaskWriter, limiter *rate.Limiter, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		email:   email,
		sms:     sms,
		voice:   voice,
		tasks:   tasks,
		limiter: limiter,
		log:     log,
	}
}

// Dispatch sends one step. Validation failures surface synchronously and
// never reach an adapter; adapter failures come back as transport errors.
func (d *Dispatcher) Dispatch(ctx context.Context, step domain.Step, content Content, rcpt Recipient) (Outcome, error) {
	switch step.Type {
	case domain.StepWait, domain.StepCondition, domain.StepCustom:
		return Outcome{Channel: string(step.Type), NoOp: true}, nil

	case domain.StepEmail:
		if d.email == nil {
			return Outcome{}, apperr.Validation("email channel is not configured")
		}
		if rcpt.Email == "" {
			return Outcome{}, apperr.Validation("lead has no email address")
		}
		if err := d.wait(ctx); err != nil {
			return Outcome{}, err
		}
		err := d.email.Send(ctx, rcpt.Email, content.Subject, htmlBody(content.Body), content.Body)
		d.report("email", step.ID, rcpt.LeadID, err)
		if err != nil {
			return Outcome{}, apperr.Transport("email send failed", err)
		}
		return Outcome{Channel: "email", Target: rcpt.Email}, nil

	case domain.StepSMS:
		if d.sms == nil {
			return Outcome{}, apperr.Validation("sms channel is not configured")
		}
		number, err := requireE164(rcpt.Phone)
		if err != nil {
			return Outcome{}, err
		}
		if err := d.wait(ctx); err != nil {
			return Outcome{}, err
		}
		sendErr := d.sms.Send(ctx, number, content.Body, mediaURLs(content))
		d.report("sms", step.ID, rcpt.LeadID, sendErr)
		if sendErr != nil {
			return Outcome{}, apperr.Transport("sms send failed", sendErr)
		}
		return Outcome{Channel: "sms", Target: number}, nil

	case domain.StepVoice:
		if d.voice == nil {
			return Outcome{}, apperr.Validation("voice channel is not configured")
		}
		number, err := requireE164(rcpt.Phone)
		if err != nil {
			return Outcome{}, err
		}
		if err := d.wait(ctx); err != nil {
			return Outcome{}, err
		}
		callErr := d.voice.Call(ctx, number, content.Body)
		d.report("voice", step.ID, rcpt.LeadID, callErr)
		if callErr != nil {
			return Outcome{}, apperr.Transport("voice call failed", callErr)
		}
		return Outcome{Channel: "voice", Target: number}, nil

	case domain.StepTask:
		if d.tasks == nil {
			return Outcome{}, apperr.Validation("task writer is not configured")
		}
		taskID, err := d.tasks.CreateTask(ctx, rcpt.OwnerID, rcpt.LeadID, step.Title, content.Body)
		d.report("task", step.ID, rcpt.LeadID, err)
		if err != nil {
			return Outcome{}, apperr.Wrap(apperr.KindInternal, "task creation failed", err)
		}
		return Outcome{Channel: "task", TaskID: taskID}, nil
	}

	return Outcome{}, apperr.Validation("unknown step type " + string(step.Type))
}

// TestTarget is the operator-supplied destination for a preview send.
type TestTarget struct {
	Email string
	Phone string
}

// TestSendPrefix marks preview subjects so an operator-triggered send is
// never mistaken for a live one.
const TestSendPrefix = "[TEST] "

// TestSend previews a step against an operator's own address or phone using
// the live adapters. It takes no run state and therefore cannot mutate any.
func (d *Dispatcher) TestSend(ctx context.Context, step domain.Step, content Content, target TestTarget) (Outcome, error) {
	preview := content
	preview.Subject = TestSendPrefix + content.Subject

	rcpt := Recipient{Email: target.Email, Phone: target.Phone}
	switch step.Type {
	case domain.StepEmail:
		if target.Email == "" {
			return Outcome{}, apperr.Validation("a test email address is required")
		}
	case domain.StepSMS, domain.StepVoice:
		if target.Phone == "" {
			return Outcome{}, apperr.Validation("a test phone number is required")
		}
	case domain.StepTask, domain.StepWait, domain.StepCondition, domain.StepCustom:
		return Outcome{}, apperr.Validation("step type " + string(step.Type) + " has no test send")
	}

	return d.Dispatch(ctx, step, preview, rcpt)
}

func (d *Dispatcher) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return d.limiter.Wait(ctx)
}

func (d *Dispatcher) report(channel, stepID string, leadID uuid.UUID, err error) {
	if d.log == nil {
		return
	}
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	d.log.DispatchEvent(channel, stepID, leadID.String(), err == nil, reason)
}

func requireE164(raw string) (string, error) {
	number, ok := phone.ValidateE164(raw)
	if !ok {
		return "", apperr.Validation("recipient phone number is not a valid E.164 number")
	}
	return number, nil
}

func mediaURLs(content Content) []string {
	if content.MediaURL == "" {
		return nil
	}
	return []string{content.MediaURL}
}

func htmlBody(text string) string {
	return strings.ReplaceAll(text, "\n", "<br/>")
}
