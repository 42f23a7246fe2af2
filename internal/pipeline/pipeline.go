// Package pipeline turns one webhook event into at most one SMS plus an admin
// notification.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/novinrelay/lead-relay/internal/dedup"
	"github.com/novinrelay/lead-relay/internal/gateway"
	"github.com/novinrelay/lead-relay/internal/metrics"
	"github.com/novinrelay/lead-relay/internal/model"
	"github.com/novinrelay/lead-relay/internal/phone"
	"github.com/novinrelay/lead-relay/internal/util"
)

// State is the terminal state of one event's processing.
type State int

const (
	Completed State = iota
	Skipped
	Failed
)

func (s State) String() string {
	switch s {
	case Completed:
		return "completed"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result reports how an event terminated. Reason is a short human-readable
// explanation surfaced in the webhook response body and logs.
type Result struct {
	State  State
	Reason string
	Phone  string
}

// Gateway is the outbound SMS boundary.
type Gateway interface {
	Send(ctx context.Context, req gateway.Request) gateway.Outcome
	Enabled() bool
}

// AdminNotifier fans a lead summary out to the operators.
type AdminNotifier interface {
	NotifyAll(ctx context.Context, text string)
}

// DeliveryLog records gateway attempts; may be absent in dev.
type DeliveryLog interface {
	Insert(ctx context.Context, d model.Delivery) error
}

// Config for the pipeline.
type Config struct {
	PatternCode          string
	DefaultCodeText      string
	ExtractFromMessages  bool
	ExtractFromAutoforms bool
	SendTimeout          time.Duration // hard bound on gateway call incl. retries
}

type Pipeline struct {
	cfg        Config
	dedupStore dedup.Store
	gw         Gateway
	admins     AdminNotifier
	deliveries DeliveryLog
	log        *zap.Logger
}

func New(cfg Config, store dedup.Store, gw Gateway, admins AdminNotifier, deliveries DeliveryLog, log *zap.Logger) *Pipeline {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.DefaultCodeText == "" {
		cfg.DefaultCodeText = "کاربر گرامی"
	}
	return &Pipeline{
		cfg:        cfg,
		dedupStore: store,
		gw:         gw,
		admins:     admins,
		deliveries: deliveries,
		log:        log,
	}
}

// Process runs the event through classify → extract → reserve → send → notify.
// It never returns an error: every internal failure collapses into the Result
// so the webhook can be acknowledged regardless.
func (p *Pipeline) Process(ctx context.Context, event model.WebhookEvent) Result {
	kind := event.Kind()
	res := p.process(ctx, kind, event)

	metrics.EventsTotal.WithLabelValues(kind.String(), res.State.String()).Inc()
	p.log.Info("event processed",
		zap.String("kind", kind.String()),
		zap.String("actor_id", event.UserID.String()),
		zap.String("state", res.State.String()),
		zap.String("reason", res.Reason))

	return res
}

func (p *Pipeline) process(ctx context.Context, kind model.EventKind, event model.WebhookEvent) Result {
	switch kind {
	case model.KindUnknown:
		return Result{State: Skipped, Reason: "unknown event type"}
	case model.KindRevalidate:
		return Result{State: Skipped, Reason: "revalidation acknowledged"}
	case model.KindCommentCreated:
		return Result{State: Skipped, Reason: "comments carry no lead signal"}
	case model.KindMessageCreated:
		if !p.cfg.ExtractFromMessages {
			return Result{State: Skipped, Reason: "message extraction disabled"}
		}
	case model.KindAutoformCompleted:
		if !p.cfg.ExtractFromAutoforms {
			return Result{State: Skipped, Reason: "autoform extraction disabled"}
		}
	}

	candidates, err := p.extract(kind, event)
	if err != nil {
		return Result{State: Failed, Reason: "undecodable payload: " + err.Error()}
	}
	if len(candidates) == 0 {
		return Result{State: Skipped, Reason: "no phone number found"}
	}
	recipient := candidates[0]

	verdict, err := p.dedupStore.CheckAndReserve(ctx, recipient)
	if err != nil {
		return Result{State: Failed, Reason: "dedup store unavailable: " + err.Error(), Phone: recipient}
	}
	if verdict == dedup.AlreadySent {
		metrics.SMSTotal.WithLabelValues("deduplicated").Inc()
		return Result{State: Skipped, Reason: "already sent today", Phone: recipient}
	}

	out := p.send(ctx, recipient, event.UserID.String())

	// Operators see every lead, delivered or not.
	p.notifyAdmins(ctx, recipient, event.UserID.String(), out)

	if !out.Accepted {
		return Result{State: Completed, Reason: "sms delivery failed: " + out.ErrorDetail, Phone: recipient}
	}
	return Result{State: Completed, Reason: "sms sent", Phone: recipient}
}

// extract pulls candidate numbers per kind, explicit fields before free text.
func (p *Pipeline) extract(kind model.EventKind, event model.WebhookEvent) ([]string, error) {
	switch kind {
	case model.KindLeadCreated:
		var lead model.Lead
		if err := model.DecodePayload(event, &lead); err != nil {
			return nil, err
		}
		var out []string
		seen := make(map[string]struct{})
		appendValid := func(raw string) {
			if raw == "" || !phone.IsValid(raw) {
				return
			}
			n := phone.Normalize(raw)
			if _, dup := seen[n]; dup {
				return
			}
			out = append(out, n)
			seen[n] = struct{}{}
		}
		appendValid(lead.Value)
		appendValid(lead.Phone)
		for _, n := range phone.Extract(lead.Value) {
			appendValid(n)
		}
		return out, nil

	case model.KindMessageCreated:
		var msg model.Message
		if err := model.DecodePayload(event, &msg); err != nil {
			return nil, err
		}
		text := msg.Text
		if text == "" {
			text = msg.Content
		}
		return phone.Extract(text), nil

	case model.KindAutoformCompleted:
		var form model.FormResponse
		if err := model.DecodePayload(event, &form); err != nil {
			return nil, err
		}
		// Answers vary per form; scan the raw JSON as text.
		return phone.Extract(string(form.Messages)), nil
	}

	return nil, nil
}

// send calls the gateway on a context detached from the request: the dedup
// slot is already consumed, so the attempt must run to completion even if the
// webhook caller goes away.
func (p *Pipeline) send(ctx context.Context, recipient, actorID string) gateway.Outcome {
	code := strings.TrimSpace(actorID)
	if code == "" {
		code = p.cfg.DefaultCodeText
	}

	if !p.gw.Enabled() {
		p.log.Warn("gateway disabled, skipping send", zap.String("phone", recipient))
		return gateway.Outcome{Accepted: true, ErrorDetail: "gateway disabled"}
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.SendTimeout)
	defer cancel()

	out := p.gw.Send(sendCtx, gateway.Request{
		Recipient:   recipient,
		PatternCode: p.cfg.PatternCode,
		Variables:   map[string]string{"code": code},
	})

	status := model.DeliverySent
	if out.Accepted {
		metrics.SMSTotal.WithLabelValues("sent").Inc()
		p.log.Info("sms sent",
			zap.String("phone", recipient),
			zap.Int64("message_id", out.MessageID))
	} else {
		status = model.DeliveryFailed
		metrics.SMSTotal.WithLabelValues("failed").Inc()
		p.log.Error("sms send failed",
			zap.String("phone", recipient),
			zap.Int("provider_status", out.ProviderStatus),
			zap.String("detail", out.ErrorDetail))
	}

	p.recordDelivery(sendCtx, model.Delivery{
		ID:             util.New(),
		Phone:          recipient,
		ActorID:        actorID,
		PatternCode:    p.cfg.PatternCode,
		Status:         status,
		ProviderStatus: out.ProviderStatus,
		ErrorDetail:    out.ErrorDetail,
	})

	return out
}

func (p *Pipeline) recordDelivery(ctx context.Context, d model.Delivery) {
	if p.deliveries == nil {
		return
	}
	if err := p.deliveries.Insert(ctx, d); err != nil {
		p.log.Warn("delivery log insert failed", zap.String("phone", d.Phone), zap.Error(err))
	}
}

func (p *Pipeline) notifyAdmins(ctx context.Context, recipient, actorID string, out gateway.Outcome) {
	actor := actorID
	if strings.TrimSpace(actor) == "" {
		actor = "-"
	}
	delivery := "sent"
	if !out.Accepted {
		delivery = fmt.Sprintf("failed (%s)", out.ErrorDetail)
	}
	text := fmt.Sprintf("New lead\nphone: %s\nactor: %s\nsms: %s", recipient, actor, delivery)

	p.admins.NotifyAll(context.WithoutCancel(ctx), text)
}
