package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/novinrelay/lead-relay/internal/dedup"
	"github.com/novinrelay/lead-relay/internal/gateway"
	"github.com/novinrelay/lead-relay/internal/model"
	"github.com/novinrelay/lead-relay/internal/pipeline"
)

func testConfig() pipeline.Config {
	return pipeline.Config{
		PatternCode:          "abc123",
		DefaultCodeText:      "کاربر گرامی",
		ExtractFromAutoforms: true,
		SendTimeout:          time.Second,
	}
}

func leadEvent(userID, value string) model.WebhookEvent {
	payload, _ := json.Marshal(map[string]string{
		"id":    "lead-1",
		"type":  "number",
		"value": value,
	})
	return model.WebhookEvent{Type: "leed_created", UserID: model.FlexID(userID), Payload: payload}
}

func TestPipelineProcess(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	t.Run("lead with phone sends sms and notifies admins", func(t *testing.T) {
		store := &mockStore{}
		gw := &mockGateway{}
		admins := &mockAdmins{}
		dlog := &mockDeliveryLog{}
		p := pipeline.New(testConfig(), store, gw, admins, dlog, log)

		res := p.Process(ctx, leadEvent("76599340", "09155520952"))

		if res.State != pipeline.Completed {
			t.Fatalf("state = %v, want Completed", res.State)
		}
		if res.Phone != "09155520952" {
			t.Errorf("phone = %q, want 09155520952", res.Phone)
		}
		if len(gw.Requests) != 1 {
			t.Fatalf("gateway calls = %d, want 1", len(gw.Requests))
		}
		req := gw.Requests[0]
		if req.Recipient != "09155520952" || req.PatternCode != "abc123" {
			t.Errorf("unexpected request: %+v", req)
		}
		if req.Variables["code"] != "76599340" {
			t.Errorf("code variable = %q, want actor id", req.Variables["code"])
		}
		if len(admins.All()) != 1 {
			t.Errorf("admin notifications = %d, want 1", len(admins.All()))
		}
		if len(dlog.Rows) != 1 || dlog.Rows[0].Status != model.DeliverySent {
			t.Errorf("delivery log rows = %+v, want one sent row", dlog.Rows)
		}
	})

	t.Run("duplicate lead is skipped without a second gateway call", func(t *testing.T) {
		calls := 0
		store := &mockStore{CheckAndReserveFunc: func(ctx context.Context, phone string) (dedup.Result, error) {
			calls++
			if calls == 1 {
				return dedup.Allowed, nil
			}
			return dedup.AlreadySent, nil
		}}
		gw := &mockGateway{}
		p := pipeline.New(testConfig(), store, gw, &mockAdmins{}, nil, log)

		ev := leadEvent("76599340", "09155520952")
		if res := p.Process(ctx, ev); res.State != pipeline.Completed {
			t.Fatalf("first event state = %v, want Completed", res.State)
		}
		res := p.Process(ctx, ev)
		if res.State != pipeline.Skipped {
			t.Fatalf("second event state = %v, want Skipped", res.State)
		}
		if !strings.Contains(res.Reason, "already sent") {
			t.Errorf("reason = %q", res.Reason)
		}
		if len(gw.Requests) != 1 {
			t.Errorf("gateway calls = %d, want 1", len(gw.Requests))
		}
	})

	t.Run("empty actor id falls back to greeting", func(t *testing.T) {
		gw := &mockGateway{}
		p := pipeline.New(testConfig(), &mockStore{}, gw, &mockAdmins{}, nil, log)

		p.Process(ctx, leadEvent("", "09155520952"))

		if len(gw.Requests) != 1 {
			t.Fatalf("gateway calls = %d, want 1", len(gw.Requests))
		}
		if got := gw.Requests[0].Variables["code"]; got != "کاربر گرامی" {
			t.Errorf("code variable = %q, want generic greeting", got)
		}
	})

	t.Run("gateway failure still completes and is reported to admins", func(t *testing.T) {
		gw := &mockGateway{SendFunc: func(ctx context.Context, req gateway.Request) gateway.Outcome {
			return gateway.Outcome{ProviderStatus: 500, ErrorDetail: "provider down"}
		}}
		admins := &mockAdmins{}
		dlog := &mockDeliveryLog{}
		p := pipeline.New(testConfig(), &mockStore{}, gw, admins, dlog, log)

		res := p.Process(ctx, leadEvent("76599340", "09155520952"))

		if res.State != pipeline.Completed {
			t.Fatalf("state = %v, want Completed", res.State)
		}
		if !strings.Contains(res.Reason, "delivery failed") {
			t.Errorf("reason = %q", res.Reason)
		}
		notes := admins.All()
		if len(notes) != 1 || !strings.Contains(notes[0], "failed") {
			t.Errorf("admin notice = %v, want failure mention", notes)
		}
		if len(dlog.Rows) != 1 || dlog.Rows[0].Status != model.DeliveryFailed {
			t.Errorf("delivery log rows = %+v, want one failed row", dlog.Rows)
		}
	})

	t.Run("unknown event kind is skipped", func(t *testing.T) {
		gw := &mockGateway{}
		p := pipeline.New(testConfig(), &mockStore{}, gw, &mockAdmins{}, nil, log)

		res := p.Process(ctx, model.WebhookEvent{Type: "something_else"})
		if res.State != pipeline.Skipped {
			t.Errorf("state = %v, want Skipped", res.State)
		}
		if len(gw.Requests) != 0 {
			t.Errorf("gateway calls = %d, want 0", len(gw.Requests))
		}
	})

	t.Run("revalidate is acknowledged without side effects", func(t *testing.T) {
		gw := &mockGateway{}
		store := &mockStore{}
		p := pipeline.New(testConfig(), store, gw, &mockAdmins{}, nil, log)

		res := p.Process(ctx, model.WebhookEvent{Type: "revalidate"})
		if res.State != pipeline.Skipped {
			t.Errorf("state = %v, want Skipped", res.State)
		}
		if len(store.Phones) != 0 || len(gw.Requests) != 0 {
			t.Error("revalidate should not touch dedup or gateway")
		}
	})

	t.Run("lead without phone is skipped", func(t *testing.T) {
		p := pipeline.New(testConfig(), &mockStore{}, &mockGateway{}, &mockAdmins{}, nil, log)

		res := p.Process(ctx, leadEvent("76599340", "not a number"))
		if res.State != pipeline.Skipped {
			t.Errorf("state = %v, want Skipped", res.State)
		}
	})

	t.Run("message extraction honors config flag", func(t *testing.T) {
		payload, _ := json.Marshal(map[string]string{"id": "m1", "text": "تماس: 09121234567"})
		ev := model.WebhookEvent{Type: "message_created", UserID: "42", Payload: payload}

		gw := &mockGateway{}
		off := pipeline.New(testConfig(), &mockStore{}, gw, &mockAdmins{}, nil, log)
		if res := off.Process(ctx, ev); res.State != pipeline.Skipped {
			t.Fatalf("disabled state = %v, want Skipped", res.State)
		}
		if len(gw.Requests) != 0 {
			t.Fatal("disabled extraction should not send")
		}

		cfg := testConfig()
		cfg.ExtractFromMessages = true
		on := pipeline.New(cfg, &mockStore{}, gw, &mockAdmins{}, nil, log)
		res := on.Process(ctx, ev)
		if res.State != pipeline.Completed {
			t.Fatalf("enabled state = %v, want Completed", res.State)
		}
		if len(gw.Requests) != 1 || gw.Requests[0].Recipient != "09121234567" {
			t.Errorf("requests = %+v", gw.Requests)
		}
	})

	t.Run("autoform answers are scanned for numbers", func(t *testing.T) {
		payload := json.RawMessage(`{"id":"f1","messages":[{"question":"phone?","answer":"09155520952"}]}`)
		ev := model.WebhookEvent{Type: "autoform_completed", UserID: "42", Payload: payload}

		gw := &mockGateway{}
		p := pipeline.New(testConfig(), &mockStore{}, gw, &mockAdmins{}, nil, log)

		res := p.Process(ctx, ev)
		if res.State != pipeline.Completed {
			t.Fatalf("state = %v, want Completed", res.State)
		}
		if len(gw.Requests) != 1 || gw.Requests[0].Recipient != "09155520952" {
			t.Errorf("requests = %+v", gw.Requests)
		}
	})

	t.Run("dedup store outage fails the event without sending", func(t *testing.T) {
		store := &mockStore{CheckAndReserveFunc: func(ctx context.Context, phone string) (dedup.Result, error) {
			return dedup.AlreadySent, errors.New("redis: connection refused")
		}}
		gw := &mockGateway{}
		p := pipeline.New(testConfig(), store, gw, &mockAdmins{}, nil, log)

		res := p.Process(ctx, leadEvent("76599340", "09155520952"))
		if res.State != pipeline.Failed {
			t.Errorf("state = %v, want Failed", res.State)
		}
		if len(gw.Requests) != 0 {
			t.Errorf("gateway calls = %d, want 0", len(gw.Requests))
		}
	})

	t.Run("disabled gateway completes without provider traffic", func(t *testing.T) {
		gw := &mockGateway{Disabled: true}
		admins := &mockAdmins{}
		p := pipeline.New(testConfig(), &mockStore{}, gw, admins, nil, log)

		res := p.Process(ctx, leadEvent("76599340", "09155520952"))
		if res.State != pipeline.Completed {
			t.Fatalf("state = %v, want Completed", res.State)
		}
		if len(gw.Requests) != 0 {
			t.Errorf("gateway calls = %d, want 0", len(gw.Requests))
		}
		if len(admins.All()) != 1 {
			t.Errorf("admins should still be notified")
		}
	})
}
