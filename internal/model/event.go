package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// EventKind classifies incoming webhook events by their type tag.
type EventKind string

const (
	KindMessageCreated    EventKind = "message_created"
	KindCommentCreated    EventKind = "comment_created"
	KindAutoformCompleted EventKind = "autoform_completed"
	KindLeadCreated       EventKind = "leed_created" // platform spells it "leed"
	KindRevalidate        EventKind = "revalidate"
	KindUnknown           EventKind = "unknown"
)

func (k EventKind) String() string { return string(k) }

// ParseEventKind maps a raw type tag onto a known kind.
// Returns (KindUnknown, false) for anything unrecognized.
func ParseEventKind(s string) (EventKind, bool) {
	switch EventKind(strings.TrimSpace(s)) {
	case KindMessageCreated:
		return KindMessageCreated, true
	case KindCommentCreated:
		return KindCommentCreated, true
	case KindAutoformCompleted:
		return KindAutoformCompleted, true
	case KindLeadCreated:
		return KindLeadCreated, true
	case KindRevalidate:
		return KindRevalidate, true
	default:
		return KindUnknown, false
	}
}

// FlexID absorbs user_id values that arrive as either a JSON string or a number.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }
func (f FlexID) Empty() bool    { return strings.TrimSpace(string(f)) == "" }

// WebhookEvent is the envelope posted by the platform. Payload stays raw until
// the kind is known; each kind has its own partially-populated shape.
type WebhookEvent struct {
	Type    string          `json:"type"`
	UserID  FlexID          `json:"user_id"`
	Payload json.RawMessage `json:"payload"`
}

// Kind classifies the event's type tag.
func (e WebhookEvent) Kind() EventKind {
	k, _ := ParseEventKind(e.Type)
	return k
}

// Message is the payload of message_created events.
type Message struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Content string `json:"content"`
}

// Comment is the payload of comment_created events.
type Comment struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// FormResponse is the payload of autoform_completed events. Messages carries
// free-form answers whose shape varies per form; it is scanned as text.
type FormResponse struct {
	ID       string          `json:"id"`
	Messages json.RawMessage `json:"messages"`
}

// Lead is the payload of leed_created events. Value holds the captured lead
// datum (a phone number when Type is "number"); Phone is an occasionally
// populated alternative field.
type Lead struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Value     string `json:"value"`
	Phone     string `json:"phone"`
	MessageID string `json:"message_id"`
}

// DecodePayload unmarshals the raw payload into the kind-specific type.
func DecodePayload(e WebhookEvent, v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// WebhookResponse is returned to the platform for every classified event.
type WebhookResponse struct {
	Status  string `json:"status"`
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
