package mq

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jjudge-oj/runlog/types"
)

// Attribute keys set on code run event messages.
const (
	AttrEventType   = "event_type"
	AttrUserID      = "user_id"
	AttrContentType = "content_type"
)

// EventCodeRunCreated is the event type of a stored code run.
const EventCodeRunCreated = "code_run.created"

func encodeCodeRunEvent(event types.CodeRunEvent) ([]byte, map[string]string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("encode code run event: %w", err)
	}
	attrs := map[string]string{
		AttrEventType:   EventCodeRunCreated,
		AttrUserID:      event.UserID,
		AttrContentType: "application/json",
	}
	return data, attrs, nil
}

func wrapPublishErr(err error) error {
	return fmt.Errorf("publish code run event: %w", err)
}

// DecodeCodeRunEvent parses a message produced by MQ.PublishCodeRun.
func DecodeCodeRunEvent(msg Message) (types.CodeRunEvent, error) {
	if eventType := msg.Attributes[AttrEventType]; eventType != "" && eventType != EventCodeRunCreated {
		return types.CodeRunEvent{}, fmt.Errorf("unexpected event type %q", eventType)
	}

	var event types.CodeRunEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.CodeRunEvent{}, fmt.Errorf("decode code run event: %w", err)
	}
	if strings.TrimSpace(event.UserID) == "" {
		return types.CodeRunEvent{}, errors.New("code run event without user id")
	}
	return event, nil
}
