package router

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"classhub/pkg/types"
)

// Request is a decoded, validated and authorized inbound event
type Request struct {
	ConnID  string
	Role    string
	Type    string
	Payload interface{} // pointer to the event's payload struct, nil for bare events
}

// Router turns raw frames into Requests. It holds no classroom state so it
// can run on connection goroutines ahead of the hub.
type Router struct {
	validate    *validator.Validate
	rateLimiter *RateLimiter
}

// NewRouter creates a router allowing rateLimit events per connection per minute
func NewRouter(rateLimit int) *Router {
	return &Router{
		validate:    validator.New(),
		rateLimiter: NewRateLimiter(rateLimit),
	}
}

// Decode parses frame and checks, in order: envelope shape, known event
// type, role permission, rate limit and payload validity. The returned
// event type is set whenever the envelope could be parsed, even on error.
func (r *Router) Decode(connID, role string, frame []byte) (*Request, string, error) {
	if len(frame) > types.MaxPayloadBytes {
		return nil, "", types.ErrContentTooLarge
	}

	var envelope types.Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if err := r.validate.Struct(&envelope); err != nil {
		return nil, envelope.Type, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if err := envelope.Validate(); err != nil {
		return nil, envelope.Type, err
	}

	if !CanSend(role, envelope.Type) {
		return nil, envelope.Type, ErrUnauthorizedEvent
	}

	if !IsStreamingEvent(envelope.Type) && !r.rateLimiter.Allow(connID) {
		return nil, envelope.Type, ErrRateLimitExceeded
	}

	payload := newPayload(envelope.Type)
	if payload != nil {
		data := envelope.Data
		if len(data) == 0 || string(data) == "null" {
			data = []byte("{}")
		}
		if err := json.Unmarshal(data, payload); err != nil {
			return nil, envelope.Type, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if err := r.validate.Struct(payload); err != nil {
			return nil, envelope.Type, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}

	return &Request{
		ConnID:  connID,
		Role:    role,
		Type:    envelope.Type,
		Payload: payload,
	}, envelope.Type, nil
}

// Forget releases per-connection state
func (r *Router) Forget(connID string) {
	r.rateLimiter.Forget(connID)
}

// IsStreamingEvent reports whether eventType arrives at client-driven
// frequency (one progress frame per keystroke, periodic heartbeats).
// These bypass the rate limiter; a dropped final progress frame would lose
// the student's result.
func IsStreamingEvent(eventType string) bool {
	return eventType == types.EventUpdateProgress || eventType == types.EventHeartbeat
}

// CanSend reports whether role may send eventType. Teachers may send
// everything; students may send everything but the teacher events.
func CanSend(role, eventType string) bool {
	switch role {
	case types.RoleTeacher:
		return true
	case types.RoleStudent:
		return !types.IsTeacherEvent(eventType)
	default:
		return false
	}
}

// newPayload returns a pointer to the payload struct of eventType
func newPayload(eventType string) interface{} {
	switch eventType {
	case types.EventSelectClass:
		return &types.SelectClassPayload{}
	case types.EventCreateCompetition:
		return &types.CreateCompetitionPayload{}
	case types.EventPublishTask:
		return &types.PublishTaskPayload{}
	case types.EventToggleTask:
		return &types.ToggleTaskPayload{}
	case types.EventCheckTaskStatus:
		return &types.TaskQueryPayload{}
	case types.EventJoinCompetition, types.EventHeartbeat, types.EventLogout:
		return &types.StudentPayload{}
	case types.EventJoinTask:
		return &types.JoinTaskPayload{}
	case types.EventUpdateProgress:
		return &types.UpdateProgressPayload{}
	case types.EventSubmitEmotion:
		return &types.SubmitEmotionPayload{}
	default:
		// start_competition, end_competition, get_selected_class, get_available_tasks
		return nil
	}
}
