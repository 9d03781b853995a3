// Package protocol defines the websocket wire format of the live competition
// room. Every message is an envelope {"type": ..., "payload": {...}}.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"trivia-live-service/internal/domain"
)

const (
	TypeJoinCompetition  = "join_competition"
	TypeStartCompetition = "start_competition"
	TypeNextQuestion     = "next_question"
	TypeSubmitAnswer     = "submit_answer"
)

// ErrUnknownType is returned by Decode for well-formed envelopes whose type is
// not part of the protocol. Callers ignore these messages.
var ErrUnknownType = errors.New("unknown message type")

var validate = validator.New()

// Inbound is a decoded client message. The set of implementations is closed.
type Inbound interface {
	Type() string
	inbound()
}

// JoinCompetition binds the connection to a competition and user.
type JoinCompetition struct {
	CompetitionID int64 `json:"competitionId" validate:"required,gt=0"`
	UserID        int64 `json:"userId" validate:"required,gt=0"`
}

// StartCompetition moves the connection's competition to live.
type StartCompetition struct{}

// NextQuestion advances the connection's competition cursor.
type NextQuestion struct{}

// SubmitAnswer answers the question currently at the cursor.
type SubmitAnswer struct {
	QuestionID     int64  `json:"questionId" validate:"required,gt=0"`
	SelectedAnswer string `json:"selectedAnswer" validate:"required"`
	TimeToAnswer   int    `json:"timeToAnswer" validate:"gte=0"`
}

func (JoinCompetition) Type() string  { return TypeJoinCompetition }
func (StartCompetition) Type() string { return TypeStartCompetition }
func (NextQuestion) Type() string     { return TypeNextQuestion }
func (SubmitAnswer) Type() string     { return TypeSubmitAnswer }

func (JoinCompetition) inbound()  {}
func (StartCompetition) inbound() {}
func (NextQuestion) inbound()     {}
func (SubmitAnswer) inbound()     {}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses and validates one inbound frame. It returns an error wrapping
// domain.ErrMalformedMessage for bad JSON or missing fields, and
// ErrUnknownType for types outside the protocol.
func Decode(data []byte) (Inbound, error) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}

	switch msg.Type {
	case TypeJoinCompetition:
		return decodePayload[JoinCompetition](msg.Payload)
	case TypeStartCompetition:
		return StartCompetition{}, nil
	case TypeNextQuestion:
		return NextQuestion{}, nil
	case TypeSubmitAnswer:
		return decodePayload[SubmitAnswer](msg.Payload)
	case "":
		return nil, fmt.Errorf("%w: missing type", domain.ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
}

func decodePayload[T Inbound](raw json.RawMessage) (Inbound, error) {
	var payload T
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: %s requires a payload", domain.ErrMalformedMessage, payload.Type())
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedMessage, payload.Type(), err)
	}
	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedMessage, payload.Type(), err)
	}
	return payload, nil
}
