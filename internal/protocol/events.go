package protocol

import (
	"encoding/json"
	"errors"

	"github.com/samber/lo"

	"trivia-live-service/internal/domain"
)

const (
	TypeCompetitionState        = "competition_state"
	TypeCompetitionStarted      = "competition_started"
	TypeParticipantJoined       = "participant_joined"
	TypeParticipantDisconnected = "participant_disconnected"
	TypeAnswerSubmitted         = "answer_submitted"
	TypeError                   = "error"
)

// Event is a server to client message.
type Event interface {
	EventType() string
}

// CompetitionState is the full snapshot sent to a connection after it joins.
type CompetitionState struct {
	Competition  domain.Competition       `json:"competition"`
	Participants []domain.ParticipantView `json:"participants"`
}

type CompetitionStarted struct {
	CompetitionID int64 `json:"competitionId"`
}

// QuestionAnnounced is broadcast as "next_question". A nil Question means the
// competition has no more questions.
type QuestionAnnounced struct {
	Question      *QuestionPayload `json:"question"`
	QuestionIndex int              `json:"questionIndex"`
}

type ParticipantJoined struct {
	Participant domain.ParticipantView `json:"participant"`
}

type ParticipantDisconnected struct {
	UserID int64 `json:"userId"`
}

// AnswerSubmitted announces that a submission happened. It never carries the
// answer content or its correctness.
type AnswerSubmitted struct {
	UserID       int64 `json:"userId"`
	QuestionID   int64 `json:"questionId"`
	TimeToAnswer int   `json:"timeToAnswer"`
}

// ErrorReply is sent to the requesting connection only.
type ErrorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (CompetitionState) EventType() string        { return TypeCompetitionState }
func (CompetitionStarted) EventType() string      { return TypeCompetitionStarted }
func (QuestionAnnounced) EventType() string       { return TypeNextQuestion }
func (ParticipantJoined) EventType() string       { return TypeParticipantJoined }
func (ParticipantDisconnected) EventType() string { return TypeParticipantDisconnected }
func (AnswerSubmitted) EventType() string         { return TypeAnswerSubmitted }
func (ErrorReply) EventType() string              { return TypeError }

// QuestionPayload is the client view of a question: no correct answer, no
// acceptable alternates.
type QuestionPayload struct {
	ID         int64    `json:"id"`
	Text       string   `json:"text"`
	Type       string   `json:"type"`
	Options    []string `json:"options,omitempty"`
	TimeLimit  int      `json:"timeLimit"`
	Category   string   `json:"category,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}

const defaultTimeLimit = 60

func NewQuestionPayload(q domain.Question) *QuestionPayload {
	timeLimit := q.TimeLimit
	if timeLimit <= 0 {
		timeLimit = defaultTimeLimit
	}
	return &QuestionPayload{
		ID:         q.ID,
		Text:       q.Text,
		Type:       lo.Ternary(q.Type == "", "text-input", q.Type),
		Options:    q.Options,
		TimeLimit:  timeLimit,
		Category:   q.Category,
		Difficulty: q.Difficulty,
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// Encode serializes evt into its wire envelope.
func Encode(evt Event) ([]byte, error) {
	return json.Marshal(outboundMessage[Event]{Type: evt.EventType(), Payload: evt})
}

const (
	CodeInvalidState     = "invalid_state"
	CodeNotJoinable      = "not_joinable"
	CodeCompetitionFull  = "competition_full"
	CodeStaleQuestion    = "stale_question"
	CodeDuplicateAnswer  = "duplicate_answer"
	CodeMalformedMessage = "malformed_message"
	CodeNotFound         = "not_found"
	CodeNotJoined        = "not_joined"
	CodeAlreadyJoined    = "already_joined"
	CodeInternal         = "internal"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrInvalidState, CodeInvalidState},
	{domain.ErrNotJoinable, CodeNotJoinable},
	{domain.ErrCompetitionFull, CodeCompetitionFull},
	{domain.ErrStaleQuestion, CodeStaleQuestion},
	{domain.ErrDuplicateAnswer, CodeDuplicateAnswer},
	{domain.ErrMalformedMessage, CodeMalformedMessage},
	{domain.ErrCompetitionNotFound, CodeNotFound},
	{domain.ErrQuestionNotFound, CodeNotFound},
	{domain.ErrParticipantNotFound, CodeNotFound},
	{domain.ErrUserNotFound, CodeNotFound},
	{domain.ErrNotJoined, CodeNotJoined},
	{domain.ErrAlreadyJoined, CodeAlreadyJoined},
}

// ErrorCode maps a domain error to its stable wire code.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// NewErrorReply builds the reply for err. Internal errors are not echoed.
func NewErrorReply(err error) ErrorReply {
	code := ErrorCode(err)
	if code == CodeInternal {
		return ErrorReply{Code: code, Message: "internal error"}
	}
	return ErrorReply{Code: code, Message: err.Error()}
}
