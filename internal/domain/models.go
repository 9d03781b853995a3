package domain

import (
	"time"

	"github.com/samber/lo"
)

// Status is the lifecycle stage of a live competition.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusFinished  Status = "finished"
)

// NoQuestion is the cursor value of a competition that has not started yet.
const NoQuestion = -1

// rank orders statuses so transitions can only move forward.
func (s Status) rank() int {
	switch s {
	case StatusScheduled:
		return 0
	case StatusLive:
		return 1
	case StatusFinished:
		return 2
	}
	return -1
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.rank() >= 0
}

// CanTransitionTo reports whether next is the single step after s
// (scheduled -> live -> finished).
func (s Status) CanTransitionTo(next Status) bool {
	return s.Valid() && next.Valid() && next.rank() == s.rank()+1
}

// Joinable reports whether participants may still join.
func (s Status) Joinable() bool {
	return s == StatusScheduled || s == StatusLive
}

// Competition is a scheduled live trivia event.
type Competition struct {
	ID                   int64     `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	ScheduledStart       time.Time `json:"scheduledStart"`
	Duration             int       `json:"duration"` // seconds
	Status               Status    `json:"status"`
	QuestionIDs          []int64   `json:"questionIds"`
	MaxParticipants      int       `json:"maxParticipants"`
	CurrentParticipants  int       `json:"currentParticipants"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	CreatedAt            time.Time `json:"createdAt"`
}

// QuestionAt returns the question id at index i of the play order.
func (c Competition) QuestionAt(i int) (int64, bool) {
	if i < 0 || i >= len(c.QuestionIDs) {
		return 0, false
	}
	return c.QuestionIDs[i], true
}

// CurrentQuestionID returns the question id under the cursor.
func (c Competition) CurrentQuestionID() (int64, bool) {
	return c.QuestionAt(c.CurrentQuestionIndex)
}

// HasQuestion reports whether questionID belongs to the play order.
func (c Competition) HasQuestion(questionID int64) bool {
	return lo.Contains(c.QuestionIDs, questionID)
}

// CompetitionUpdate is a partial update; nil fields are left untouched.
type CompetitionUpdate struct {
	Status               *Status
	CurrentQuestionIndex *int
}

// Empty reports whether the update changes nothing.
func (u CompetitionUpdate) Empty() bool {
	return u.Status == nil && u.CurrentQuestionIndex == nil
}

// Participant is a user's membership and running score within one competition.
type Participant struct {
	ID            int64     `json:"id"`
	CompetitionID int64     `json:"competitionId"`
	UserID        int64     `json:"userId"`
	Score         int       `json:"score"`
	IsConnected   bool      `json:"isConnected"`
	JoinedAt      time.Time `json:"joinedAt"`
}

// User is the public profile embedded in participant views.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// ParticipantView is a participant with its user profile embedded.
type ParticipantView struct {
	Participant
	User *User `json:"user,omitempty"`
}

// AnswerRecord is an append-only record of one submitted answer.
type AnswerRecord struct {
	ID             int64     `json:"id"`
	CompetitionID  int64     `json:"competitionId"`
	UserID         int64     `json:"userId"`
	QuestionID     int64     `json:"questionId"`
	SelectedAnswer string    `json:"selectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	TimeToAnswer   int       `json:"timeToAnswer"` // seconds
	AnsweredAt     time.Time `json:"answeredAt"`
}

// Question is read-only question content.
type Question struct {
	ID                int64    `json:"id"`
	Text              string   `json:"text"`
	CorrectAnswer     string   `json:"correctAnswer"`
	AcceptableAnswers []string `json:"acceptableAnswers"`
	TimeLimit         int      `json:"timeLimit"` // seconds, defaults to 60 if zero
	Type              string   `json:"type"`
	Options           []string `json:"options,omitempty"`
	Category          string   `json:"category"`
	Difficulty        string   `json:"difficulty"`
}

// Accepts reports whether answer is the correct answer or one of the
// acceptable alternates. Comparison is case-sensitive.
func (q Question) Accepts(answer string) bool {
	return answer == q.CorrectAnswer || lo.Contains(q.AcceptableAnswers, answer)
}
