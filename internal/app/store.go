package app

import (
	"context"

	"trivia-live-service/internal/domain"
)

// CompetitionStore abstracts how competitions, participants and answers are
// persisted (in-memory, Postgres). Ids are assigned by the store.
type CompetitionStore interface {
	GetCompetition(ctx context.Context, id int64) (domain.Competition, error)
	UpdateCompetition(ctx context.Context, id int64, update domain.CompetitionUpdate) (domain.Competition, error)

	// GetParticipant returns domain.ErrParticipantNotFound when the user never joined.
	GetParticipant(ctx context.Context, competitionID, userID int64) (domain.Participant, error)
	// JoinCompetition creates the participant for (competitionID, userID) or
	// returns the existing one. created is true only on first creation, which
	// is also the only case that increments the competition's participant count.
	JoinCompetition(ctx context.Context, competitionID, userID int64) (p domain.Participant, created bool, err error)
	GetParticipants(ctx context.Context, competitionID int64) ([]domain.ParticipantView, error)
	SetParticipantConnected(ctx context.Context, competitionID, userID int64, connected bool) error

	// RecordAnswer stores the answer and, when it is correct, adds points to the
	// participant's score. Both writes land together or not at all. It returns
	// domain.ErrDuplicateAnswer if an answer already exists for the same
	// (competition, user, question).
	RecordAnswer(ctx context.Context, record domain.AnswerRecord, points int) (domain.AnswerRecord, error)

	GetUser(ctx context.Context, id int64) (domain.User, error)
}

// CompetitionLister backs the read-only listing routes.
type CompetitionLister interface {
	ListCompetitions(ctx context.Context, status domain.Status) ([]domain.Competition, error)
}

// QuestionRepository loads question content (from cache/backing store).
type QuestionRepository interface {
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
}

// RoomTracker is told when a competition room gains its first connection and
// when it loses its last one. RoomOpened is also repeated for rooms that stay
// open, so implementations with expiring entries can refresh them.
type RoomTracker interface {
	RoomOpened(ctx context.Context, competitionID int64)
	RoomClosed(ctx context.Context, competitionID int64)
	ActiveRooms(ctx context.Context) ([]int64, error)
}
