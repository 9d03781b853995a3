package app

import (
	"context"
	"fmt"
	"log/slog"

	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/protocol"
)

// DefaultPointsPerCorrect is awarded for each correct live answer. There is no
// time bonus in live competitions.
const DefaultPointsPerCorrect = 100

// Submission is one participant's answer to the question at the cursor.
type Submission struct {
	CompetitionID  int64
	UserID         int64
	QuestionID     int64
	SelectedAnswer string
	TimeToAnswer   int // seconds
}

// Scorer validates and records at most one answer per participant per question.
type Scorer struct {
	store     CompetitionStore
	questions QuestionRepository
	dispatch  *Dispatcher
	locks     *roomLocks
	points    int
	log       *slog.Logger
}

// Submit scores sub and records it. The first recorded answer for a
// (competition, user, question) wins; later ones fail with
// domain.ErrDuplicateAnswer and leave the score untouched.
func (s *Scorer) Submit(ctx context.Context, sub Submission) (domain.AnswerRecord, error) {
	unlock := s.locks.lock(sub.CompetitionID)
	defer unlock()
	return s.submitLocked(ctx, sub)
}

func (s *Scorer) submitLocked(ctx context.Context, sub Submission) (domain.AnswerRecord, error) {
	if sub.TimeToAnswer < 0 {
		return domain.AnswerRecord{}, fmt.Errorf("negative time to answer: %w", domain.ErrMalformedMessage)
	}

	competition, err := s.store.GetCompetition(ctx, sub.CompetitionID)
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	if competition.Status != domain.StatusLive {
		return domain.AnswerRecord{}, fmt.Errorf("answer in competition %d (%s): %w", sub.CompetitionID, competition.Status, domain.ErrInvalidState)
	}
	if !competition.HasQuestion(sub.QuestionID) {
		return domain.AnswerRecord{}, fmt.Errorf("question %d is not part of competition %d: %w", sub.QuestionID, sub.CompetitionID, domain.ErrStaleQuestion)
	}
	if current, ok := competition.CurrentQuestionID(); !ok || current != sub.QuestionID {
		return domain.AnswerRecord{}, fmt.Errorf("question %d is not open: %w", sub.QuestionID, domain.ErrStaleQuestion)
	}
	if _, err := s.store.GetParticipant(ctx, sub.CompetitionID, sub.UserID); err != nil {
		return domain.AnswerRecord{}, err
	}

	question, err := s.questions.GetQuestion(ctx, sub.QuestionID)
	if err != nil {
		return domain.AnswerRecord{}, fmt.Errorf("load question %d: %w", sub.QuestionID, err)
	}

	record, err := s.store.RecordAnswer(ctx, domain.AnswerRecord{
		CompetitionID:  sub.CompetitionID,
		UserID:         sub.UserID,
		QuestionID:     sub.QuestionID,
		SelectedAnswer: sub.SelectedAnswer,
		IsCorrect:      question.Accepts(sub.SelectedAnswer),
		TimeToAnswer:   sub.TimeToAnswer,
	}, s.points)
	if err != nil {
		return domain.AnswerRecord{}, err
	}

	s.dispatch.Broadcast(sub.CompetitionID, protocol.AnswerSubmitted{
		UserID:       sub.UserID,
		QuestionID:   sub.QuestionID,
		TimeToAnswer: sub.TimeToAnswer,
	})
	return record, nil
}
