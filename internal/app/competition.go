package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/protocol"
)

// StateMachine owns competition status and the question cursor. Every
// exported method holds the competition's lock for its whole duration, so
// transitions and their broadcasts for one competition never interleave.
type StateMachine struct {
	store     CompetitionStore
	questions QuestionRepository
	dispatch  *Dispatcher
	locks     *roomLocks
	log       *slog.Logger
}

// Advance is the outcome of moving the cursor. Question is nil once the cursor
// has run past the last question.
type Advance struct {
	Competition domain.Competition
	Question    *domain.Question
	Index       int
}

// Start moves a scheduled competition to live and opens its first question.
func (m *StateMachine) Start(ctx context.Context, competitionID int64) (Advance, error) {
	unlock := m.locks.lock(competitionID)
	defer unlock()
	return m.startLocked(ctx, competitionID)
}

// Advance moves the cursor of a live competition to the next question.
// Stepping past the last question finishes the competition.
func (m *StateMachine) Advance(ctx context.Context, competitionID int64) (Advance, error) {
	unlock := m.locks.lock(competitionID)
	defer unlock()
	return m.advanceLocked(ctx, competitionID)
}

// Join adds userID to the competition, or returns the existing participant.
func (m *StateMachine) Join(ctx context.Context, competitionID, userID int64) (domain.ParticipantView, bool, error) {
	unlock := m.locks.lock(competitionID)
	defer unlock()
	return m.joinLocked(ctx, competitionID, userID)
}

func (m *StateMachine) startLocked(ctx context.Context, competitionID int64) (Advance, error) {
	competition, err := m.store.GetCompetition(ctx, competitionID)
	if err != nil {
		return Advance{}, err
	}
	if !competition.Status.CanTransitionTo(domain.StatusLive) {
		return Advance{}, fmt.Errorf("start competition %d (%s): %w", competitionID, competition.Status, domain.ErrInvalidState)
	}

	live := domain.StatusLive
	adv, err := m.moveCursorLocked(ctx, competition, 0, domain.CompetitionUpdate{Status: &live})
	if err != nil {
		return Advance{}, err
	}

	m.dispatch.Broadcast(competitionID, protocol.CompetitionStarted{CompetitionID: competitionID})
	m.announce(adv)
	m.log.Info("competition started", slog.Int64("competition_id", competitionID))
	return adv, nil
}

func (m *StateMachine) advanceLocked(ctx context.Context, competitionID int64) (Advance, error) {
	competition, err := m.store.GetCompetition(ctx, competitionID)
	if err != nil {
		return Advance{}, err
	}
	if competition.Status != domain.StatusLive {
		return Advance{}, fmt.Errorf("advance competition %d (%s): %w", competitionID, competition.Status, domain.ErrInvalidState)
	}

	adv, err := m.moveCursorLocked(ctx, competition, competition.CurrentQuestionIndex+1, domain.CompetitionUpdate{})
	if err != nil {
		return Advance{}, err
	}
	m.announce(adv)
	if adv.Question == nil {
		m.log.Info("competition finished",
			slog.Int64("competition_id", competitionID),
			slog.Int("question_index", adv.Index))
	}
	return adv, nil
}

// moveCursorLocked resolves the question at index before persisting anything,
// so a failed lookup leaves the competition untouched. An index past the end
// finishes the competition.
func (m *StateMachine) moveCursorLocked(ctx context.Context, competition domain.Competition, index int, update domain.CompetitionUpdate) (Advance, error) {
	update.CurrentQuestionIndex = &index

	var question *domain.Question
	if questionID, ok := competition.QuestionAt(index); ok {
		q, err := m.questions.GetQuestion(ctx, questionID)
		if err != nil {
			return Advance{}, fmt.Errorf("load question %d: %w", questionID, err)
		}
		question = &q
	} else {
		finished := domain.StatusFinished
		update.Status = &finished
	}

	updated, err := m.store.UpdateCompetition(ctx, competition.ID, update)
	if err != nil {
		return Advance{}, fmt.Errorf("update competition %d: %w", competition.ID, err)
	}
	return Advance{Competition: updated, Question: question, Index: index}, nil
}

func (m *StateMachine) announce(adv Advance) {
	evt := protocol.QuestionAnnounced{QuestionIndex: adv.Index}
	if adv.Question != nil {
		evt.Question = protocol.NewQuestionPayload(*adv.Question)
	}
	m.dispatch.Broadcast(adv.Competition.ID, evt)
}

func (m *StateMachine) joinLocked(ctx context.Context, competitionID, userID int64) (domain.ParticipantView, bool, error) {
	competition, err := m.store.GetCompetition(ctx, competitionID)
	if err != nil {
		return domain.ParticipantView{}, false, err
	}
	if !competition.Status.Joinable() {
		return domain.ParticipantView{}, false, fmt.Errorf("join competition %d (%s): %w", competitionID, competition.Status, domain.ErrNotJoinable)
	}

	_, err = m.store.GetParticipant(ctx, competitionID, userID)
	switch {
	case err == nil:
		// Re-join keeps the existing participant and score.
	case errors.Is(err, domain.ErrParticipantNotFound):
		if competition.MaxParticipants > 0 && competition.CurrentParticipants >= competition.MaxParticipants {
			return domain.ParticipantView{}, false, fmt.Errorf("join competition %d: %w", competitionID, domain.ErrCompetitionFull)
		}
	default:
		return domain.ParticipantView{}, false, err
	}

	participant, created, err := m.store.JoinCompetition(ctx, competitionID, userID)
	if err != nil {
		return domain.ParticipantView{}, false, fmt.Errorf("join competition %d: %w", competitionID, err)
	}
	if !participant.IsConnected {
		if err := m.store.SetParticipantConnected(ctx, competitionID, userID, true); err != nil {
			return domain.ParticipantView{}, false, fmt.Errorf("mark participant connected: %w", err)
		}
		participant.IsConnected = true
	}

	view := m.participantView(ctx, participant)
	m.dispatch.Broadcast(competitionID, protocol.ParticipantJoined{Participant: view})
	m.log.Info("participant joined",
		slog.Int64("competition_id", competitionID),
		slog.Int64("user_id", userID),
		slog.Bool("created", created))
	return view, created, nil
}

func (m *StateMachine) participantView(ctx context.Context, p domain.Participant) domain.ParticipantView {
	view := domain.ParticipantView{Participant: p}
	user, err := m.store.GetUser(ctx, p.UserID)
	switch {
	case err == nil:
		view.User = &user
	case !errors.Is(err, domain.ErrUserNotFound):
		m.log.Warn("load participant user", slog.Int64("user_id", p.UserID), slog.Any("error", err))
	}
	return view
}
