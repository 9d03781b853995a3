package app_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/protocol"
)

func TestStartOpensFirstQuestion(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	conn := newFakeConn()
	f.coord.Registry().Register(1, conn)

	adv, err := f.coord.Machine().Start(ctx, 1)
	req.NoError(err)
	req.Equal(domain.StatusLive, adv.Competition.Status)
	req.Equal(0, adv.Index)
	req.NotNil(adv.Question)
	req.EqualValues(101, adv.Question.ID)

	req.Equal([]string{protocol.TypeCompetitionStarted, protocol.TypeNextQuestion}, conn.types(t))

	var payload struct {
		Question      map[string]any `json:"question"`
		QuestionIndex int            `json:"questionIndex"`
	}
	req.NoError(json.Unmarshal(conn.last(t).Payload, &payload))
	req.Equal(0, payload.QuestionIndex)
	req.NotContains(payload.Question, "correctAnswer")
	req.NotContains(payload.Question, "acceptableAnswers")

	_, err = f.coord.Machine().Start(ctx, 1)
	req.ErrorIs(err, domain.ErrInvalidState)
}

func TestAdvanceRunsToFinished(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	m := f.coord.Machine()
	conn := newFakeConn()
	f.coord.Registry().Register(1, conn)

	_, err := m.Advance(ctx, 1)
	req.ErrorIs(err, domain.ErrInvalidState, "advance before start")

	_, err = m.Start(ctx, 1)
	req.NoError(err)

	for i, want := range []int64{102, 103} {
		adv, err := m.Advance(ctx, 1)
		req.NoError(err)
		req.Equal(i+1, adv.Index)
		req.EqualValues(want, adv.Question.ID)
		req.Equal(domain.StatusLive, adv.Competition.Status)
	}

	adv, err := m.Advance(ctx, 1)
	req.NoError(err)
	req.Nil(adv.Question)
	req.Equal(3, adv.Index)
	req.Equal(domain.StatusFinished, adv.Competition.Status)
	req.JSONEq(`{"type":"next_question","payload":{"question":null,"questionIndex":3}}`, string(conn.frames[len(conn.frames)-1]))

	_, err = m.Advance(ctx, 1)
	req.ErrorIs(err, domain.ErrInvalidState)

	c, err := f.store.GetCompetition(ctx, 1)
	req.NoError(err)
	req.Equal(3, c.CurrentQuestionIndex)
	req.LessOrEqual(c.CurrentQuestionIndex, len(c.QuestionIDs))
}

func TestStartWithoutQuestionsFinishes(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.store.CreateCompetition(domain.Competition{ID: 2, Title: "Empty"})

	adv, err := f.coord.Machine().Start(ctx, 2)
	req.NoError(err)
	req.Nil(adv.Question)
	req.Equal(domain.StatusFinished, adv.Competition.Status)
	req.Equal(0, adv.Competition.CurrentQuestionIndex)
}

func TestAdvanceMissingQuestionLeavesCursor(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.store.CreateCompetition(domain.Competition{ID: 3, QuestionIDs: []int64{101, 404}})
	m := f.coord.Machine()

	_, err := m.Start(ctx, 3)
	req.NoError(err)
	_, err = m.Advance(ctx, 3)
	req.ErrorIs(err, domain.ErrQuestionNotFound)

	c, err := f.store.GetCompetition(ctx, 3)
	req.NoError(err)
	req.Equal(0, c.CurrentQuestionIndex)
	req.Equal(domain.StatusLive, c.Status)
}

func TestJoinIsIdempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	m := f.coord.Machine()

	v1, created, err := m.Join(ctx, 1, 7)
	req.NoError(err)
	req.True(created)
	req.NotNil(v1.User)
	req.Equal("user7", v1.User.Username)

	v2, created, err := m.Join(ctx, 1, 7)
	req.NoError(err)
	req.False(created)
	req.Equal(v1.ID, v2.ID)

	c, err := f.store.GetCompetition(ctx, 1)
	req.NoError(err)
	req.Equal(1, c.CurrentParticipants)
}

func TestJoinRejections(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	m := f.coord.Machine()

	f.store.CreateCompetition(domain.Competition{ID: 4, QuestionIDs: []int64{101}, MaxParticipants: 1})
	_, _, err := m.Join(ctx, 4, 7)
	req.NoError(err)
	_, _, err = m.Join(ctx, 4, 8)
	req.ErrorIs(err, domain.ErrCompetitionFull)
	_, _, err = m.Join(ctx, 4, 7)
	req.NoError(err, "re-join is allowed when full")

	f.store.CreateCompetition(domain.Competition{ID: 5, Status: domain.StatusFinished})
	_, _, err = m.Join(ctx, 5, 7)
	req.ErrorIs(err, domain.ErrNotJoinable)

	_, _, err = m.Join(ctx, 999, 7)
	req.ErrorIs(err, domain.ErrCompetitionNotFound)

	_, _, err = m.Join(ctx, 1, 42)
	req.ErrorIs(err, domain.ErrUserNotFound)
	c, err := f.store.GetCompetition(ctx, 1)
	req.NoError(err)
	req.Zero(c.CurrentParticipants)
}

func TestJoinLiveCompetition(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.coord.Machine().Start(ctx, 1)
	req.NoError(err)
	_, created, err := f.coord.Machine().Join(ctx, 1, 8)
	req.NoError(err)
	req.True(created)
}
