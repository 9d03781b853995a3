package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus_OnlyMovesForward(t *testing.T) {
	req := require.New(t)

	req.True(StatusScheduled.CanTransitionTo(StatusLive))
	req.True(StatusLive.CanTransitionTo(StatusFinished))

	req.False(StatusScheduled.CanTransitionTo(StatusFinished))
	req.False(StatusLive.CanTransitionTo(StatusScheduled))
	req.False(StatusFinished.CanTransitionTo(StatusLive))
	req.False(StatusLive.CanTransitionTo(StatusLive))
	req.False(Status("paused").CanTransitionTo(StatusLive))
}

func TestStatus_Joinable(t *testing.T) {
	req := require.New(t)
	req.True(StatusScheduled.Joinable())
	req.True(StatusLive.Joinable())
	req.False(StatusFinished.Joinable())
}

func TestQuestion_Accepts(t *testing.T) {
	req := require.New(t)
	q := Question{ID: 101, CorrectAnswer: "Ronaldo", AcceptableAnswers: []string{"Ronaldo", "R9"}}

	req.True(q.Accepts("Ronaldo"))
	req.True(q.Accepts("R9"))
	// Matching is case-sensitive.
	req.False(q.Accepts("ronaldo"))
	req.False(q.Accepts("Messi"))
	req.False(q.Accepts(""))
}

func TestCompetition_Cursor(t *testing.T) {
	req := require.New(t)
	c := Competition{QuestionIDs: []int64{101, 102, 103}, CurrentQuestionIndex: NoQuestion}

	_, ok := c.CurrentQuestionID()
	req.False(ok)

	c.CurrentQuestionIndex = 2
	id, ok := c.CurrentQuestionID()
	req.True(ok)
	req.Equal(int64(103), id)

	c.CurrentQuestionIndex = 3
	_, ok = c.CurrentQuestionID()
	req.False(ok)

	req.True(c.HasQuestion(102))
	req.False(c.HasQuestion(5))
}
