package app_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"trivia-live-service/internal/app"
	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/infra/memory"
)

var connSeq atomic.Int64

// fakeConn records every frame it is sent.
type fakeConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool
	fail   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: fmt.Sprintf("conn-%d", connSeq.Add(1))}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("send buffer full")
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeConn) setClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) setFailing() {
	c.mu.Lock()
	c.fail = true
	c.mu.Unlock()
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *fakeConn) received(t *testing.T) []frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]frame, 0, len(c.frames))
	for _, raw := range c.frames {
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		out = append(out, f)
	}
	return out
}

func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, f := range c.received(t) {
		out = append(out, f.Type)
	}
	return out
}

func (c *fakeConn) count(t *testing.T, typ string) int {
	t.Helper()
	n := 0
	for _, got := range c.types(t) {
		if got == typ {
			n++
		}
	}
	return n
}

func (c *fakeConn) last(t *testing.T) frame {
	t.Helper()
	got := c.received(t)
	require.NotEmpty(t, got)
	return got[len(got)-1]
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store   *memory.Store
	tracker *memory.RoomTracker
	coord   *app.Coordinator
}

// newFixture seeds questions 101..103 and competition 1 playing them in order.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	for _, q := range []domain.Question{
		{ID: 101, Text: "The Phenomenon?", CorrectAnswer: "Ronaldo", AcceptableAnswers: []string{"Ronaldo", "R9"}, TimeLimit: 30},
		{ID: 102, Text: "Leicester title year?", CorrectAnswer: "2016", AcceptableAnswers: []string{"2016", "2015-16"}},
		{ID: 103, Text: "Athletic Bilbao stadium?", CorrectAnswer: "San Mamés", AcceptableAnswers: []string{"San Mames"}},
	} {
		store.PutQuestion(q)
	}
	for _, id := range []int64{7, 8, 9} {
		store.PutUser(domain.User{ID: id, Username: fmt.Sprintf("user%d", id), DisplayName: fmt.Sprintf("User %d", id)})
	}
	store.CreateCompetition(domain.Competition{ID: 1, Title: "Friday Night Football Quiz", QuestionIDs: []int64{101, 102, 103}, MaxParticipants: 50})

	tracker := memory.NewRoomTracker()
	coord := app.NewCoordinator(store, memory.NewQuestionRepository(store, 0), app.Options{
		Tracker: tracker,
		Logger:  discardLogger(),
	})
	return &fixture{store: store, tracker: tracker, coord: coord}
}
