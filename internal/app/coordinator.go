package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/protocol"
)

// SessionState is the lifecycle of one connection's session.
type SessionState int

const (
	SessionConnecting SessionState = iota
	SessionJoined
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionConnecting:
		return "connecting"
	case SessionJoined:
		return "joined"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session binds a connection to at most one (competition, user) pair.
type Session struct {
	conn Conn

	mu            sync.Mutex
	state         SessionState
	competitionID int64 // room the conn is registered in, 0 if none
	userID        int64

	closeOnce sync.Once
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// binding returns the joined competition and user, or domain.ErrNotJoined.
func (s *Session) binding() (competitionID, userID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionJoined {
		return 0, 0, domain.ErrNotJoined
	}
	return s.competitionID, s.userID, nil
}

// Options tunes a Coordinator. Zero values fall back to defaults.
type Options struct {
	PointsPerCorrect int
	Tracker          RoomTracker
	Logger           *slog.Logger
}

// Coordinator routes decoded client messages to the state machine and the
// scorer, and owns the session lifecycle of every connection.
type Coordinator struct {
	store    CompetitionStore
	registry *Registry
	dispatch *Dispatcher
	machine  *StateMachine
	scorer   *Scorer
	tracker  RoomTracker
	locks    *roomLocks
	log      *slog.Logger
}

func NewCoordinator(store CompetitionStore, questions QuestionRepository, opts Options) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = noopTracker{}
	}
	points := opts.PointsPerCorrect
	if points <= 0 {
		points = DefaultPointsPerCorrect
	}

	registry := NewRegistry()
	dispatch := NewDispatcher(registry, log)
	locks := newRoomLocks()

	return &Coordinator{
		store:    store,
		registry: registry,
		dispatch: dispatch,
		machine: &StateMachine{
			store:     store,
			questions: questions,
			dispatch:  dispatch,
			locks:     locks,
			log:       log,
		},
		scorer: &Scorer{
			store:     store,
			questions: questions,
			dispatch:  dispatch,
			locks:     locks,
			points:    points,
			log:       log,
		},
		tracker: tracker,
		locks:   locks,
		log:     log,
	}
}

func (c *Coordinator) Registry() *Registry    { return c.registry }
func (c *Coordinator) Machine() *StateMachine { return c.machine }
func (c *Coordinator) Scorer() *Scorer        { return c.scorer }
func (c *Coordinator) Tracker() RoomTracker   { return c.tracker }

// Open starts a session for a freshly accepted connection.
func (c *Coordinator) Open(conn Conn) *Session {
	c.log.Debug("connection opened", slog.String("conn_id", conn.ID()))
	return &Session{conn: conn, state: SessionConnecting}
}

// Handle decodes one inbound frame and applies it. Failures are reported to
// the sender as an error event; the connection stays open.
func (c *Coordinator) Handle(ctx context.Context, s *Session, frame []byte) {
	msg, err := protocol.Decode(frame)
	switch {
	case errors.Is(err, protocol.ErrUnknownType):
		c.log.Debug("ignoring unknown message", slog.String("conn_id", s.conn.ID()), slog.Any("error", err))
		return
	case err != nil:
		c.log.Warn("malformed message", slog.String("conn_id", s.conn.ID()), slog.Any("error", err))
		c.reply(s, err)
		return
	}

	if s.State() == SessionClosed {
		return
	}

	switch m := msg.(type) {
	case protocol.JoinCompetition:
		err = c.join(ctx, s, m.CompetitionID, m.UserID)
	case protocol.StartCompetition:
		err = c.start(ctx, s)
	case protocol.NextQuestion:
		err = c.next(ctx, s)
	case protocol.SubmitAnswer:
		err = c.submit(ctx, s, m)
	}
	if err != nil {
		c.log.Info("request rejected",
			slog.String("conn_id", s.conn.ID()),
			slog.String("type", msg.Type()),
			slog.Any("error", err))
		c.reply(s, err)
	}
}

func (c *Coordinator) reply(s *Session, err error) {
	if sendErr := c.dispatch.Send(s.conn, protocol.NewErrorReply(err)); sendErr != nil {
		c.log.Warn("send error reply", slog.String("conn_id", s.conn.ID()), slog.Any("error", sendErr))
	}
}

// Join binds s to (competitionID, userID), registers its connection in the
// room and sends it the current snapshot. Joining the same pair again only
// refreshes the snapshot.
func (c *Coordinator) Join(ctx context.Context, s *Session, competitionID, userID int64) error {
	return c.join(ctx, s, competitionID, userID)
}

func (c *Coordinator) join(ctx context.Context, s *Session, competitionID, userID int64) error {
	s.mu.Lock()
	switch s.state {
	case SessionClosed:
		s.mu.Unlock()
		return nil
	case SessionJoined:
		if s.competitionID != competitionID || s.userID != userID {
			s.mu.Unlock()
			return fmt.Errorf("connection bound to competition %d as user %d: %w", s.competitionID, s.userID, domain.ErrAlreadyJoined)
		}
	}
	fresh := s.state == SessionConnecting
	s.mu.Unlock()

	unlock := c.locks.lock(competitionID)
	defer unlock()

	// Close may have won the race while we waited for the lock.
	s.mu.Lock()
	if s.state == SessionClosed {
		s.mu.Unlock()
		return nil
	}
	s.competitionID = competitionID
	s.mu.Unlock()

	if fresh {
		if c.registry.Register(competitionID, s.conn) {
			c.tracker.RoomOpened(ctx, competitionID)
		}
	}

	if _, _, err := c.machine.joinLocked(ctx, competitionID, userID); err != nil {
		if fresh {
			c.unbindLocked(ctx, s, competitionID)
		}
		return err
	}

	// A Close waiting on the lock still sees userID and announces the disconnect.
	s.mu.Lock()
	if s.state != SessionClosed {
		s.state = SessionJoined
	}
	s.userID = userID
	s.mu.Unlock()
	if fresh {
		c.registry.BindUser(competitionID, userID)
	}

	snapshot, err := c.snapshotLocked(ctx, competitionID)
	if err != nil {
		return err
	}
	if err := c.dispatch.Send(s.conn, snapshot); err != nil {
		c.log.Warn("send snapshot", slog.String("conn_id", s.conn.ID()), slog.Any("error", err))
	}
	return nil
}

func (c *Coordinator) unbindLocked(ctx context.Context, s *Session, competitionID int64) {
	if c.registry.Deregister(competitionID, s.conn) {
		c.tracker.RoomClosed(ctx, competitionID)
	}
	s.mu.Lock()
	s.competitionID = 0
	s.mu.Unlock()
}

func (c *Coordinator) start(ctx context.Context, s *Session) error {
	competitionID, _, err := s.binding()
	if err != nil {
		return err
	}
	_, err = c.machine.Start(ctx, competitionID)
	return err
}

func (c *Coordinator) next(ctx context.Context, s *Session) error {
	competitionID, _, err := s.binding()
	if err != nil {
		return err
	}
	_, err = c.machine.Advance(ctx, competitionID)
	return err
}

func (c *Coordinator) submit(ctx context.Context, s *Session, m protocol.SubmitAnswer) error {
	competitionID, userID, err := s.binding()
	if err != nil {
		return err
	}
	_, err = c.scorer.Submit(ctx, Submission{
		CompetitionID:  competitionID,
		UserID:         userID,
		QuestionID:     m.QuestionID,
		SelectedAnswer: m.SelectedAnswer,
		TimeToAnswer:   m.TimeToAnswer,
	})
	return err
}

// Close ends the session and deregisters its connection. When it was the
// user's last connection in the room, the participant is marked disconnected
// and the room is told, once per session however many times Close is called.
func (c *Coordinator) Close(ctx context.Context, s *Session) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = SessionClosed
		competitionID := s.competitionID
		s.mu.Unlock()

		c.log.Debug("connection closed", slog.String("conn_id", s.conn.ID()))
		if competitionID == 0 {
			return
		}

		unlock := c.locks.lock(competitionID)
		defer unlock()

		if c.registry.Deregister(competitionID, s.conn) {
			c.tracker.RoomClosed(ctx, competitionID)
		}

		s.mu.Lock()
		userID := s.userID
		s.mu.Unlock()
		if userID == 0 {
			return
		}
		if left := c.registry.UnbindUser(competitionID, userID); left > 0 {
			c.log.Debug("participant still connected elsewhere",
				slog.Int64("competition_id", competitionID),
				slog.Int64("user_id", userID),
				slog.Int("connections", left))
			return
		}

		if err := c.store.SetParticipantConnected(ctx, competitionID, userID, false); err != nil {
			c.log.Warn("mark participant disconnected",
				slog.Int64("competition_id", competitionID),
				slog.Int64("user_id", userID),
				slog.Any("error", err))
		}
		c.dispatch.Broadcast(competitionID, protocol.ParticipantDisconnected{UserID: userID})
		c.log.Info("participant disconnected",
			slog.Int64("competition_id", competitionID),
			slog.Int64("user_id", userID))
	})
}

// RefreshRooms re-announces every room that still has connections on this
// instance to the tracker.
func (c *Coordinator) RefreshRooms(ctx context.Context) {
	for _, id := range c.registry.RoomIDs() {
		unlock := c.locks.lock(id)
		if len(c.registry.BroadcastTargets(id)) > 0 {
			c.tracker.RoomOpened(ctx, id)
		}
		unlock()
	}
}

// Snapshot returns the competition together with its participants.
func (c *Coordinator) Snapshot(ctx context.Context, competitionID int64) (protocol.CompetitionState, error) {
	unlock := c.locks.lock(competitionID)
	defer unlock()
	return c.snapshotLocked(ctx, competitionID)
}

func (c *Coordinator) snapshotLocked(ctx context.Context, competitionID int64) (protocol.CompetitionState, error) {
	competition, err := c.store.GetCompetition(ctx, competitionID)
	if err != nil {
		return protocol.CompetitionState{}, err
	}
	participants, err := c.store.GetParticipants(ctx, competitionID)
	if err != nil {
		return protocol.CompetitionState{}, fmt.Errorf("load participants: %w", err)
	}
	if participants == nil {
		participants = []domain.ParticipantView{}
	}
	return protocol.CompetitionState{Competition: competition, Participants: participants}, nil
}

type noopTracker struct{}

func (noopTracker) RoomOpened(context.Context, int64)            {}
func (noopTracker) RoomClosed(context.Context, int64)            {}
func (noopTracker) ActiveRooms(context.Context) ([]int64, error) { return nil, nil }
