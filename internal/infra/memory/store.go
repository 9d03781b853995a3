package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trivia-live-service/internal/domain"
)

// Store is an in-memory app.CompetitionStore. It also serves question content
// as a QuestionLoader, so a single Store backs a whole demo server.
type Store struct {
	now func() time.Time

	mu           sync.RWMutex
	competitions map[int64]domain.Competition
	participants map[participantKey]domain.Participant
	answers      map[answerKey]domain.AnswerRecord
	users        map[int64]domain.User
	questions    map[int64]domain.Question

	lastCompetitionID int64
	lastParticipantID int64
	lastAnswerID      int64
	lastUserID        int64
	lastQuestionID    int64
}

type participantKey struct {
	competitionID int64
	userID        int64
}

type answerKey struct {
	competitionID int64
	userID        int64
	questionID    int64
}

func NewStore() *Store {
	return &Store{
		now:          time.Now,
		competitions: make(map[int64]domain.Competition),
		participants: make(map[participantKey]domain.Participant),
		answers:      make(map[answerKey]domain.AnswerRecord),
		users:        make(map[int64]domain.User),
		questions:    make(map[int64]domain.Question),
	}
}

// CreateCompetition stores c. A zero ID is assigned by the store; a non-zero
// one is kept. New competitions start scheduled with no open question.
func (s *Store) CreateCompetition(c domain.Competition) domain.Competition {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = assignID(&s.lastCompetitionID, c.ID)
	if c.Status == "" {
		c.Status = domain.StatusScheduled
	}
	if c.Status == domain.StatusScheduled {
		c.CurrentQuestionIndex = domain.NoQuestion
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	c.QuestionIDs = append([]int64(nil), c.QuestionIDs...)
	s.competitions[c.ID] = c
	return cloneCompetition(c)
}

func (s *Store) PutUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = assignID(&s.lastUserID, u.ID)
	s.users[u.ID] = u
	return u
}

func (s *Store) PutQuestion(q domain.Question) domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = assignID(&s.lastQuestionID, q.ID)
	s.questions[q.ID] = q
	return q
}

func assignID(last *int64, id int64) int64 {
	if id == 0 {
		*last++
		return *last
	}
	if id > *last {
		*last = id
	}
	return id
}

func (s *Store) GetCompetition(_ context.Context, id int64) (domain.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.competitions[id]
	if !ok {
		return domain.Competition{}, domain.ErrCompetitionNotFound
	}
	return cloneCompetition(c), nil
}

func (s *Store) ListCompetitions(_ context.Context, status domain.Status) ([]domain.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Competition, 0, len(s.competitions))
	for _, c := range s.competitions {
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, cloneCompetition(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateCompetition(_ context.Context, id int64, update domain.CompetitionUpdate) (domain.Competition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.competitions[id]
	if !ok {
		return domain.Competition{}, domain.ErrCompetitionNotFound
	}
	if update.Status != nil {
		c.Status = *update.Status
	}
	if update.CurrentQuestionIndex != nil {
		c.CurrentQuestionIndex = *update.CurrentQuestionIndex
	}
	s.competitions[id] = c
	return cloneCompetition(c), nil
}

func (s *Store) GetParticipant(_ context.Context, competitionID, userID int64) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[participantKey{competitionID, userID}]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (s *Store) JoinCompetition(_ context.Context, competitionID, userID int64) (domain.Participant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.competitions[competitionID]
	if !ok {
		return domain.Participant{}, false, domain.ErrCompetitionNotFound
	}
	key := participantKey{competitionID, userID}
	if p, ok := s.participants[key]; ok {
		return p, false, nil
	}
	if _, ok := s.users[userID]; !ok {
		return domain.Participant{}, false, domain.ErrUserNotFound
	}

	s.lastParticipantID++
	p := domain.Participant{
		ID:            s.lastParticipantID,
		CompetitionID: competitionID,
		UserID:        userID,
		IsConnected:   true,
		JoinedAt:      s.now(),
	}
	s.participants[key] = p
	c.CurrentParticipants++
	s.competitions[competitionID] = c
	return p, true, nil
}

func (s *Store) GetParticipants(_ context.Context, competitionID int64) ([]domain.ParticipantView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ParticipantView, 0)
	for key, p := range s.participants {
		if key.competitionID != competitionID {
			continue
		}
		view := domain.ParticipantView{Participant: p}
		if u, ok := s.users[p.UserID]; ok {
			view.User = &u
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetParticipantConnected(_ context.Context, competitionID, userID int64, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey{competitionID, userID}
	p, ok := s.participants[key]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.IsConnected = connected
	s.participants[key] = p
	return nil
}

// RecordAnswer stores record and credits points for a correct one under a
// single lock hold.
func (s *Store) RecordAnswer(_ context.Context, record domain.AnswerRecord, points int) (domain.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := answerKey{record.CompetitionID, record.UserID, record.QuestionID}
	if _, ok := s.answers[key]; ok {
		return domain.AnswerRecord{}, domain.ErrDuplicateAnswer
	}
	pkey := participantKey{record.CompetitionID, record.UserID}
	p, joined := s.participants[pkey]
	if record.IsCorrect && !joined {
		return domain.AnswerRecord{}, domain.ErrParticipantNotFound
	}

	if record.IsCorrect {
		p.Score += points
		s.participants[pkey] = p
	}
	s.lastAnswerID++
	record.ID = s.lastAnswerID
	if record.AnsweredAt.IsZero() {
		record.AnsweredAt = s.now()
	}
	s.answers[key] = record
	return record, nil
}

// Answers returns the recorded answers of a competition ordered by id.
func (s *Store) Answers(competitionID int64) []domain.AnswerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AnswerRecord
	for key, a := range s.answers {
		if key.competitionID == competitionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) GetUser(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

// LoadQuestion makes Store a QuestionLoader.
func (s *Store) LoadQuestion(_ context.Context, id int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func cloneCompetition(c domain.Competition) domain.Competition {
	c.QuestionIDs = append([]int64(nil), c.QuestionIDs...)
	return c
}
