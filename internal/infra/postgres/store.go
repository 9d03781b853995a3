package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"trivia-live-service/internal/domain"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Store is the Postgres-backed app.CompetitionStore.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn with the pgdriver connector.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func pgCode(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	m := userModel{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
	if _, err := s.db.NewInsert().Model(&m).Returning("*").Exec(ctx); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return m.toDomain(), nil
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	m := questionModel{
		ID:                q.ID,
		Text:              q.Text,
		CorrectAnswer:     q.CorrectAnswer,
		AcceptableAnswers: q.AcceptableAnswers,
		TimeLimit:         q.TimeLimit,
		Type:              q.Type,
		Options:           q.Options,
		Category:          q.Category,
		Difficulty:        q.Difficulty,
	}
	if m.TimeLimit == 0 {
		m.TimeLimit = 60
	}
	if m.Type == "" {
		m.Type = "text-input"
	}
	if _, err := s.db.NewInsert().Model(&m).Returning("*").Exec(ctx); err != nil {
		return domain.Question{}, fmt.Errorf("insert question: %w", err)
	}
	return m.toDomain(), nil
}

// CreateCompetition inserts a scheduled competition with no open question.
func (s *Store) CreateCompetition(ctx context.Context, c domain.Competition) (domain.Competition, error) {
	m := competitionModel{
		ID:                   c.ID,
		Title:                c.Title,
		Description:          c.Description,
		ScheduledStart:       c.ScheduledStart,
		Duration:             c.Duration,
		Status:               string(domain.StatusScheduled),
		QuestionIDs:          c.QuestionIDs,
		MaxParticipants:      c.MaxParticipants,
		CurrentQuestionIndex: domain.NoQuestion,
	}
	if m.QuestionIDs == nil {
		m.QuestionIDs = []int64{}
	}
	if _, err := s.db.NewInsert().Model(&m).Returning("*").Exec(ctx); err != nil {
		return domain.Competition{}, fmt.Errorf("insert competition: %w", err)
	}
	return m.toDomain(), nil
}

func (s *Store) GetCompetition(ctx context.Context, id int64) (domain.Competition, error) {
	var m competitionModel
	err := s.db.NewSelect().Model(&m).Where("lc.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Competition{}, domain.ErrCompetitionNotFound
	}
	if err != nil {
		return domain.Competition{}, fmt.Errorf("select competition: %w", err)
	}
	return m.toDomain(), nil
}

func (s *Store) ListCompetitions(ctx context.Context, status domain.Status) ([]domain.Competition, error) {
	var ms []competitionModel
	q := s.db.NewSelect().Model(&ms).Order("lc.id ASC")
	if status != "" {
		q = q.Where("lc.status = ?", string(status))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}
	out := make([]domain.Competition, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (s *Store) UpdateCompetition(ctx context.Context, id int64, update domain.CompetitionUpdate) (domain.Competition, error) {
	if update.Empty() {
		return s.GetCompetition(ctx, id)
	}

	var m competitionModel
	q := s.db.NewUpdate().Model(&m).Where("id = ?", id).Returning("*")
	if update.Status != nil {
		q = q.Set("status = ?", string(*update.Status))
	}
	if update.CurrentQuestionIndex != nil {
		q = q.Set("current_question_index = ?", *update.CurrentQuestionIndex)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return domain.Competition{}, fmt.Errorf("update competition: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Competition{}, domain.ErrCompetitionNotFound
	}
	return m.toDomain(), nil
}

func (s *Store) GetParticipant(ctx context.Context, competitionID, userID int64) (domain.Participant, error) {
	var m participantModel
	err := s.db.NewSelect().Model(&m).
		Where("p.competition_id = ?", competitionID).
		Where("p.user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("select participant: %w", err)
	}
	return m.toDomain(), nil
}

// JoinCompetition inserts the participant once. The (competition_id, user_id)
// unique index makes concurrent joins from several instances converge on one
// row, and only the inserting call bumps current_participants.
func (s *Store) JoinCompetition(ctx context.Context, competitionID, userID int64) (domain.Participant, bool, error) {
	var (
		out     domain.Participant
		created bool
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var c competitionModel
		err := tx.NewSelect().Model(&c).Column("id").Where("lc.id = ?", competitionID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrCompetitionNotFound
		}
		if err != nil {
			return err
		}

		m := participantModel{CompetitionID: competitionID, UserID: userID, IsConnected: true}
		res, err := tx.NewInsert().Model(&m).
			On("CONFLICT (competition_id, user_id) DO NOTHING").
			Returning("*").
			Exec(ctx)
		if err != nil {
			if pgCode(err) == foreignKeyViolation {
				return domain.ErrUserNotFound
			}
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var existing participantModel
			if err := tx.NewSelect().Model(&existing).
				Where("p.competition_id = ?", competitionID).
				Where("p.user_id = ?", userID).
				Scan(ctx); err != nil {
				return err
			}
			out = existing.toDomain()
			return nil
		}

		if _, err := tx.NewUpdate().Model((*competitionModel)(nil)).
			Set("current_participants = current_participants + 1").
			Where("id = ?", competitionID).
			Exec(ctx); err != nil {
			return err
		}
		out, created = m.toDomain(), true
		return nil
	})
	if err != nil {
		return domain.Participant{}, false, fmt.Errorf("join competition: %w", err)
	}
	return out, created, nil
}

func (s *Store) GetParticipants(ctx context.Context, competitionID int64) ([]domain.ParticipantView, error) {
	var ms []participantModel
	err := s.db.NewSelect().Model(&ms).
		Relation("User").
		Where("p.competition_id = ?", competitionID).
		Order("p.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}
	out := make([]domain.ParticipantView, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toView())
	}
	return out, nil
}

func (s *Store) SetParticipantConnected(ctx context.Context, competitionID, userID int64, connected bool) error {
	res, err := s.db.NewUpdate().Model((*participantModel)(nil)).
		Set("is_connected = ?", connected).
		Where("competition_id = ?", competitionID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update participant connection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

// RecordAnswer inserts the answer and credits points for a correct one in a
// single transaction, so a failed score update also drops the answer row.
func (s *Store) RecordAnswer(ctx context.Context, record domain.AnswerRecord, points int) (domain.AnswerRecord, error) {
	m := answerModel{
		CompetitionID:  record.CompetitionID,
		UserID:         record.UserID,
		QuestionID:     record.QuestionID,
		SelectedAnswer: record.SelectedAnswer,
		IsCorrect:      record.IsCorrect,
		TimeToAnswer:   record.TimeToAnswer,
		AnsweredAt:     record.AnsweredAt,
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&m).Returning("*").Exec(ctx); err != nil {
			if pgCode(err) == uniqueViolation {
				return domain.ErrDuplicateAnswer
			}
			return fmt.Errorf("insert answer: %w", err)
		}
		if !m.IsCorrect {
			return nil
		}

		res, err := tx.NewUpdate().Model((*participantModel)(nil)).
			Set("score = score + ?", points).
			Where("competition_id = ?", record.CompetitionID).
			Where("user_id = ?", record.UserID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update participant score: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrParticipantNotFound
		}
		return nil
	})
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	return m.toDomain(), nil
}

// Answers returns the recorded answers of a competition, optionally for a
// single question.
func (s *Store) Answers(ctx context.Context, competitionID int64, questionIDs ...int64) ([]domain.AnswerRecord, error) {
	var ms []answerModel
	q := s.db.NewSelect().Model(&ms).Where("a.competition_id = ?", competitionID).Order("a.id ASC")
	if len(questionIDs) > 0 {
		q = q.Where("a.question_id IN (?)", bun.In(questionIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select answers: %w", err)
	}
	out := make([]domain.AnswerRecord, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var m userModel
	err := s.db.NewSelect().Model(&m).Where("u.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return m.toDomain(), nil
}
