package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"trivia-live-service/internal/domain"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Username    string `bun:"username,notnull,unique"`
	DisplayName string `bun:"display_name"`
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID                int64    `bun:"id,pk,autoincrement"`
	Text              string   `bun:"text,notnull"`
	CorrectAnswer     string   `bun:"correct_answer,notnull"`
	AcceptableAnswers []string `bun:"acceptable_answers,array"`
	TimeLimit         int      `bun:"time_limit,notnull"`
	Type              string   `bun:"type,notnull"`
	Options           []string `bun:"options,array"`
	Category          string   `bun:"category"`
	Difficulty        string   `bun:"difficulty"`
}

type competitionModel struct {
	bun.BaseModel `bun:"table:live_competitions,alias:lc"`

	ID                   int64     `bun:"id,pk,autoincrement"`
	Title                string    `bun:"title,notnull"`
	Description          string    `bun:"description"`
	ScheduledStart       time.Time `bun:"scheduled_start,notnull"`
	Duration             int       `bun:"duration,notnull"`
	Status               string    `bun:"status,notnull"`
	QuestionIDs          []int64   `bun:"question_ids,array"`
	MaxParticipants      int       `bun:"max_participants,notnull"`
	CurrentParticipants  int       `bun:"current_participants,notnull"`
	CurrentQuestionIndex int       `bun:"current_question_index,notnull"`
	CreatedAt            time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type participantModel struct {
	bun.BaseModel `bun:"table:live_competition_participants,alias:p"`

	ID            int64      `bun:"id,pk,autoincrement"`
	CompetitionID int64      `bun:"competition_id,notnull"`
	UserID        int64      `bun:"user_id,notnull"`
	Score         int        `bun:"score,notnull"`
	IsConnected   bool       `bun:"is_connected,notnull"`
	JoinedAt      time.Time  `bun:"joined_at,nullzero,notnull,default:current_timestamp"`
	User          *userModel `bun:"rel:belongs-to,join:user_id=id"`
}

type answerModel struct {
	bun.BaseModel `bun:"table:live_competition_answers,alias:a"`

	ID             int64     `bun:"id,pk,autoincrement"`
	CompetitionID  int64     `bun:"competition_id,notnull"`
	UserID         int64     `bun:"user_id,notnull"`
	QuestionID     int64     `bun:"question_id,notnull"`
	SelectedAnswer string    `bun:"selected_answer,notnull"`
	IsCorrect      bool      `bun:"is_correct,notnull"`
	TimeToAnswer   int       `bun:"time_to_answer,notnull"`
	AnsweredAt     time.Time `bun:"answered_at,nullzero,notnull,default:current_timestamp"`
}

func (m userModel) toDomain() domain.User {
	return domain.User{ID: m.ID, Username: m.Username, DisplayName: m.DisplayName}
}

func (m questionModel) toDomain() domain.Question {
	return domain.Question{
		ID:                m.ID,
		Text:              m.Text,
		CorrectAnswer:     m.CorrectAnswer,
		AcceptableAnswers: m.AcceptableAnswers,
		TimeLimit:         m.TimeLimit,
		Type:              m.Type,
		Options:           m.Options,
		Category:          m.Category,
		Difficulty:        m.Difficulty,
	}
}

func (m competitionModel) toDomain() domain.Competition {
	return domain.Competition{
		ID:                   m.ID,
		Title:                m.Title,
		Description:          m.Description,
		ScheduledStart:       m.ScheduledStart,
		Duration:             m.Duration,
		Status:               domain.Status(m.Status),
		QuestionIDs:          m.QuestionIDs,
		MaxParticipants:      m.MaxParticipants,
		CurrentParticipants:  m.CurrentParticipants,
		CurrentQuestionIndex: m.CurrentQuestionIndex,
		CreatedAt:            m.CreatedAt,
	}
}

func (m participantModel) toDomain() domain.Participant {
	return domain.Participant{
		ID:            m.ID,
		CompetitionID: m.CompetitionID,
		UserID:        m.UserID,
		Score:         m.Score,
		IsConnected:   m.IsConnected,
		JoinedAt:      m.JoinedAt,
	}
}

func (m participantModel) toView() domain.ParticipantView {
	view := domain.ParticipantView{Participant: m.toDomain()}
	if m.User != nil && m.User.ID != 0 {
		u := m.User.toDomain()
		view.User = &u
	}
	return view
}

func (m answerModel) toDomain() domain.AnswerRecord {
	return domain.AnswerRecord{
		ID:             m.ID,
		CompetitionID:  m.CompetitionID,
		UserID:         m.UserID,
		QuestionID:     m.QuestionID,
		SelectedAnswer: m.SelectedAnswer,
		IsCorrect:      m.IsCorrect,
		TimeToAnswer:   m.TimeToAnswer,
		AnsweredAt:     m.AnsweredAt,
	}
}
