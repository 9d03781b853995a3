package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-live-service/internal/domain"
)

// QuestionLoader loads question rows from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var q domain.Question
	err := l.pool.QueryRow(ctx, `
		SELECT id, text, correct_answer, acceptable_answers, time_limit, type,
		       COALESCE(options, '{}'), COALESCE(category, ''), COALESCE(difficulty, '')
		FROM questions WHERE id=$1`, id).
		Scan(&q.ID, &q.Text, &q.CorrectAnswer, &q.AcceptableAnswers, &q.TimeLimit, &q.Type,
			&q.Options, &q.Category, &q.Difficulty)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}
