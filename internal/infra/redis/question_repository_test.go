package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/infra/memory"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{QuestionLoader: memory.NewStaticQuestionLoader(sampleQuestion())}
	repo := NewQuestionRepository(client, loader, time.Minute)

	q, err := repo.GetQuestion(context.Background(), 101)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("question:101") {
		t.Fatalf("expected question cached in redis")
	}
	if ttl := mr.TTL("question:101"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with jitter, got %s", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuestion(context.Background(), 101)
	if err != nil {
		t.Fatalf("get cached question: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.CorrectAnswer != q.CorrectAnswer || len(cached.AcceptableAnswers) != 2 {
		t.Fatalf("cached question mismatch: %+v", cached)
	}

	if err := repo.Invalidate(context.Background(), 101); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetQuestion(context.Background(), 101)
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestQuestionRepositoryNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuestionRepository(newClient(mr), memory.NewStaticQuestionLoader(), time.Minute)
	if _, err := repo.GetQuestion(context.Background(), 404); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if mr.Exists("question:404") {
		t.Fatalf("misses must not be cached")
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestion(ctx context.Context, id int64) (domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestion(ctx, id)
}

func sampleQuestion() domain.Question {
	return domain.Question{
		ID:                101,
		Text:              "Which Brazilian footballer is known as 'The Phenomenon'?",
		CorrectAnswer:     "Ronaldo",
		AcceptableAnswers: []string{"Ronaldo", "R9"},
		TimeLimit:         60,
		Type:              "text-input",
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
