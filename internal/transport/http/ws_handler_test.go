package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"trivia-live-service/internal/app"
	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.PutQuestion(domain.Question{ID: 101, Text: "The Phenomenon?", CorrectAnswer: "Ronaldo", AcceptableAnswers: []string{"Ronaldo", "R9"}})
	store.PutQuestion(domain.Question{ID: 102, Text: "Leicester title year?", CorrectAnswer: "2016"})
	store.PutUser(domain.User{ID: 7, Username: "emma_wilson", DisplayName: "Emma Wilson"})
	store.PutUser(domain.User{ID: 8, Username: "mike_johnson", DisplayName: "Mike Johnson"})
	store.CreateCompetition(domain.Competition{ID: 1, Title: "Friday Night Football Quiz", QuestionIDs: []int64{101, 102}, MaxParticipants: 50})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := app.NewCoordinator(store, memory.NewQuestionRepository(store, time.Minute), app.Options{
		Tracker: memory.NewRoomTracker(),
		Logger:  log,
	})
	server := httptest.NewServer(NewRouter(coord, store, WSOptions{
		PingInterval: time.Second,
		PongWait:     5 * time.Second,
	}, log))
	t.Cleanup(server.Close)
	return server, store
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func TestWebSocketCompetitionFlow(t *testing.T) {
	server, store := newTestServer(t)
	host := dial(t, server)
	player := dial(t, server)

	send(t, host, "join_competition", map[string]any{"competitionId": 1, "userId": 8})
	readNext(host, t, "participant_joined")
	_, snapshot := readNext(host, t, "competition_state")
	if snapshot["competition"] == nil {
		t.Fatalf("expected competition in snapshot, got %v", snapshot)
	}

	send(t, player, "join_competition", map[string]any{"competitionId": 1, "userId": 7})
	readNext(player, t, "participant_joined")
	readNext(player, t, "competition_state")
	_, joined := readNext(host, t, "participant_joined")
	participant, _ := joined["participant"].(map[string]any)
	if participant["userId"] != float64(7) {
		t.Fatalf("expected user 7 to join, got %v", joined)
	}

	send(t, host, "start_competition", nil)
	for _, conn := range []*websocket.Conn{host, player} {
		readNext(conn, t, "competition_started")
		_, q := readNext(conn, t, "next_question")
		question, _ := q["question"].(map[string]any)
		if question["id"] != float64(101) {
			t.Fatalf("expected question 101, got %v", q)
		}
		if _, leaked := question["correctAnswer"]; leaked {
			t.Fatalf("question payload leaked the answer: %v", question)
		}
	}

	send(t, player, "submit_answer", map[string]any{"questionId": 101, "selectedAnswer": "R9", "timeToAnswer": 3})
	_, submitted := readNext(host, t, "answer_submitted")
	if submitted["userId"] != float64(7) {
		t.Fatalf("unexpected answer_submitted payload %v", submitted)
	}
	readNext(player, t, "answer_submitted")

	send(t, player, "submit_answer", map[string]any{"questionId": 101, "selectedAnswer": "Ronaldo", "timeToAnswer": 4})
	_, reply := readNext(player, t, "error")
	if reply["code"] != "duplicate_answer" {
		t.Fatalf("expected duplicate_answer, got %v", reply)
	}

	p, err := store.GetParticipant(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if p.Score != app.DefaultPointsPerCorrect {
		t.Fatalf("expected score %d, got %d", app.DefaultPointsPerCorrect, p.Score)
	}

	player.Close()
	_, gone := readNext(host, t, "participant_disconnected")
	if gone["userId"] != float64(7) {
		t.Fatalf("expected user 7 to disconnect, got %v", gone)
	}
}

func TestWebSocketMalformedKeepsConnection(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{broken")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, reply := readNext(conn, t, "error")
	if reply["code"] != "malformed_message" {
		t.Fatalf("expected malformed_message, got %v", reply)
	}

	send(t, conn, "emoji_reaction", map[string]any{"emoji": "⚽"})
	send(t, conn, "join_competition", map[string]any{"competitionId": 1, "userId": 7})
	readNext(conn, t, "participant_joined")
	readNext(conn, t, "competition_state")
}

func TestRESTRoutes(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/live-competitions?status=scheduled")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var list []domain.Competition
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	resp.Body.Close()
	if len(list) != 1 || list[0].ID != 1 {
		t.Fatalf("unexpected list %+v", list)
	}

	resp, err = http.Get(server.URL + "/api/live-competitions/42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/live-competitions?status=paused")
	if err != nil {
		t.Fatalf("list bad status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
