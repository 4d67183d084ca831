package http

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/validation"
)

// ScoreboardHandler streams ranked results over a websocket so the master
// view and a projector screen need no polling. The stream is team-safe: the
// quiz is sent as its team view, never with correct answers or the master
// token.
type ScoreboardHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	interval time.Duration
}

func NewScoreboardHandler(service *app.QuizService, interval time.Duration) *ScoreboardHandler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ScoreboardHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		interval: interval,
	}
}

type scoreboardFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS upgrades the request and pushes a scoreboard frame immediately and
// then on every tick until the client disconnects.
func (h *ScoreboardHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if err := validation.ValidateQuizCode(code); err != nil {
		http.Error(w, "missing or invalid quiz code", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Reader goroutine only detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if !h.sendSnapshot(conn, code) {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if !h.sendSnapshot(conn, code) {
				return
			}
		}
	}
}

func (h *ScoreboardHandler) sendSnapshot(conn *websocket.Conn, code string) bool {
	quiz, teams, err := h.service.Results(code)
	if err != nil {
		_ = conn.WriteJSON(scoreboardFrame{Type: "error", Payload: map[string]string{"message": kindMessage(err)}})
		return false
	}
	frame := scoreboardFrame{Type: "scoreboard", Payload: map[string]any{
		"quiz":  quiz.TeamView(),
		"teams": teams,
	}}
	if err := conn.WriteJSON(frame); err != nil {
		return false
	}
	return true
}
