// Package http adapts the quiz service to REST and websocket endpoints. It
// maps the service error kinds onto status codes: validation and state
// errors to 400, missing entities to 404, duplicate team names to 409 and
// storage faults to 500.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/validation"
)

type Handler struct {
	service *app.QuizService
}

func NewHandler(service *app.QuizService) *Handler {
	return &Handler{service: service}
}

// Routes builds the API mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/quiz/create", h.createQuiz)
	mux.HandleFunc("GET /api/quiz", h.listQuizzes)
	mux.HandleFunc("GET /api/quiz/{code}", h.getQuiz)
	mux.HandleFunc("GET /api/quiz/{code}/master", h.getQuizMaster)
	mux.HandleFunc("GET /api/quiz/{code}/results", h.getResults)
	mux.HandleFunc("PATCH /api/quiz/{code}/status", h.updateStatus)
	mux.HandleFunc("PATCH /api/quiz/{code}/question", h.advanceQuestion)

	mux.HandleFunc("GET /api/master/{token}", h.getQuizByMasterToken)
	mux.HandleFunc("PATCH /api/master/{token}/status", h.updateStatusByMasterToken)
	mux.HandleFunc("PATCH /api/master/{token}/question", h.advanceQuestionByMasterToken)
	mux.HandleFunc("GET /api/master/{token}/results", h.getResultsByMasterToken)

	mux.HandleFunc("POST /api/team/join", h.joinTeam)
	mux.HandleFunc("GET /api/team/{teamId}", h.getTeam)
	mux.HandleFunc("POST /api/team/{teamId}/answer", h.submitAnswer)
	mux.HandleFunc("PATCH /api/team/{teamId}/score", h.updateAnswerScore)
	mux.HandleFunc("GET /api/team/session/{token}", h.getTeamBySessionToken)

	return mux
}

type createQuizRequest struct {
	Title     string            `json:"title"`
	Questions []domain.Question `json:"questions"`
}

type updateStatusRequest struct {
	Status domain.Status `json:"status"`
}

type advanceQuestionRequest struct {
	QuestionIndex *int `json:"questionIndex"`
}

type joinTeamRequest struct {
	QuizCode string `json:"quiz_code"`
	TeamName string `json:"team_name"`
}

type submitAnswerRequest struct {
	QuizCode       string `json:"quiz_code"`
	QuestionID     *int   `json:"question_id"`
	Answer         string `json:"answer"`
	SelectedOption *int   `json:"selected_option"`
}

type updateScoreRequest struct {
	QuizCode   string   `json:"quiz_code"`
	QuestionID *int     `json:"question_id"`
	Score      *float64 `json:"score"`
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if !decodeBody(w, r, &req) {
		return
	}
	quiz, err := h.service.CreateQuiz(req.Title, req.Questions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"quiz": quiz})
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListQuizzes()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": summaries})
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	code, ok := quizCode(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetQuizForTeam(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": view})
}

func (h *Handler) getQuizMaster(w http.ResponseWriter, r *http.Request) {
	code, ok := quizCode(w, r)
	if !ok {
		return
	}
	quiz, teams, err := h.service.GetQuizForMaster(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": quiz, "teams": teams})
}

func (h *Handler) getResults(w http.ResponseWriter, r *http.Request) {
	code, ok := quizCode(w, r)
	if !ok {
		return
	}
	h.respondResults(w, code)
}

func (h *Handler) respondResults(w http.ResponseWriter, code string) {
	quiz, teams, err := h.service.Results(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": quiz, "teams": teams})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	code, ok := quizCode(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := h.service.UpdateStatus(code, req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Quiz status updated successfully",
		"status":  req.Status,
	})
}

func (h *Handler) advanceQuestion(w http.ResponseWriter, r *http.Request) {
	code, ok := quizCode(w, r)
	if !ok {
		return
	}
	var req advanceQuestionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.QuestionIndex == nil {
		writeError(w, errValidation("questionIndex is required"))
		return
	}
	if _, err := h.service.AdvanceQuestion(code, *req.QuestionIndex); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Current question updated successfully",
		"questionIndex": *req.QuestionIndex,
	})
}

func (h *Handler) getQuizByMasterToken(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.FindQuizByMasterToken(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	quiz, teams, err := h.service.GetQuizForMaster(quiz.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": quiz, "teams": teams})
}

func (h *Handler) updateStatusByMasterToken(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.FindQuizByMasterToken(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := h.service.UpdateStatus(quiz.Code, req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Quiz status updated successfully",
		"status":  req.Status,
	})
}

func (h *Handler) advanceQuestionByMasterToken(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.FindQuizByMasterToken(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req advanceQuestionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.QuestionIndex == nil {
		writeError(w, errValidation("questionIndex is required"))
		return
	}
	if _, err := h.service.AdvanceQuestion(quiz.Code, *req.QuestionIndex); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Current question updated successfully",
		"questionIndex": *req.QuestionIndex,
	})
}

func (h *Handler) getResultsByMasterToken(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.FindQuizByMasterToken(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.respondResults(w, quiz.Code)
}

func (h *Handler) joinTeam(w http.ResponseWriter, r *http.Request) {
	var req joinTeamRequest
	if !decodeBody(w, r, &req) {
		return
	}
	team, err := h.service.JoinTeam(req.QuizCode, req.TeamName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"team": team})
}

func (h *Handler) getTeam(w http.ResponseWriter, r *http.Request) {
	quizCode := r.URL.Query().Get("quiz_code")
	if quizCode == "" {
		writeError(w, errValidation("quiz_code query parameter is required"))
		return
	}
	team, err := h.service.GetTeam(r.PathValue("teamId"), quizCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": team})
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.QuizCode == "" {
		writeError(w, errValidation("quiz_code is required"))
		return
	}
	if req.QuestionID == nil {
		writeError(w, errValidation("question_id is required"))
		return
	}
	answer, total, err := h.service.SubmitAnswer(r.PathValue("teamId"), req.QuizCode, domain.AnswerSubmission{
		QuestionID:     *req.QuestionID,
		Answer:         req.Answer,
		SelectedOption: req.SelectedOption,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"answer": answer, "total_score": total})
}

func (h *Handler) updateAnswerScore(w http.ResponseWriter, r *http.Request) {
	var req updateScoreRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.QuizCode == "" || req.QuestionID == nil {
		writeError(w, errValidation("quiz_code and question_id are required"))
		return
	}
	if req.Score == nil {
		writeError(w, errValidation("score is required"))
		return
	}
	team, err := h.service.UpdateAnswerScore(r.PathValue("teamId"), req.QuizCode, *req.QuestionID, *req.Score)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"team":    team,
		"message": "Score updated successfully",
	})
}

func (h *Handler) getTeamBySessionToken(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.FindTeamBySessionToken(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := h.service.GetQuizForTeam(team.QuizCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": team, "quiz": view})
}

// quizCode extracts and validates the {code} path segment.
func quizCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	code := r.PathValue("code")
	if err := validation.ValidateQuizCode(code); err != nil {
		writeError(w, err)
		return "", false
	}
	return code, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, errValidation("invalid request body"))
		return false
	}
	return true
}

func errValidation(msg string) error {
	return &kindError{kind: domain.ErrValidation, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.kind.Error() + ": " + e.msg }
func (e *kindError) Unwrap() error { return e.kind }

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	var status int
	var label string
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, label = http.StatusBadRequest, "Validation Error"
	case errors.Is(err, domain.ErrInvalidState):
		status, label = http.StatusBadRequest, "Invalid State"
	case errors.Is(err, domain.ErrNotFound):
		status, label = http.StatusNotFound, "Not Found"
	case errors.Is(err, domain.ErrConflict):
		status, label = http.StatusConflict, "Conflict"
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Internal Server Error",
			Message: "An unexpected error occurred",
		})
		return
	}
	writeJSON(w, status, errorResponse{Error: label, Message: kindMessage(err)})
}

// kindMessage strips the sentinel prefix so clients see just the human text.
func kindMessage(err error) string {
	msg := err.Error()
	for _, kind := range []error{domain.ErrValidation, domain.ErrInvalidState, domain.ErrNotFound, domain.ErrConflict} {
		if trimmed, ok := strings.CutPrefix(msg, kind.Error()+": "); ok {
			return trimmed
		}
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
