package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// Handler maps the engine's operations 1:1 onto JSON routes.
type Handler struct {
	service *app.GameService
}

func NewHandler(service *app.GameService) *Handler {
	return &Handler{service: service}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/quiz/{quizID}/session/start", h.startSession)
	mux.HandleFunc("PUT /v1/session/{sessionID}/action", h.performAction)
	mux.HandleFunc("GET /v1/session/{sessionID}/status", h.sessionStatus)
	mux.HandleFunc("GET /v1/session/{sessionID}/results", h.sessionResults)
	mux.HandleFunc("POST /v1/session/{sessionID}/join", h.join)
	mux.HandleFunc("GET /v1/player/{playerID}/status", h.playerStatus)
	mux.HandleFunc("GET /v1/player/{playerID}/question/{position}", h.questionInfo)
	mux.HandleFunc("PUT /v1/player/{playerID}/question/{position}/answer", h.submitAnswer)
	mux.HandleFunc("GET /v1/player/{playerID}/question/{position}/results", h.questionResult)
	mux.HandleFunc("GET /v1/player/{playerID}/results", h.finalResults)
	mux.HandleFunc("POST /v1/player/{playerID}/chat", h.sendMessage)
	mux.HandleFunc("GET /v1/player/{playerID}/chat", h.messages)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "quizID")
	if err != nil {
		writeError(w, domain.ErrQuizNotFound)
		return
	}
	var body struct {
		AutoStartNum int `json:"autoStartNum"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	sessionID, err := h.service.StartSessionByQuizID(r.Context(), quizID, body.AutoStartNum)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"sessionId": sessionID})
}

func (h *Handler) performAction(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		writeError(w, domain.ErrSessionNotFound)
		return
	}
	var body struct {
		Action domain.Action `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := h.service.PerformAction(r.Context(), sessionID, body.Action); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) sessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		writeError(w, domain.ErrSessionNotFound)
		return
	}
	status, err := h.service.SessionStatus(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) sessionResults(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		writeError(w, domain.ErrSessionNotFound)
		return
	}
	results, err := h.service.FinalResultsForSession(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		writeError(w, domain.ErrSessionNotFound)
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	playerID, name, err := h.service.Join(sessionID, body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playerId": playerID, "name": name})
}

func (h *Handler) playerStatus(w http.ResponseWriter, r *http.Request) {
	playerID, err := pathID(r, "playerID")
	if err != nil {
		writeError(w, domain.ErrPlayerNotFound)
		return
	}
	status, err := h.service.PlayerStatus(playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) questionInfo(w http.ResponseWriter, r *http.Request) {
	playerID, position, err := playerQuestionPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	question, err := h.service.QuestionInfo(playerID, position)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	playerID, position, err := playerQuestionPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		AnswerIDs []int64 `json:"answerIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := h.service.SubmitAnswer(playerID, position, body.AnswerIDs); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) questionResult(w http.ResponseWriter, r *http.Request) {
	playerID, position, err := playerQuestionPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.service.QuestionResult(playerID, position)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) finalResults(w http.ResponseWriter, r *http.Request) {
	playerID, err := pathID(r, "playerID")
	if err != nil {
		writeError(w, domain.ErrPlayerNotFound)
		return
	}
	results, err := h.service.FinalResultsForPlayer(playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	playerID, err := pathID(r, "playerID")
	if err != nil {
		writeError(w, domain.ErrPlayerNotFound)
		return
	}
	var body struct {
		Message string `json:"messageBody"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := h.service.SendMessage(playerID, body.Message); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	playerID, err := pathID(r, "playerID")
	if err != nil {
		writeError(w, domain.ErrPlayerNotFound)
		return
	}
	messages, err := h.service.Messages(playerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.ChatMessage{"messages": messages})
}

func playerQuestionPath(r *http.Request) (int64, int, error) {
	playerID, err := pathID(r, "playerID")
	if err != nil {
		return 0, 0, domain.ErrPlayerNotFound
	}
	position, err := strconv.Atoi(r.PathValue("position"))
	if err != nil {
		return 0, 0, domain.ErrQuestionNotFound
	}
	return playerID, position, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": message})
}

// writeError maps engine sentinel errors onto status codes by kind.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsInvalidInput(err):
		status = http.StatusBadRequest
	case domain.IsInvalidState(err):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
