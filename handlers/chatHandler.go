package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"tutorbot/models"
	"tutorbot/services"

	"github.com/gorilla/mux"
)

type ChatHandler struct {
	service *services.SessionService
}

func NewChatHandler(service *services.SessionService) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/register", h.Register).Methods("POST")
	router.HandleFunc("/chat", h.Chat).Methods("POST")
}

func (h *ChatHandler) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[INFO] Received registration request")

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ERROR] Failed to decode registration request JSON: %v", err)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if req.LearnerID == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "learnerId is required")
		return
	}
	if req.Level == "" {
		req.Level = models.LevelBeginner
	}

	session, err := h.service.Onboard(r.Context(), req.LearnerID, req.Level)
	if err != nil {
		log.Printf("[ERROR] Registration failed for learner %s: %v", req.LearnerID, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to register learner")
		return
	}

	log.Printf("[INFO] Registered learner %s", req.LearnerID)
	h.writeJSONResponse(w, http.StatusCreated, session)
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	log.Printf("[INFO] Received chat request")

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ERROR] Failed to decode chat request JSON: %v", err)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if req.LearnerID == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "learnerId is required")
		return
	}

	reply, err := h.service.HandleTurn(r.Context(), req.LearnerID, req.Message)
	if err != nil {
		log.Printf("[ERROR] Turn failed for learner %s: %v", req.LearnerID, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to process message")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, models.ChatResponse{BotMessage: reply})
}

func (h *ChatHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *ChatHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
