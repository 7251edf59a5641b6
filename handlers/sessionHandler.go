package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"tutorbot/models"
	"tutorbot/services"

	"github.com/gorilla/mux"
)

type SessionHandler struct {
	service *services.SessionService
}

func NewSessionHandler(service *services.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

func (h *SessionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/session/{learnerId}", h.GetSession).Methods("GET")
	router.HandleFunc("/session/{learnerId}/mode", h.SwitchMode).Methods("POST")
	router.HandleFunc("/session/{learnerId}/next", h.NextQuestion).Methods("POST")
	router.HandleFunc("/session/{learnerId}/jump", h.JumpToQuestion).Methods("POST")
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	learnerID := mux.Vars(r)["learnerId"]
	log.Printf("[INFO] Received session lookup for learner %s", learnerID)

	session, err := h.service.GetSession(learnerID)
	if err != nil {
		log.Printf("[ERROR] Session lookup failed for learner %s: %v", learnerID, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load session")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, session)
}

func (h *SessionHandler) SwitchMode(w http.ResponseWriter, r *http.Request) {
	learnerID := mux.Vars(r)["learnerId"]
	log.Printf("[INFO] Received mode switch for learner %s", learnerID)

	var req models.SwitchModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ERROR] Failed to decode mode switch JSON: %v", err)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if !models.ValidMode(req.Mode) {
		h.writeErrorResponse(w, http.StatusBadRequest, "Unknown mode")
		return
	}

	session, err := h.service.SwitchMode(r.Context(), learnerID, req.Mode)
	if err != nil {
		log.Printf("[ERROR] Mode switch failed for learner %s: %v", learnerID, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to switch mode")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, session)
}

func (h *SessionHandler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	learnerID := mux.Vars(r)["learnerId"]
	log.Printf("[INFO] Received question advance for learner %s", learnerID)

	session, err := h.service.AdvanceQuestion(r.Context(), learnerID)
	if err != nil {
		log.Printf("[ERROR] Question advance failed for learner %s: %v", learnerID, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to advance question")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, session)
}

func (h *SessionHandler) JumpToQuestion(w http.ResponseWriter, r *http.Request) {
	learnerID := mux.Vars(r)["learnerId"]
	log.Printf("[INFO] Received question jump for learner %s", learnerID)

	var req models.JumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ERROR] Failed to decode question jump JSON: %v", err)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	session, err := h.service.JumpToQuestion(r.Context(), learnerID, req.Index)
	if err != nil {
		log.Printf("[ERROR] Question jump failed for learner %s: %v", learnerID, err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to jump to question")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, session)
}

func (h *SessionHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *SessionHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
