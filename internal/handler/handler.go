package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/peerfund/lending-service/internal/integrations/gateway"
	"github.com/peerfund/lending-service/internal/models"
	"github.com/peerfund/lending-service/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc     *service.Service
	gateway *gateway.Client
	rates   service.RateSuggester
	log     *logrus.Logger
}

func NewHandler(svc *service.Service, gw *gateway.Client, rates service.RateSuggester, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, gateway: gw, rates: rates, log: log}
}

// userID extracts the authenticated caller's id from the request context
func userID(r *http.Request) (int64, error) {
	s, ok := r.Context().Value("userID").(string)
	if !ok || s == "" {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return strconv.ParseInt(s, 10, 64)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses. External failures
// are logged in full but surfaced generically.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case models.IsKind(err, models.KindValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case models.IsKind(err, models.KindNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case models.IsKind(err, models.KindInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case models.IsKind(err, models.KindPrecondition):
		http.Error(w, err.Error(), http.StatusPreconditionFailed)
	case models.IsKind(err, models.KindExternal):
		h.log.Errorf("External service failure: %v", err)
		http.Error(w, "Service temporarily unavailable", http.StatusBadGateway)
	default:
		h.log.Errorf("Unhandled error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username   string `json:"username"`
		Email      string `json:"email"`
		Password   string `json:"password"`
		UPIAddress string `json:"upi_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	user, err := h.svc.Register(req.Username, req.Email, req.Password, req.UPIAddress)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	token, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// VerifyIdentity marks the caller as identity-verified
func (h *Handler) VerifyIdentity(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.svc.VerifyIdentity(uid); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// SuggestedRate returns the current suggested annual lending rate
func (h *Handler) SuggestedRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.rates.SuggestedRate()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get suggested rate: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"suggested_rate": rate})
}
