package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/skimzy/skimzy/internal/api"
	"github.com/skimzy/skimzy/internal/domain"
)

type AuthService interface {
	Signup(ctx context.Context, email, name string) (*domain.User, string, error)
	CreateAPIKey(ctx context.Context, userID int64, name string) (string, error)
	ListAPIKeys(ctx context.Context, userID int64) ([]*domain.APIKey, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type SignupRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type SignupResponse struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name"`
}

type APIKeyResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

type APIKeyListItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	Revoked   bool   `json:"revoked"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" {
		api.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	user, token, err := h.svc.Signup(r.Context(), req.Email, req.Name)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, SignupResponse{
		UserID: user.ID,
		Email:  user.Email,
		Token:  token,
	})
}

func (h *AuthHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	token, err := h.svc.CreateAPIKey(r.Context(), userID, req.Name)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, APIKeyResponse{Token: token, Name: req.Name})
}

func (h *AuthHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	keys, err := h.svc.ListAPIKeys(r.Context(), userID)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	out := make([]APIKeyListItem, 0, len(keys))
	for _, k := range keys {
		out = append(out, APIKeyListItem{
			ID:        k.ID,
			Name:      k.Name,
			CreatedAt: formatTime(k.CreatedAt),
			Revoked:   k.IsRevoked(),
		})
	}
	api.Success(w, http.StatusOK, out)
}
