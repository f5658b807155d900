package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/fieldlog/internal/schema"
	"github.com/garnizeh/fieldlog/pkg/models"
	"github.com/garnizeh/fieldlog/pkg/repository"
)

type AuthHandler struct {
	userRepo      repository.UserRepo
	schemas       *schema.Loader
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(ur repository.UserRepo, schemas *schema.Loader, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{userRepo: ur, schemas: schemas, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

type signupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Signup creates a login account. The engineer profile is created separately
// through POST /v1/me/profile.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := readValidated(w, r, h.schemas, schema.Signup, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	u := &models.User{Email: strings.TrimSpace(req.Email), FullName: strings.TrimSpace(req.FullName), PasswordHash: string(hash)}
	if _, err := h.userRepo.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusConflict, CodeConflict, "email already registered")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	h.respondToken(w, r, u.ID, http.StatusCreated)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := readValidated(w, r, h.schemas, schema.Signin, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	u, err := h.userRepo.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Credentials not found")
		return
	}

	h.respondToken(w, r, u.ID, http.StatusOK)
}

func (h *AuthHandler) respondToken(w http.ResponseWriter, r *http.Request, userID string, status int) {
	tokenStr, err := IssueToken(h.jwtSecret, userID, h.tokenDuration)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, authResponse{Token: tokenStr, UserID: userID}, status)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	// For stateless JWT, signout is client-side (just delete token)
	writeJSON(w, map[string]string{"message": "signed out"}, http.StatusOK)
}
