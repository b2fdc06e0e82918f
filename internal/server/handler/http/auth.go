// Package http provides HTTP handlers for email and password authentication.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/docchat/internal/middleware"
	"github.com/atinyakov/docchat/internal/models"
	"github.com/atinyakov/docchat/internal/repository"
	"github.com/atinyakov/docchat/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"go.uber.org/zap"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Register creates a user and returns it with a token.
	Register(ctx context.Context, email, password, name string) (models.User, string, error)
	// Login verifies credentials and returns the user with a token.
	Login(ctx context.Context, email, password string) (models.User, string, error)
	// User returns the user with the given id.
	User(ctx context.Context, id string) (models.User, error)
}

// AuthHandler handles HTTP requests for user registration and login.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	Log         *zap.Logger

	validate *validator.Validate
}

// NewAuthHandler returns a handler backed by svc.
func NewAuthHandler(svc AuthService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &AuthHandler{
		AuthService: svc,
		Log:         log,
		validate:    v,
	}
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// RegisterRequest represents the JSON payload for user registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,notblank,max=100"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register handles user registration requests. It answers 201 with
// {token, user}, 400 for a malformed body, 409 when the email is taken.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, token, err := h.AuthService.Register(r.Context(), req.Email, req.Password, req.Name)
	switch {
	case errors.Is(err, repository.ErrUserExists):
		writeError(w, http.StatusConflict, "User already exists")
		return
	case errors.Is(err, service.ErrBlankName):
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	case err != nil:
		h.Log.Error("register failed", zap.String("email", req.Email), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login handles email and password login requests. It answers 200 with
// {token, user} or 401 for bad credentials.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, token, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		h.Log.Error("login failed", zap.String("email", req.Email), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Me returns the user owning the bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetUserIDFromContext(r.Context())
	user, err := h.AuthService.User(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	case err != nil:
		h.Log.Error("load user failed", zap.String("user_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	}
	return "invalid request"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
