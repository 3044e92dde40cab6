package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jjudge-oj/runlog/internal/services"
	"github.com/jjudge-oj/runlog/types"
	"go.uber.org/zap"
)

const (
	msgRegisterFailed = "Failed to register user"
	msgStoreRunFailed = "Failed to store code run"
	msgListRunsFailed = "Failed to load code run history"
)

// UserHandler provides HTTP handlers for users and their code runs.
type UserHandler struct {
	userService *services.UserService
	logger      *zap.Logger
}

// NewUserHandler constructs a handler with the provided service.
func NewUserHandler(userService *services.UserService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, logger *zap.Logger) {
	handler := NewUserHandler(userService, logger)

	r.Post("/", handler.Register)
	r.Route("/{userID}/code-runs", func(r chi.Router) {
		r.Get("/", handler.ListCodeRuns)
		r.Post("/", handler.CreateCodeRun)
	})
}

// Register creates a user or updates the email of an existing one.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	user, err := h.userService.Register(r.Context(), req.UserID.String(), req.Email.Ptr())
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("register user", zap.String("user_id", req.UserID.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgRegisterFailed)
		return
	}

	writeJSON(w, http.StatusOK, RegisterResponse{OK: true, UserID: user.UserID})
}

// CreateCodeRun appends a code run to the user's history.
func (h *UserHandler) CreateCodeRun(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)

	var req CodeRunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if _, err := h.userService.AppendCodeRun(r.Context(), userID, req.Language.String(), req.Code.String()); err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("store code run", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgStoreRunFailed)
		return
	}

	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// ListCodeRuns returns the user's code runs, most recent first.
func (h *UserHandler) ListCodeRuns(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)

	runs, err := h.userService.ListCodeRuns(r.Context(), userID)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("list code runs", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgListRunsFailed)
		return
	}

	writeJSON(w, http.StatusOK, CodeRunListResponse{OK: true, UserID: userID, CodeRuns: runs})
}

func isValidationError(err error) bool {
	return errors.Is(err, services.ErrUserIDRequired) ||
		errors.Is(err, services.ErrLanguageRequired) ||
		errors.Is(err, services.ErrCodeRequired)
}

// RegisterRequest is the POST /api/users payload.
type RegisterRequest struct {
	UserID bodyString `json:"userID"`
	Email  bodyString `json:"email"`
}

// CodeRunRequest is the POST /api/users/{userID}/code-runs payload.
type CodeRunRequest struct {
	Language bodyString `json:"language"`
	Code     bodyString `json:"code"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type RegisterResponse struct {
	OK     bool   `json:"ok"`
	UserID string `json:"userID"`
}

type CodeRunListResponse struct {
	OK       bool            `json:"ok"`
	UserID   string          `json:"userID"`
	CodeRuns []types.CodeRun `json:"codeRuns"`
}
