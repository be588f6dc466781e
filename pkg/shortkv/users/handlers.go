package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shortkv/shortkv/pkg/shortkv/auth"
	"github.com/shortkv/shortkv/pkg/shortkv/models"
	"github.com/shortkv/shortkv/pkg/shortkv/store"
)

// Handler handles account-related requests
type Handler struct {
	repo *Repository
}

// NewHandler creates a new users handler
func NewHandler(s store.Store, deleteKey string) *Handler {
	return &Handler{repo: NewRepository(s, deleteKey)}
}

// CreateUserRequest represents the registration request body
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// FindUserRequest represents a profile lookup by username
type FindUserRequest struct {
	Username string `json:"username" binding:"required"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest represents the password change request body
type ChangePasswordRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// DeleteAccountRequest represents the administrative account deletion body
type DeleteAccountRequest struct {
	Username  string `json:"username" binding:"required"`
	DeleteKey string `json:"deleteKey" binding:"required"`
}

// UserResponse represents account data in responses; the password hash is
// never included.
type UserResponse struct {
	Status          string `json:"status"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	CreatedDateUNIX int64  `json:"createdDateUNIX,omitempty"`
}

// CreateUser handles POST /user/create. Duplicate usernames and emails are
// successful not-ok results, not errors, and never overwrite the existing
// record.
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	rec, err := h.repo.Create(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, UserResponse{
			Status:   "success",
			Username: rec.Username,
			Email:    rec.Email,
		})
	case models.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
	case models.IsConflict(err):
		c.JSON(http.StatusOK, gin.H{"status": "not-ok", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Store operation failed"})
	}
}

// FindUser handles POST /user/find. A missing account is a successful
// not-ok result.
func (h *Handler) FindUser(c *gin.Context) {
	var req FindUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	rec, err := h.repo.Find(c.Request.Context(), req.Username)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, UserResponse{
			Status:          "ok",
			Username:        rec.Username,
			Email:           rec.Email,
			CreatedDateUNIX: rec.CreatedDateUNIX,
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusOK, gin.H{"status": "not-ok", "message": "No user with the username"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Store operation failed"})
	}
}

// Login handles POST /user/login and issues a token on success. The three
// outcomes are distinguishable by the response payload.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	status, err := h.repo.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Store operation failed"})
		return
	}

	switch status {
	case LoginOK:
		rec, err := h.repo.Find(c.Request.Context(), req.Username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Store operation failed"})
			return
		}
		token, err := auth.GenerateToken(rec.Username, rec.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Login successful", "token": token})
	case LoginWrongPassword:
		c.JSON(http.StatusOK, gin.H{"status": "not-ok", "message": "Wrong password"})
	case LoginNoAccount:
		c.JSON(http.StatusOK, gin.H{"status": "not-ok", "message": "Account does not exist"})
	}
}

// ChangePassword handles POST /user/changePassword.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	err := h.repo.ChangePassword(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Password has been updated"})
	case models.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
	case errors.Is(err, models.ErrMismatch):
		c.JSON(http.StatusOK, gin.H{"status": "not-ok", "message": "Given username does not match email of username"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusOK, gin.H{"status": "not-ok", "message": "No user with the username"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Store operation failed"})
	}
}

// DeleteAccount handles DELETE /user/delete, gated on the administrative
// delete key. The account's links are retained.
func (h *Handler) DeleteAccount(c *gin.Context) {
	var req DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	err := h.repo.DeleteAccount(c.Request.Context(), req.Username, req.DeleteKey)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"status": "not-ok", "message": "Delete key is incorrect"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Store operation failed"})
	}
}

// RegisterRoutes registers account routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/create", h.CreateUser)
	rg.POST("/find", h.FindUser)
	rg.POST("/login", h.Login)
	rg.POST("/changePassword", h.ChangePassword)
	rg.DELETE("/delete", h.DeleteAccount)
}
