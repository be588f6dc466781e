package links

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shortkv/shortkv/pkg/shortkv/auth"
	"github.com/shortkv/shortkv/pkg/shortkv/models"
	"github.com/shortkv/shortkv/pkg/shortkv/store"
)

// Handler handles link-related requests
type Handler struct {
	repo *Repository
}

// NewHandler creates a new links handler
func NewHandler(s store.Store) *Handler {
	return &Handler{repo: NewRepository(s)}
}

// CreateLinkRequest represents the request to create a link
type CreateLinkRequest struct {
	RedirectLink string `json:"redirectLink" binding:"required"`
	Username     string `json:"username"`
}

// CreateLinkResponse carries the new key and its expiry so an anonymous
// caller can retrieve the link later.
type CreateLinkResponse struct {
	Status         string        `json:"status"`
	URLKey         string        `json:"urlKey"`
	ExpiryDateUNIX models.Expiry `json:"expiryDateUNIX"`
}

// LinkResponse represents a link record in API responses
type LinkResponse struct {
	Status string `json:"status"`
	models.LinkRecord
}

// CheckLinkRequest represents a key-availability preflight
type CheckLinkRequest struct {
	URLKey string `json:"urlKey" binding:"required"`
}

// UpdateKeyRequest represents the request to reassign a link's key
type UpdateKeyRequest struct {
	NewURLKey string `json:"newUrlKey" binding:"required"`
}

// BatchRetrieveResponse carries the full set of an owner's link records
type BatchRetrieveResponse struct {
	Status string               `json:"status"`
	Links  []*models.LinkRecord `json:"links"`
}

// writeError maps repository errors onto the status-tagged payload contract.
func writeError(c *gin.Context, err error) {
	switch {
	case models.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "not-ok", "error": "No data with said URL Key"})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"status": "error", "error": err.Error()})
	case errors.Is(err, models.ErrKeyTaken):
		c.JSON(http.StatusConflict, gin.H{"status": "not-ok", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Store operation failed"})
	}
}

// CreateLink handles POST /createLink. Ownership comes from the verified
// token when present, else from the request body, else the link is anonymous.
func (h *Handler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	owner := req.Username
	if username, ok := auth.GetUsername(c); ok {
		owner = username
	}

	rec, err := h.repo.Create(c.Request.Context(), req.RedirectLink, owner)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateLinkResponse{
		Status:         "success",
		URLKey:         rec.URLKey,
		ExpiryDateUNIX: rec.ExpiryDateUNIX,
	})
}

// GetLink handles GET/POST /goto/:urlKey and returns the stored record.
func (h *Handler) GetLink(c *gin.Context) {
	rec, err := h.repo.Get(c.Request.Context(), c.Param("urlKey"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, LinkResponse{Status: "ok", LinkRecord: *rec})
}

// CheckLink handles POST /checkLink, the key-availability preflight.
// Both outcomes are successful results, tagged ok / not-ok.
func (h *Handler) CheckLink(c *gin.Context) {
	var req CheckLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	available, err := h.repo.CheckAvailable(c.Request.Context(), req.URLKey)
	if err != nil {
		writeError(c, err)
		return
	}
	if available {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "URL Key is available"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "not-ok", "message": "URL Key has been used for other link"})
}

// DeleteLink handles DELETE /delete/:urlKey for the authenticated owner.
func (h *Handler) DeleteLink(c *gin.Context) {
	owner, ok := auth.GetUsername(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Authentication required"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), c.Param("urlKey"), owner); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// UpdateKey handles POST /update/:urlKey for the authenticated owner.
func (h *Handler) UpdateKey(c *gin.Context) {
	owner, ok := auth.GetUsername(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Authentication required"})
		return
	}

	var req UpdateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	rec, err := h.repo.UpdateKey(c.Request.Context(), c.Param("urlKey"), req.NewURLKey, owner)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateLinkResponse{
		Status:         "success",
		URLKey:         rec.URLKey,
		ExpiryDateUNIX: rec.ExpiryDateUNIX,
	})
}

// BatchRetrieve handles POST /batchRetrieve: every link record registered
// under the authenticated owner.
func (h *Handler) BatchRetrieve(c *gin.Context) {
	owner, ok := auth.GetUsername(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Authentication required"})
		return
	}

	records, err := h.repo.ListByOwner(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	if records == nil {
		records = []*models.LinkRecord{}
	}
	c.JSON(http.StatusOK, BatchRetrieveResponse{Status: "ok", Links: records})
}

// RegisterRoutes registers link routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/createLink", auth.OptionalAuthMiddleware(), h.CreateLink)
	rg.GET("/goto/:urlKey", h.GetLink)
	rg.POST("/goto/:urlKey", h.GetLink)
	rg.POST("/checkLink", h.CheckLink)
	rg.DELETE("/delete/:urlKey", auth.AuthMiddleware(), h.DeleteLink)
	rg.POST("/update/:urlKey", auth.AuthMiddleware(), h.UpdateKey)
	rg.POST("/batchRetrieve", auth.AuthMiddleware(), h.BatchRetrieve)
}
