package redirect

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shortkv/shortkv/pkg/shortkv/events"
	"github.com/shortkv/shortkv/pkg/shortkv/links"
	"github.com/shortkv/shortkv/pkg/shortkv/models"
	"github.com/shortkv/shortkv/pkg/shortkv/store"
)

// Handler handles redirect requests
type Handler struct {
	repo      *links.Repository
	publisher events.Publisher
}

// NewHandler creates a new redirect handler
func NewHandler(s store.Store, publisher events.Publisher) *Handler {
	return &Handler{repo: links.NewRepository(s), publisher: publisher}
}

// Redirect handles GET /r/:urlKey: resolves the short key and sends the
// browser to the destination. Expired anonymous links are refused; the
// record itself stays in the store until swept.
func (h *Handler) Redirect(c *gin.Context) {
	key := c.Param("urlKey")

	rec, err := h.repo.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "not-ok", "error": "No data with said URL Key"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Store operation failed"})
		}
		return
	}

	if rec.ExpiryDateUNIX.Expired(time.Now()) {
		c.JSON(http.StatusNotFound, gin.H{"status": "not-ok", "error": "Link has expired"})
		return
	}

	// Fire and forget - don't block the redirect on the event queue
	userAgent := c.GetHeader("User-Agent")
	go func() {
		event := events.ClickEvent{
			URLKey:    key,
			UserAgent: userAgent,
			Timestamp: time.Now(),
		}
		if err := h.publisher.PublishClick(context.Background(), event); err != nil {
			log.Printf("Error publishing click event: %v", err)
		}
	}()

	c.Redirect(http.StatusFound, rec.RedirectLink)
}

// RegisterRoutes registers redirect routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/r/:urlKey", h.Redirect)
}
