// Package handlers contains HTTP request handlers for the greeting service.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sebasr/greetcard-service/internal/events"
	"github.com/sebasr/greetcard-service/internal/metrics"
	"github.com/sebasr/greetcard-service/internal/middleware"
	"github.com/sebasr/greetcard-service/internal/models"
	"github.com/sebasr/greetcard-service/internal/repository"
	"github.com/sebasr/greetcard-service/internal/shortid"
)

const (
	// MaxCreateAttempts bounds identifier generation when the store reports a collision
	MaxCreateAttempts = 3

	getCacheControl = "public, max-age=300"
)

var errIDsExhausted = errors.New("no free identifier after retries")

// IDGenerator produces new greeting identifiers
type IDGenerator interface {
	Generate() (string, error)
}

// GreetingHandler handles the create and get API endpoints
type GreetingHandler struct {
	repo          repository.GreetingRepository
	ids           IDGenerator
	publisher     events.Publisher
	logger        *zap.Logger
	publicBaseURL string
	now           func() time.Time
}

// NewGreetingHandler creates a new greeting handler
func NewGreetingHandler(repo repository.GreetingRepository, logger *zap.Logger) *GreetingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GreetingHandler{
		repo:      repo,
		ids:       shortid.New(shortid.DefaultLength),
		publisher: events.NewNoop(),
		logger:    logger,
		now:       time.Now,
	}
}

// WithPublisher sets the publisher used for greeting.created events
func (h *GreetingHandler) WithPublisher(p events.Publisher) *GreetingHandler {
	if p != nil {
		h.publisher = p
	}
	return h
}

// WithIDGenerator replaces the identifier generator
func (h *GreetingHandler) WithIDGenerator(g IDGenerator) *GreetingHandler {
	if g != nil {
		h.ids = g
	}
	return h
}

// WithPublicBaseURL fixes the scheme and host used in share URLs
func (h *GreetingHandler) WithPublicBaseURL(base string) *GreetingHandler {
	h.publicBaseURL = strings.TrimSuffix(base, "/")
	return h
}

// CreateGreetingResponse is returned by POST /api/create
type CreateGreetingResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	URL     string `json:"url"`
}

// Create @Summary Create a greeting
// @Description Stores a greeting under a new short identifier and returns its share URL.
// @Tags greetings
// @Accept json
// @Produce json
// @Param payload body models.CreateGreetingRequest true "sender and receiver are required"
// @Success 201 {object} CreateGreetingResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/create [post]
func (h *GreetingHandler) Create(c *gin.Context) {
	var req models.CreateGreetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be a JSON object",
		})
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	reqID := middleware.GetRequestID(c)

	greeting, err := h.store(ctx, &req, reqID)
	if err != nil {
		h.logger.Error("failed to create greeting",
			zap.String("request_id", reqID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to create greeting",
		})
		return
	}
	metrics.GreetingsCreated.Inc()

	h.publishCreated(ctx, greeting, reqID)

	c.JSON(http.StatusCreated, CreateGreetingResponse{
		Success: true,
		ID:      greeting.ID,
		URL:     h.ShareURL(c, greeting.ID),
	})
}

// store persists the request under a fresh identifier, generating a new one
// only when the store reports the previous one as taken
func (h *GreetingHandler) store(ctx context.Context, req *models.CreateGreetingRequest, reqID string) (*models.Greeting, error) {
	for attempt := 1; attempt <= MaxCreateAttempts; attempt++ {
		id, err := h.ids.Generate()
		if err != nil {
			return nil, err
		}

		greeting := req.ToGreeting(id, h.now())
		err = h.repo.Create(ctx, greeting)
		if err == nil {
			return greeting, nil
		}
		if !errors.Is(err, repository.ErrGreetingExists) {
			return nil, err
		}

		metrics.IDCollisions.Inc()
		h.logger.Warn("greeting identifier collision",
			zap.String("request_id", reqID),
			zap.String("id", id),
			zap.Int("attempt", attempt),
		)
	}
	return nil, fmt.Errorf("%w (%d attempts)", errIDsExhausted, MaxCreateAttempts)
}

func (h *GreetingHandler) publishCreated(ctx context.Context, g *models.Greeting, reqID string) {
	event := events.GreetingCreated{
		ID:        g.ID,
		Sender:    g.Sender,
		Receiver:  g.Receiver,
		CreatedAt: g.CreatedAt,
		RequestID: reqID,
	}
	if err := h.publisher.Publish(ctx, events.KeyGreetingCreated, event, reqID); err != nil {
		metrics.EventsPublished.WithLabelValues(events.KeyGreetingCreated, "error").Inc()
		h.logger.Warn("failed to publish event",
			zap.String("request_id", reqID),
			zap.String("event", events.KeyGreetingCreated),
			zap.String("id", g.ID),
			zap.Error(err),
		)
		return
	}
	metrics.EventsPublished.WithLabelValues(events.KeyGreetingCreated, "ok").Inc()
}

// Get @Summary Get a greeting
// @Description Returns the stored greeting with display defaults applied.
// @Tags greetings
// @Produce json
// @Param id query string true "greeting identifier"
// @Success 200 {object} models.GreetingResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/get [get]
func (h *GreetingHandler) Get(c *gin.Context) {
	id := c.Query("id")
	if err := models.ValidateID(id); err != nil {
		metrics.GreetingLookups.WithLabelValues(metrics.LookupInvalid).Inc()
		var ve models.ValidationErrors
		message := "Invalid greeting id"
		if errors.As(err, &ve) && len(ve) > 0 {
			message = ve[0].Message
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_id",
			"message": message,
		})
		return
	}

	greeting, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrGreetingNotFound) {
			metrics.GreetingLookups.WithLabelValues(metrics.LookupNotFound).Inc()
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "greeting_not_found",
				"message": "Greeting not found",
			})
			return
		}

		metrics.GreetingLookups.WithLabelValues(metrics.LookupError).Inc()
		h.logger.Error("failed to load greeting",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("id", id),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to retrieve greeting",
		})
		return
	}

	metrics.GreetingLookups.WithLabelValues(metrics.LookupFound).Inc()
	c.Header("Cache-Control", getCacheControl)
	c.JSON(http.StatusOK, greeting.ToResponse())
}

// ShareURL builds the public link for a greeting. The configured public base URL
// wins; otherwise scheme and host come from the request and its forwarding headers.
func (h *GreetingHandler) ShareURL(c *gin.Context, id string) string {
	base := h.publicBaseURL
	if base == "" {
		base = requestScheme(c) + "://" + requestHost(c)
	}
	return base + "/?id=" + url.QueryEscape(id)
}

func requestScheme(c *gin.Context) string {
	if c.Request.TLS != nil {
		return "https"
	}
	if proto := firstHeaderValue(c.GetHeader("X-Forwarded-Proto")); strings.EqualFold(proto, "https") {
		return "https"
	}
	return "http"
}

func requestHost(c *gin.Context) string {
	if host := firstHeaderValue(c.GetHeader("X-Forwarded-Host")); host != "" {
		return host
	}
	return c.Request.Host
}

// firstHeaderValue returns the first entry of a comma separated header
func firstHeaderValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func respondValidationError(c *gin.Context, err error) {
	var ve models.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation_error",
		"message": ve[0].Message,
		"fields":  ve.Fields(),
	})
}
