package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sebasr/greetcard-service/internal/middleware"
	"github.com/sebasr/greetcard-service/internal/models"
	"github.com/sebasr/greetcard-service/internal/repository"
	"github.com/sebasr/greetcard-service/internal/web"
)

const (
	defaultPageTitle       = "Send a greeting"
	defaultPageDescription = "Write a little note and share it with a link."
)

// PageLimits mirrors the input bounds for the creation form
type PageLimits struct {
	Name     int
	Message  int
	Subtitle int
	Quote    int
	DayIndex int
}

// PageData is the view model of the greeting page
type PageData struct {
	Greeting    *models.GreetingResponse
	Title       string
	Description string
	ShareURL    string
	Subtitle    string
	Quote       string
	DayLabel    string
	Memories    []string
	Limits      PageLimits
}

// PageHandler renders the greeting page. With a known ?id= the greeting is
// filled in server side; otherwise the page shows defaults and the creation form.
type PageHandler struct {
	repo     repository.GreetingRepository
	greeting *GreetingHandler
	logger   *zap.Logger
}

// NewPageHandler creates a page handler. greetings supplies share URL construction.
func NewPageHandler(repo repository.GreetingRepository, greetings *GreetingHandler, logger *zap.Logger) *PageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageHandler{repo: repo, greeting: greetings, logger: logger}
}

// Index serves GET /
func (h *PageHandler) Index(c *gin.Context) {
	data := defaultPageData()

	id := c.Query("id")
	if id != "" && models.ValidateID(id) == nil {
		g, err := h.repo.GetByID(c.Request.Context(), id)
		switch {
		case err == nil:
			fillPageData(&data, g.ToResponse())
			if h.greeting != nil {
				data.ShareURL = h.greeting.ShareURL(c, g.ID)
			}
		case errors.Is(err, repository.ErrGreetingNotFound):
		default:
			h.logger.Error("failed to load greeting for page",
				zap.String("request_id", middleware.GetRequestID(c)),
				zap.String("id", id),
				zap.Error(err),
			)
		}
	}

	c.HTML(http.StatusOK, web.PageTemplate, data)
}

func defaultPageData() PageData {
	return PageData{
		Title:       defaultPageTitle,
		Description: defaultPageDescription,
		Subtitle:    models.DefaultSubtitle,
		Limits: PageLimits{
			Name:     models.MaxNameLength,
			Message:  models.MaxMessageLength,
			Subtitle: models.MaxSubtitleLength,
			Quote:    models.MaxQuoteLength,
			DayIndex: models.MaxDayIndex,
		},
	}
}

func fillPageData(data *PageData, g *models.GreetingResponse) {
	data.Greeting = g
	data.Title = fmt.Sprintf("A greeting for %s from %s", g.Receiver, g.Sender)
	data.Description = g.Subtitle
	if g.Message != "" {
		data.Description = g.Message
	}
	data.Subtitle = g.Subtitle
	data.Quote = g.Quote
	data.Memories = g.Memories
	if g.DayIndex != nil {
		data.DayLabel = fmt.Sprintf("Day %d", *g.DayIndex)
	}
}
