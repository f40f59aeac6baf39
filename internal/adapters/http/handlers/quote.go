package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/daily-quote/internal/adapters/http/dto"
	"github.com/jsamuelsen/daily-quote/internal/adapters/http/middleware"
	"github.com/jsamuelsen/daily-quote/internal/app"
	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// QuoteHandler serves the daily, random and searched quotes and the corpus reload.
type QuoteHandler struct {
	quotes     *app.QuoteService
	engagement *app.EngagementService
}

// NewQuoteHandler creates a quote handler. The engagement service backs POST /quotes/today/view.
func NewQuoteHandler(quotes *app.QuoteService, engagement *app.EngagementService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, engagement: engagement}
}

// QuoteResponse is a quote as the UI shows it.
type QuoteResponse struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Author   string `json:"author"`
	Category string `json:"category,omitempty"`
	Source   string `json:"source,omitempty"`
}

func toQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{ID: q.ID, Text: q.Text, Author: q.Author, Category: q.Category, Source: q.Source}
}

func toQuoteResponses(qs []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, len(qs))
	for i, q := range qs {
		out[i] = toQuoteResponse(q)
	}

	return out
}

// DailyQuoteResponse is the quote for a day and where it came from:
// cache (stored pick), selector (fresh pick), fallback (built-in quote) or random.
type DailyQuoteResponse struct {
	Quote   QuoteResponse `json:"quote"`
	DateKey string        `json:"dateKey"`
	Origin  string        `json:"origin"`
}

func toDailyQuoteResponse(dq app.DailyQuote) DailyQuoteResponse {
	return DailyQuoteResponse{Quote: toQuoteResponse(dq.Quote), DateKey: string(dq.DateKey), Origin: dq.Origin}
}

// ViewResponse is returned after recording a view of today's quote.
type ViewResponse struct {
	DailyQuoteResponse

	Streak domain.StreakRecord `json:"streak"`
}

// SearchResponse lists matching quotes in corpus order.
type SearchResponse struct {
	Items []QuoteResponse `json:"items"`
	Count int             `json:"count"`
}

// ReloadResponse reports the corpus size after a reload.
type ReloadResponse struct {
	Quotes int `json:"quotes"`
}

// GetToday handles GET /api/v1/quotes/today.
// With force=true a new quote is picked for today and stored.
func (h *QuoteHandler) GetToday(c *gin.Context) {
	var req dto.TodayRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.RespondWithValidationErrors(c, err)
		return
	}

	c.JSON(http.StatusOK, toDailyQuoteResponse(h.quotes.GetQuoteByDay(c.Request.Context(), req.Force)))
}

// ViewToday handles POST /api/v1/quotes/today/view.
// It records a view of today's quote in the streak and the viewing history.
func (h *QuoteHandler) ViewToday(c *gin.Context) {
	ctx := c.Request.Context()
	dq := h.quotes.GetQuoteByDay(ctx, false)

	rec, err := h.engagement.RecordView(ctx, dq.Quote)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ViewResponse{DailyQuoteResponse: toDailyQuoteResponse(dq), Streak: rec})
}

// GetRandom handles GET /api/v1/quotes/random. The pick is not stored.
func (h *QuoteHandler) GetRandom(c *gin.Context) {
	c.JSON(http.StatusOK, toDailyQuoteResponse(h.quotes.GetRandomQuote(c.Request.Context())))
}

// Search handles GET /api/v1/quotes/search?q=&category=&limit=.
func (h *QuoteHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.RespondWithValidationErrors(c, err)
		return
	}

	found := h.quotes.Search(c.Request.Context(), app.SearchQuery{
		Text:     req.Query,
		Category: req.Category,
		Limit:    req.Limit,
	})

	c.JSON(http.StatusOK, SearchResponse{Items: toQuoteResponses(found), Count: len(found)})
}

// Categories handles GET /api/v1/quotes/categories.
func (h *QuoteHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.quotes.Categories(c.Request.Context())})
}

// GetByID handles GET /api/v1/quotes/:id.
func (h *QuoteHandler) GetByID(c *gin.Context) {
	id := c.Param("id")
	if err := dto.ValidateQuoteID(id); err != nil {
		dto.HandleError(c, domain.NewValidationError("id", "must be a valid quote id"))
		return
	}

	q, err := h.quotes.GetQuoteByID(c.Request.Context(), id)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuoteResponse(q))
}

// Reload handles POST /api/v1/corpus/reload.
// A reload already in progress answers 409; when every source fails the old corpus stays and 503 is returned.
func (h *QuoteHandler) Reload(c *gin.Context) {
	n, err := h.quotes.ReloadCorpus(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ReloadResponse{Quotes: n})
}

func passThrough(c *gin.Context) { c.Next() }

// forced reports whether the request asks for a new daily quote.
func forced(c *gin.Context) bool {
	force, _ := strconv.ParseBool(c.Query("force"))
	return force
}

// RegisterRoutes mounts the quote routes on rg.
// A non-nil limiter throttles forced refreshes and corpus reloads; plain reads are never limited.
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup, limiter *middleware.RateLimiter) {
	var throttleForced, throttle gin.HandlerFunc = passThrough, passThrough

	if limiter != nil {
		throttleForced = limiter.Middleware(forced)
		throttle = limiter.Middleware(nil)
	}

	quotes := rg.Group("/quotes")
	quotes.GET("/today", throttleForced, h.GetToday)
	quotes.POST("/today/view", h.ViewToday)
	quotes.GET("/random", h.GetRandom)
	quotes.GET("/search", h.Search)
	quotes.GET("/categories", h.Categories)
	quotes.GET("/:id", h.GetByID)

	rg.POST("/corpus/reload", throttle, h.Reload)
}
