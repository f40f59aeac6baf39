package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/daily-quote/internal/adapters/http/dto"
	"github.com/jsamuelsen/daily-quote/internal/app"
	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// EngagementHandler serves the streak, weekly recap, viewing history and statistics.
type EngagementHandler struct {
	engagement *app.EngagementService
	stats      *app.StatsService
}

// NewEngagementHandler creates an engagement handler.
func NewEngagementHandler(engagement *app.EngagementService, stats *app.StatsService) *EngagementHandler {
	return &EngagementHandler{engagement: engagement, stats: stats}
}

// HistoryEntryResponse is one viewed quote.
type HistoryEntryResponse struct {
	Quote    QuoteResponse `json:"quote"`
	DateKey  string        `json:"dateKey"`
	ViewedAt string        `json:"viewedAt"`
}

func historyEntryID(e domain.HistoryEntry) string {
	return string(e.DateKey) + "/" + e.Quote.ID
}

// GetStreak handles GET /api/v1/streak.
func (h *EngagementHandler) GetStreak(c *gin.Context) {
	c.JSON(http.StatusOK, h.engagement.GetStreak(c.Request.Context()))
}

// RecordActivity handles POST /api/v1/streak/activity.
func (h *EngagementHandler) RecordActivity(c *gin.Context) {
	var req dto.ActivityRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondWithValidationErrors(c, err)
		return
	}

	rec, err := h.engagement.UpdateReadingStreak(c.Request.Context(), req.ActivityKind())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// GetWeeklyRecap handles GET /api/v1/recap/weekly.
func (h *EngagementHandler) GetWeeklyRecap(c *gin.Context) {
	recap, err := h.engagement.GetWeeklyRecap(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, recap)
}

// GetHistory handles GET /api/v1/history, newest first.
func (h *EngagementHandler) GetHistory(c *gin.Context) {
	var req dto.PaginationRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.RespondWithValidationErrors(c, err)
		return
	}

	page, err := dto.Page(h.engagement.History(c.Request.Context()), &req, "history", historyEntryID)
	if err != nil {
		dto.AbortWithCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.MapItems(page, func(e domain.HistoryEntry) HistoryEntryResponse {
		return HistoryEntryResponse{
			Quote:    toQuoteResponse(e.Quote),
			DateKey:  string(e.DateKey),
			ViewedAt: e.ViewedAt.Format(timeLayout),
		}
	}))
}

// GetStats handles GET /api/v1/stats.
func (h *EngagementHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.Summary(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes mounts the engagement routes on rg.
func (h *EngagementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/streak", h.GetStreak)
	rg.POST("/streak/activity", h.RecordActivity)
	rg.GET("/recap/weekly", h.GetWeeklyRecap)
	rg.GET("/history", h.GetHistory)
	rg.GET("/stats", h.GetStats)
}
