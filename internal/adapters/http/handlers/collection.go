package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/daily-quote/internal/adapters/http/dto"
	"github.com/jsamuelsen/daily-quote/internal/app"
	"github.com/jsamuelsen/daily-quote/internal/domain"
)

const timeLayout = time.RFC3339

// CollectionHandler serves the saved and liked lists.
type CollectionHandler struct {
	collections *app.CollectionService
}

// NewCollectionHandler creates a collection handler.
func NewCollectionHandler(collections *app.CollectionService) *CollectionHandler {
	return &CollectionHandler{collections: collections}
}

// CollectedQuoteResponse is a quote in a collection with the time it was added.
type CollectedQuoteResponse struct {
	Quote     QuoteResponse `json:"quote"`
	CreatedAt string        `json:"createdAt"`
}

// CollectionChangeResponse reports an add or remove. Changed is false when the quote was already saved.
type CollectionChangeResponse struct {
	Collection string        `json:"collection"`
	Quote      QuoteResponse `json:"quote"`
	Changed    bool          `json:"changed"`
	Size       int           `json:"size"`
}

func toChangeResponse(r app.CollectionResult) CollectionChangeResponse {
	return CollectionChangeResponse{
		Collection: string(r.Collection),
		Quote:      toQuoteResponse(r.Quote),
		Changed:    r.Changed,
		Size:       r.Size,
	}
}

type mutation func(ctx context.Context, quoteID string) (app.CollectionResult, error)

func (h *CollectionHandler) list(name domain.CollectionName) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.PaginationRequest
		if err := dto.BindQueryAndValidate(c, &req); err != nil {
			dto.RespondWithValidationErrors(c, err)
			return
		}

		page, err := dto.Page(h.collections.List(c.Request.Context(), name), &req, string(name),
			func(e domain.CollectedQuote) string { return e.Quote.ID })
		if err != nil {
			dto.AbortWithCode(c, dto.ErrorCodeBadRequest, err.Error())
			return
		}

		c.JSON(http.StatusOK, dto.MapItems(page, func(e domain.CollectedQuote) CollectedQuoteResponse {
			return CollectedQuoteResponse{Quote: toQuoteResponse(e.Quote), CreatedAt: e.CreatedAt.Format(timeLayout)}
		}))
	}
}

func (h *CollectionHandler) add(op mutation) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.CollectionRequest
		if err := dto.BindAndValidate(c, &req); err != nil {
			dto.RespondWithValidationErrors(c, err)
			return
		}

		res, err := op(c.Request.Context(), req.QuoteID)
		if err != nil {
			dto.HandleError(c, err)
			return
		}

		status := http.StatusOK
		if res.Changed {
			status = http.StatusCreated
		}

		c.JSON(status, toChangeResponse(res))
	}
}

func (h *CollectionHandler) remove(op mutation) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := dto.ValidateQuoteID(id); err != nil {
			dto.HandleError(c, domain.NewValidationError("id", "must be a valid quote id"))
			return
		}

		res, err := op(c.Request.Context(), id)
		if err != nil {
			dto.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, toChangeResponse(res))
	}
}

// RegisterRoutes mounts GET, POST and DELETE for /collections/saved and /collections/liked.
// Adding to saved also records a save activity in the streak.
func (h *CollectionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	saved := rg.Group("/collections/saved")
	saved.GET("", h.list(domain.CollectionSaved))
	saved.POST("", h.add(h.collections.Save))
	saved.DELETE("/:id", h.remove(h.collections.Unsave))

	liked := rg.Group("/collections/liked")
	liked.GET("", h.list(domain.CollectionLiked))
	liked.POST("", h.add(h.collections.Like))
	liked.DELETE("/:id", h.remove(h.collections.Unlike))
}
