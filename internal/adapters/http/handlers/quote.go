package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-sync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-sync/internal/app"
	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// QuoteHandler handles quote collection HTTP endpoints.
type QuoteHandler struct {
	service *app.QuoteService
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(service *app.QuoteService) *QuoteHandler {
	return &QuoteHandler{
		service: service,
	}
}

// QuoteResponse is the HTTP response structure for a quote.
type QuoteResponse struct {
	Text            string `json:"text"`
	Category        string `json:"category"`
	ServerID        int64  `json:"serverId,omitempty"`
	ServerTimestamp int64  `json:"serverTimestamp,omitempty"`
}

// toQuoteResponse converts a domain Quote to an HTTP response.
func toQuoteResponse(q *domain.Quote) QuoteResponse {
	return QuoteResponse{
		Text:            q.Text,
		Category:        q.Category,
		ServerID:        q.ServerID,
		ServerTimestamp: q.ServerTimestamp,
	}
}

// toQuoteResponses converts a list of domain quotes.
func toQuoteResponses(quotes []*domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, toQuoteResponse(q))
	}

	return out
}

// AddQuoteResponse reports the result of adding a quote.
type AddQuoteResponse struct {
	Added         QuoteResponse `json:"added"`
	IsNewCategory bool          `json:"isNewCategory"`

	// Warning is set when the grown collection could not be persisted.
	// The quote is still held in memory.
	Warning string `json:"warning,omitempty"`
}

// CategoriesResponse lists the known categories, sentinel first.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// AddQuote handles POST /api/v1/quotes
// Adds a user quote to the collection.
//
// @Summary Add a quote
// @Description Adds a quote to the collection under the given category
// @Tags quotes
// @Accept json
// @Produce json
// @Success 200 {object} AddQuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes [post]
func (h *QuoteHandler) AddQuote(c *gin.Context) {
	var req dto.AddQuoteRequest

	err := dto.BindAndValidate(c, &req)
	if err != nil {
		handleBindingError(c, err)
		return
	}

	result, err := h.service.AddQuote(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	resp := AddQuoteResponse{
		Added:         toQuoteResponse(result.Quote),
		IsNewCategory: result.NewCategory,
	}
	if result.Warning != nil {
		resp.Warning = result.Warning.Error()
	}

	c.JSON(http.StatusOK, resp)
}

// ListQuotes handles GET /api/v1/quotes
// Returns a cursor-paginated view of the collection, optionally filtered
// by category. The selected category is remembered as the widget's filter.
//
// @Summary List quotes
// @Description Lists quotes with cursor pagination and optional category filter
// @Tags quotes
// @Produce json
// @Param category query string false "Category filter"
// @Param cursor query string false "Opaque pagination cursor"
// @Param limit query int false "Page size (1-100, default 20)"
// @Success 200 {object} dto.PaginatedResponse[QuoteResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes [get]
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var req dto.ListQuotesRequest

	err := dto.BindQueryAndValidate(c, &req)
	if err != nil {
		handleBindingError(c, err)
		return
	}

	offset, err := req.Position(req.Category)
	if err != nil {
		dto.HandleErrorCode(c, dto.ErrorCodeBadRequest, "invalid cursor")
		return
	}

	quotes := h.service.ListQuotes(c.Request.Context(), req.Category)
	page := pageOf(quotes, offset, req.GetLimit())

	c.JSON(http.StatusOK, dto.NewPaginatedResponse(
		toQuoteResponses(page),
		req.Category,
		offset,
		len(quotes),
	))
}

// RandomQuote handles GET /api/v1/quotes/random
// Returns a random quote from the filtered pool, distinct from the
// session's last-displayed quote whenever the pool allows it.
//
// @Summary Get a random quote
// @Description Picks a random quote, avoiding an immediate repeat
// @Tags quotes
// @Produce json
// @Param category query string false "Category filter"
// @Success 200 {object} QuoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quotes/random [get]
func (h *QuoteHandler) RandomQuote(c *gin.Context) {
	quote, err := h.service.RandomQuote(c.Request.Context(), c.Query("category"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuoteResponse(quote))
}

// Categories handles GET /api/v1/categories
// Returns all known categories with the "all" sentinel first.
func (h *QuoteHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, CategoriesResponse{
		Categories: h.service.Categories(),
	})
}

// RegisterQuoteRoutes registers quote routes on the given router group.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.POST("", h.AddQuote)
	quotes.GET("", h.ListQuotes)
	quotes.GET("/random", h.RandomQuote)

	rg.GET("/categories", h.Categories)
}

// pageOf slices one page out of the filtered view, clamped to its bounds.
func pageOf(quotes []*domain.Quote, offset, limit int) []*domain.Quote {
	if offset >= len(quotes) {
		return nil
	}

	end := offset + limit
	if end > len(quotes) {
		end = len(quotes)
	}

	return quotes[offset:end]
}

// handleBindingError maps request binding and tag validation failures to a
// 400 with field details when available.
func handleBindingError(c *gin.Context, err error) {
	if dto.IsValidationError(err) {
		dto.HandleValidationErrors(c, dto.ValidationErrors(err))
		return
	}

	dto.HandleErrorCode(c, dto.ErrorCodeBadRequest, "malformed request")
}
