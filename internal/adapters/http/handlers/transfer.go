package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-sync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-sync/internal/app"
)

// exportFilename is the attachment name offered for collection downloads.
const exportFilename = "quotes.json"

// TransferHandler handles collection export and import endpoints.
type TransferHandler struct {
	service *app.QuoteService
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(service *app.QuoteService) *TransferHandler {
	return &TransferHandler{
		service: service,
	}
}

// ImportResponse reports what an import did.
type ImportResponse struct {
	// AddedOrReplaced counts inserted quotes; for replace mode, the new
	// collection size.
	AddedOrReplaced int `json:"addedOrReplaced"`

	// Skipped counts invalid elements dropped plus duplicates.
	Skipped int `json:"skipped"`

	// Replaced is true when the import discarded the prior collection.
	Replaced bool `json:"replaced"`

	// Total is the collection size after the import.
	Total int `json:"total"`

	// Warning is set when the imported collection could not be persisted.
	Warning string `json:"warning,omitempty"`
}

// Export handles GET /api/v1/quotes/export
// Streams the collection as a pretty-printed JSON attachment carrying
// text and category only.
//
// @Summary Export the collection
// @Produce json
// @Success 200 {array} object
// @Router /api/v1/quotes/export [get]
func (h *TransferHandler) Export(c *gin.Context) {
	data, err := h.service.ExportQuotes()
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

// Import handles POST /api/v1/quotes/import
// Accepts a multipart .json file plus a mode field (merge or replace).
// Invalid elements inside a well-formed array are dropped, not fatal.
//
// @Summary Import a quote file
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "JSON array of {text, category}"
// @Param mode formData string true "merge or replace"
// @Success 200 {object} ImportResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes/import [post]
func (h *TransferHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		dto.HandleErrorCode(c, dto.ErrorCodeBadRequest, "multipart field \"file\" is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		dto.HandleErrorCode(c, dto.ErrorCodeBadRequest, "uploaded file could not be opened")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		dto.HandleErrorCode(c, dto.ErrorCodeBadRequest, "uploaded file could not be read")
		return
	}

	result, err := h.service.ImportQuotes(c.Request.Context(), app.ImportInput{
		Filename: fileHeader.Filename,
		Data:     data,
		Mode:     app.ImportMode(c.PostForm("mode")),
	})
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	resp := ImportResponse{
		AddedOrReplaced: result.Added,
		Skipped:         result.Skipped,
		Replaced:        result.Replaced,
		Total:           result.Total,
	}
	if result.Warning != nil {
		resp.Warning = result.Warning.Error()
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterTransferRoutes registers export/import routes on the given group.
func (h *TransferHandler) RegisterTransferRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("/export", h.Export)
	quotes.POST("/import", h.Import)
}
