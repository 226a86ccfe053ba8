package handler

import (
	"errors"
	"net/http"

	"docgen/internal/service"
	"docgen/internal/websocket"
	"docgen/pkg/pagination"
	"docgen/pkg/response"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	documentService service.DocumentService
	pdfService      service.PDFService
	hub             *websocket.Hub
}

func NewDocumentHandler(documentService service.DocumentService, pdfService service.PDFService, hub *websocket.Hub) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		pdfService:      pdfService,
		hub:             hub,
	}
}

func (h *DocumentHandler) RegisterRoutes(router *gin.RouterGroup) {
	documents := router.Group("/api/documents")
	{
		documents.POST("", h.CreateDocument)
		documents.GET("", h.ListDocuments)
		documents.POST("/preview", h.PreviewDocument)
		documents.POST("/pdf", h.GeneratePDF)
		documents.GET("/:id", h.GetDocument)
		documents.PUT("/:id", h.UpdateDocument)
		documents.GET("/:id/pdf", h.DownloadPDF)
	}
}

// respondError translates service failures into the envelope + status code.
// Validation problems and unknown ids get their own statuses; everything
// else is a generic retryable store failure.
func respondError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, response.Error(ve.Error()))
	case errors.Is(err, service.ErrDocumentNotFound), errors.Is(err, service.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, response.Error(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
	}
}

// CreateDocument persists a new document with a freshly assigned number
// @Summary      Create document
// @Description  Validates the payload, computes totals and persists the document with the next per-type document number
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        payload  body      service.DocumentRequest  true  "Document payload"
// @Success      201      {object}  response.Envelope{data=service.DocumentResponse}
// @Failure      400      {object}  response.Envelope
// @Router       /api/documents [post]
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req service.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	doc, err := h.documentService.CreateDocument(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Publish(websocket.DocumentEvent{
		Event:          "document_created",
		ID:             doc.ID,
		DocumentType:   doc.DocumentType,
		DocumentNumber: doc.DocumentNumber,
	})

	c.JSON(http.StatusCreated, response.OK(doc))
}

// UpdateDocument replaces a document's fields and items, keeping its number
// @Summary      Update document
// @Description  Replaces customer fields, totals and the full item set; id and document number are preserved
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Document ID"
// @Param        payload  body      service.DocumentRequest  true  "Document payload"
// @Success      200      {object}  response.Envelope{data=service.DocumentResponse}
// @Failure      400      {object}  response.Envelope
// @Failure      404      {object}  response.Envelope
// @Router       /api/documents/{id} [put]
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	var req service.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	doc, err := h.documentService.UpdateDocument(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Publish(websocket.DocumentEvent{
		Event:          "document_updated",
		ID:             doc.ID,
		DocumentType:   doc.DocumentType,
		DocumentNumber: doc.DocumentNumber,
	})

	c.JSON(http.StatusOK, response.OK(doc))
}

// GetDocument returns one document with its items
// @Summary      Get document
// @Tags         documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  response.Envelope{data=service.DocumentResponse}
// @Failure      404  {object}  response.Envelope
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, err := h.documentService.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.OK(doc))
}

// ListDocuments returns a paginated, filterable document history
// @Summary      List documents
// @Description  Paginated listing ordered by creation time, newest first; optional customer-name search and type filter
// @Tags         documents
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 10)"
// @Param        search  query     string  false  "Partial match on customer name"
// @Param        type    query     string  false  "Document type (invoice, receipt, quote)"
// @Success      200     {object}  response.Envelope{data=object}
// @Failure      500     {object}  response.Envelope
// @Router       /api/documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	params := pagination.Parse(c)

	docs, total, err := h.documentService.ListDocuments(c.Request.Context(), service.DocumentFilter{
		Search:       c.Query("search"),
		DocumentType: c.Query("type"),
		Page:         params.Page,
		Limit:        params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.OK(gin.H{
		"documents":  docs,
		"pagination": pagination.NewMeta(params, total),
	}))
}

// PreviewDocument validates and computes totals without persisting
// @Summary      Preview document
// @Description  Runs the same validation and totals computation as create, returning the assembled document without saving it
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        payload  body      service.DocumentRequest  true  "Document payload"
// @Success      200      {object}  response.Envelope{data=service.DocumentResponse}
// @Failure      400      {object}  response.Envelope
// @Router       /api/documents/preview [post]
func (h *DocumentHandler) PreviewDocument(c *gin.Context) {
	var req service.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	doc, err := h.documentService.Preview(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.OK(doc))
}

// DownloadPDF renders a persisted document as a PDF attachment
// @Summary      Download document PDF
// @Tags         documents
// @Produce      application/pdf
// @Param        id   path      string  true  "Document ID"
// @Success      200  {file}    file
// @Failure      404  {object}  response.Envelope
// @Router       /api/documents/{id}/pdf [get]
func (h *DocumentHandler) DownloadPDF(c *gin.Context) {
	out, filename, err := h.pdfService.RenderDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", out)
}

// GeneratePDF renders an unsaved payload as a PDF attachment
// @Summary      Generate PDF from payload
// @Description  Validates the payload and renders it as a PDF without persisting anything
// @Tags         documents
// @Accept       json
// @Produce      application/pdf
// @Param        payload  body      service.DocumentRequest  true  "Document payload"
// @Success      200      {file}    file
// @Failure      400      {object}  response.Envelope
// @Router       /api/documents/pdf [post]
func (h *DocumentHandler) GeneratePDF(c *gin.Context) {
	var req service.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	out, filename, err := h.pdfService.RenderPayload(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", out)
}
