package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docgen/internal/model"
	"docgen/internal/repository"
	"docgen/internal/totals"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// --- DTOs ---

// The request mirrors the JSON the form posts: a type discriminator plus
// customer, document-meta, item rows and free-text notes. Client-sent totals
// and amounts are ignored; everything derived is recomputed here.

type CustomerPayload struct {
	Name    string `json:"name"`
	Zip     string `json:"zip"`
	Address string `json:"address"`
}

type DocumentMeta struct {
	IssueDate   string `json:"issueDate"`   // YYYY-MM-DD
	DueDate     string `json:"dueDate"`     // YYYY-MM-DD, invoices only
	ReceiptItem string `json:"receiptItem"` // required for receipts
}

type ItemPayload struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type DocumentRequest struct {
	Type     string          `json:"type" binding:"required,oneof=invoice receipt quote"`
	Customer CustomerPayload `json:"customer"`
	Document DocumentMeta    `json:"document"`
	Items    []ItemPayload   `json:"items"`
	Notes    string          `json:"notes"`
}

type DocumentFilter struct {
	Search       string // partial match on customer name
	DocumentType string // invoice, receipt, quote or empty for all
	Page         int
	Limit        int
}

type ItemResponse struct {
	ItemName  string `json:"item_name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Amount    string `json:"amount"`
}

type DocumentResponse struct {
	ID              string         `json:"id,omitempty"`
	DocumentType    string         `json:"document_type"`
	DocumentNumber  int64          `json:"document_number,omitempty"`
	CustomerName    string         `json:"customer_name"`
	CustomerZip     string         `json:"customer_zip"`
	CustomerAddress string         `json:"customer_address"`
	IssueDate       string         `json:"issue_date"`
	DueDate         *string        `json:"due_date"`
	ReceiptItem     string         `json:"receipt_item"`
	Notes           string         `json:"notes"`
	Subtotal        string         `json:"subtotal"`
	TaxAmount       string         `json:"tax_amount"`
	TotalAmount     string         `json:"total_amount"`
	Items           []ItemResponse `json:"items"`
	CreatedAt       string         `json:"created_at,omitempty"`
}

// DocumentSummary is the listing row shown on the history page.
type DocumentSummary struct {
	ID             string `json:"id"`
	DocumentType   string `json:"document_type"`
	DocumentNumber int64  `json:"document_number"`
	CustomerName   string `json:"customer_name"`
	IssueDate      string `json:"issue_date"`
	TotalAmount    string `json:"total_amount"`
	CreatedAt      string `json:"created_at"`
}

// --- Interface ---

type DocumentService interface {
	Preview(ctx context.Context, req DocumentRequest) (DocumentResponse, error)
	CreateDocument(ctx context.Context, req DocumentRequest) (DocumentResponse, error)
	UpdateDocument(ctx context.Context, id string, req DocumentRequest) (DocumentResponse, error)
	GetDocument(ctx context.Context, id string) (DocumentResponse, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]DocumentSummary, int64, error)
}

type documentService struct {
	docRepo   repository.DocumentRepository
	txManager repository.TransactionManager
}

func NewDocumentService(docRepo repository.DocumentRepository, txManager repository.TransactionManager) DocumentService {
	return &documentService{docRepo: docRepo, txManager: txManager}
}

// --- Assembly & validation ---

// assembleDocument validates the raw payload and builds the aggregate with
// recomputed per-item amounts and totals. It runs before any store write or
// render; a ValidationError here aborts the whole operation.
func assembleDocument(req DocumentRequest) (*model.Document, error) {
	if !model.IsValidDocumentType(req.Type) {
		return nil, &ValidationError{Field: "type", Message: "must be invoice, receipt or quote"}
	}
	if req.Customer.Name == "" {
		return nil, &ValidationError{Field: "customer.name", Message: "customer name is required"}
	}
	if req.Document.IssueDate == "" {
		return nil, &ValidationError{Field: "document.issueDate", Message: "issue date is required"}
	}
	issueDate, err := time.Parse(dateLayout, req.Document.IssueDate)
	if err != nil {
		return nil, &ValidationError{Field: "document.issueDate", Message: "must be a valid date (YYYY-MM-DD)"}
	}

	var dueDate *time.Time
	if req.Document.DueDate != "" {
		d, err := time.Parse(dateLayout, req.Document.DueDate)
		if err != nil {
			return nil, &ValidationError{Field: "document.dueDate", Message: "must be a valid date (YYYY-MM-DD)"}
		}
		dueDate = &d
	}

	if req.Type == model.DocTypeReceipt && req.Document.ReceiptItem == "" {
		return nil, &ValidationError{Field: "document.receiptItem", Message: "receipt item is required for receipts"}
	}

	lines := make([]totals.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, totals.LineItem{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	lines = totals.Filter(lines)
	if len(lines) == 0 {
		return nil, &ValidationError{Field: "items", Message: "at least one item with a name, quantity and unit price is required"}
	}

	sums := totals.Calculate(lines)

	items := make([]model.DocumentItem, 0, len(lines))
	for i, li := range lines {
		items = append(items, model.DocumentItem{
			Position:  i + 1,
			ItemName:  li.Name,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
			Amount:    li.Amount(),
		})
	}

	return &model.Document{
		DocumentType:    req.Type,
		CustomerName:    req.Customer.Name,
		CustomerZip:     req.Customer.Zip,
		CustomerAddress: req.Customer.Address,
		IssueDate:       issueDate,
		DueDate:         dueDate,
		ReceiptItem:     req.Document.ReceiptItem,
		Notes:           req.Notes,
		Subtotal:        sums.Subtotal,
		TaxAmount:       sums.Tax,
		TotalAmount:     sums.Total,
		Items:           items,
	}, nil
}

// --- Implementation ---

// Preview validates and computes without touching the store. The response
// carries no id or document number.
func (s *documentService) Preview(_ context.Context, req DocumentRequest) (DocumentResponse, error) {
	doc, err := assembleDocument(req)
	if err != nil {
		return DocumentResponse{}, err
	}
	return toDocumentResponse(doc), nil
}

func (s *documentService) CreateDocument(ctx context.Context, req DocumentRequest) (DocumentResponse, error) {
	doc, err := assembleDocument(req)
	if err != nil {
		return DocumentResponse{}, err
	}

	// Sequence increment, document insert and item inserts share one
	// transaction: a create never leaves a document without its items,
	// and an assigned number is never observed by a failed create.
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, seqErr := s.docRepo.NextDocumentNumber(txCtx, doc.DocumentType)
		if seqErr != nil {
			return fmt.Errorf("failed to assign document number: %w", seqErr)
		}
		doc.DocumentNumber = number

		items := doc.Items
		doc.Items = nil
		if createErr := s.docRepo.Create(txCtx, doc); createErr != nil {
			return fmt.Errorf("failed to create document: %w", createErr)
		}

		for i := range items {
			items[i].DocumentID = doc.ID
		}
		if itemsErr := s.docRepo.CreateItems(txCtx, items); itemsErr != nil {
			return fmt.Errorf("failed to create document items: %w", itemsErr)
		}
		doc.Items = items
		return nil
	})
	if err != nil {
		return DocumentResponse{}, err
	}

	return toDocumentResponse(doc), nil
}

func (s *documentService) UpdateDocument(ctx context.Context, id string, req DocumentRequest) (DocumentResponse, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return DocumentResponse{}, &ValidationError{Field: "id", Message: "invalid document id"}
	}

	updated, err := assembleDocument(req)
	if err != nil {
		return DocumentResponse{}, err
	}

	var doc *model.Document
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, findErr := s.docRepo.FindByIDWithItems(txCtx, docID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return ErrDocumentNotFound
			}
			return fmt.Errorf("failed to fetch document: %w", findErr)
		}

		// id, type and assigned number survive the update; the item set
		// is replaced wholesale (delete-all-then-insert).
		existing.CustomerName = updated.CustomerName
		existing.CustomerZip = updated.CustomerZip
		existing.CustomerAddress = updated.CustomerAddress
		existing.IssueDate = updated.IssueDate
		existing.DueDate = updated.DueDate
		existing.ReceiptItem = updated.ReceiptItem
		existing.Notes = updated.Notes
		existing.Subtotal = updated.Subtotal
		existing.TaxAmount = updated.TaxAmount
		existing.TotalAmount = updated.TotalAmount
		existing.Items = nil

		if updateErr := s.docRepo.Update(txCtx, existing); updateErr != nil {
			return fmt.Errorf("failed to update document: %w", updateErr)
		}
		if delErr := s.docRepo.DeleteItemsByDocumentID(txCtx, existing.ID); delErr != nil {
			return fmt.Errorf("failed to replace document items: %w", delErr)
		}

		items := updated.Items
		for i := range items {
			items[i].DocumentID = existing.ID
		}
		if itemsErr := s.docRepo.CreateItems(txCtx, items); itemsErr != nil {
			return fmt.Errorf("failed to replace document items: %w", itemsErr)
		}

		existing.Items = items
		doc = existing
		return nil
	})
	if err != nil {
		return DocumentResponse{}, err
	}

	return toDocumentResponse(doc), nil
}

func (s *documentService) GetDocument(ctx context.Context, id string) (DocumentResponse, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return DocumentResponse{}, &ValidationError{Field: "id", Message: "invalid document id"}
	}

	doc, err := s.docRepo.FindByIDWithItems(ctx, docID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DocumentResponse{}, ErrDocumentNotFound
		}
		return DocumentResponse{}, fmt.Errorf("failed to fetch document: %w", err)
	}

	return toDocumentResponse(doc), nil
}

func (s *documentService) ListDocuments(ctx context.Context, filter DocumentFilter) ([]DocumentSummary, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	if filter.DocumentType != "" && !model.IsValidDocumentType(filter.DocumentType) {
		return nil, 0, &ValidationError{Field: "type", Message: "must be invoice, receipt or quote"}
	}

	docs, total, err := s.docRepo.List(ctx, repository.DocumentListFilter{
		Search:       filter.Search,
		DocumentType: filter.DocumentType,
		Page:         filter.Page,
		Limit:        filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch documents: %w", err)
	}

	result := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		result = append(result, DocumentSummary{
			ID:             d.ID.String(),
			DocumentType:   d.DocumentType,
			DocumentNumber: d.DocumentNumber,
			CustomerName:   d.CustomerName,
			IssueDate:      d.IssueDate.Format(dateLayout),
			TotalAmount:    d.TotalAmount.String(),
			CreatedAt:      d.CreatedAt.Format(time.RFC3339),
		})
	}
	return result, total, nil
}

// --- Mapping ---

func toDocumentResponse(doc *model.Document) DocumentResponse {
	resp := DocumentResponse{
		DocumentType:    doc.DocumentType,
		DocumentNumber:  doc.DocumentNumber,
		CustomerName:    doc.CustomerName,
		CustomerZip:     doc.CustomerZip,
		CustomerAddress: doc.CustomerAddress,
		IssueDate:       doc.IssueDate.Format(dateLayout),
		ReceiptItem:     doc.ReceiptItem,
		Notes:           doc.Notes,
		Subtotal:        doc.Subtotal.String(),
		TaxAmount:       doc.TaxAmount.String(),
		TotalAmount:     doc.TotalAmount.String(),
	}

	if doc.ID != uuid.Nil {
		resp.ID = doc.ID.String()
	}
	if doc.DueDate != nil {
		d := doc.DueDate.Format(dateLayout)
		resp.DueDate = &d
	}
	if !doc.CreatedAt.IsZero() {
		resp.CreatedAt = doc.CreatedAt.Format(time.RFC3339)
	}

	resp.Items = make([]ItemResponse, 0, len(doc.Items))
	for _, it := range doc.Items {
		resp.Items = append(resp.Items, ItemResponse{
			ItemName:  it.ItemName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.String(),
			Amount:    it.Amount.String(),
		})
	}

	return resp
}
