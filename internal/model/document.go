package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentType enum constants
const (
	DocTypeInvoice = "invoice"
	DocTypeReceipt = "receipt"
	DocTypeQuote   = "quote"
)

// IsValidDocumentType reports whether t is one of the supported document types.
func IsValidDocumentType(t string) bool {
	return t == DocTypeInvoice || t == DocTypeReceipt || t == DocTypeQuote
}

// Document represents one issued business document (invoice, receipt or quote)
// together with its customer snapshot and computed totals. Totals are always
// recomputed server-side from the line items before the row is written.
type Document struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DocumentType    string          `gorm:"type:varchar(10);not null;index;uniqueIndex:idx_documents_type_number" json:"document_type"` // invoice, receipt, quote
	DocumentNumber  int64           `gorm:"not null;uniqueIndex:idx_documents_type_number" json:"document_number"`                      // per-type sequence, assigned on create
	CustomerName    string          `gorm:"type:varchar(255);not null;index" json:"customer_name"`
	CustomerZip     string          `gorm:"type:varchar(20)" json:"customer_zip"`
	CustomerAddress string          `gorm:"type:varchar(255)" json:"customer_address"`
	IssueDate       time.Time       `gorm:"type:date;not null" json:"issue_date"`
	DueDate         *time.Time      `gorm:"type:date" json:"due_date"`                    // invoices only
	ReceiptItem     string          `gorm:"type:varchar(255)" json:"receipt_item"`        // required when document_type = receipt
	Notes           string          `gorm:"type:text" json:"notes"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"tax_amount"`    // floor(subtotal * 0.10)
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`  // subtotal + tax_amount
	Items           []DocumentItem  `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DocumentItem is a single billable row of a document. Amount is derived
// (quantity * unit_price) and rewritten whenever the item set is replaced.
type DocumentItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DocumentID uuid.UUID       `gorm:"type:uuid;not null;index" json:"document_id"`
	Position   int             `gorm:"not null" json:"position"` // display order within the document
	ItemName   string          `gorm:"type:varchar(255);not null" json:"item_name"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

// DocumentSequence holds the last assigned document number per document type.
// The row is locked and incremented inside the same transaction that inserts
// the document, so numbers are strictly increasing and never reused.
type DocumentSequence struct {
	DocumentType string    `gorm:"type:varchar(10);primaryKey" json:"document_type"`
	LastNumber   int64     `gorm:"not null;default:0" json:"last_number"`
	UpdatedAt    time.Time `json:"updated_at"`
}
