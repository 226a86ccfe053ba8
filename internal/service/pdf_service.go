package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"docgen/internal/model"
	"docgen/internal/repository"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CompanyProfile is the issuer block printed on every document.
type CompanyProfile struct {
	Name    string
	Zip     string
	Address string
	Tel     string
	Email   string
	Bank    string
	Account string
}

// LoadCompanyProfile reads the issuer details from the environment, falling
// back to the built-in defaults.
func LoadCompanyProfile() CompanyProfile {
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	return CompanyProfile{
		Name:    get("COMPANY_NAME", "LEXIA"),
		Zip:     get("COMPANY_ZIP", "447-0817"),
		Address: get("COMPANY_ADDRESS", "1-45 Kawabata-cho, Hekinan, Aichi"),
		Tel:     get("COMPANY_TEL", "090-1742-3456"),
		Email:   get("COMPANY_EMAIL", "lexia0web@gmail.com"),
		Bank:    get("COMPANY_BANK", "Aichi Chuo Shinkumi Bank, Minami branch"),
		Account: get("COMPANY_ACCOUNT", "Account holder: Masato Saito"),
	}
}

var documentTitles = map[string]string{
	model.DocTypeInvoice: "INVOICE",
	model.DocTypeReceipt: "RECEIPT",
	model.DocTypeQuote:   "QUOTATION",
}

// --- Interface ---

type PDFService interface {
	// RenderDocument renders a persisted document. Returns the PDF bytes and
	// a suggested filename.
	RenderDocument(ctx context.Context, id string) ([]byte, string, error)
	// RenderPayload renders an unsaved payload after the same validation a
	// create would run. Nothing is persisted.
	RenderPayload(ctx context.Context, req DocumentRequest) ([]byte, string, error)
}

type pdfService struct {
	docRepo repository.DocumentRepository
	company CompanyProfile
}

func NewPDFService(docRepo repository.DocumentRepository, company CompanyProfile) PDFService {
	return &pdfService{docRepo: docRepo, company: company}
}

// --- Implementation ---

func (s *pdfService) RenderDocument(ctx context.Context, id string) ([]byte, string, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return nil, "", &ValidationError{Field: "id", Message: "invalid document id"}
	}

	doc, err := s.docRepo.FindByIDWithItems(ctx, docID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrDocumentNotFound
		}
		return nil, "", fmt.Errorf("failed to fetch document: %w", err)
	}

	out, err := s.render(doc)
	if err != nil {
		return nil, "", err
	}
	return out, pdfFilename(doc), nil
}

func (s *pdfService) RenderPayload(_ context.Context, req DocumentRequest) ([]byte, string, error) {
	doc, err := assembleDocument(req)
	if err != nil {
		return nil, "", err
	}

	out, err := s.render(doc)
	if err != nil {
		return nil, "", err
	}
	return out, pdfFilename(doc), nil
}

func pdfFilename(doc *model.Document) string {
	title := strings.ToLower(documentTitles[doc.DocumentType])
	name := strings.ReplaceAll(doc.CustomerName, " ", "_")
	return fmt.Sprintf("%s_%s_%s.pdf", title, name, doc.IssueDate.Format(dateLayout))
}

// render draws the A4 document sheet. It reads the aggregate only; totals are
// taken as stored, which by construction equal what the calculator produced.
func (s *pdfService) render(doc *model.Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// Title and meta header
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(110, 12, documentTitles[doc.DocumentType], "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	meta := "Issue date: " + doc.IssueDate.Format(dateLayout)
	if doc.DocumentNumber > 0 {
		meta = fmt.Sprintf("No. %d    %s", doc.DocumentNumber, meta)
	}
	pdf.CellFormat(60, 12, meta, "", 1, "R", false, 0, "")
	pdf.Ln(6)

	// Customer block
	if doc.CustomerZip != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, doc.CustomerZip, "", 1, "L", false, 0, "")
	}
	if doc.CustomerAddress != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, doc.CustomerAddress, "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, doc.CustomerName, "B", 1, "L", false, 0, "")
	pdf.Ln(6)

	// Total banner
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, "Total amount", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, "JPY "+formatYen(doc.TotalAmount), "", 1, "L", false, 0, "")
	if doc.DocumentType == model.DocTypeReceipt {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, "In payment of: "+doc.ReceiptItem, "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, "Received with thanks.", "", 1, "L", false, 0, "")
	}
	if doc.DocumentType == model.DocTypeInvoice && doc.DueDate != nil {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, "Payment due: "+doc.DueDate.Format(dateLayout), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Items table, padded to six rows like the printed sheet
	pdf.SetFillColor(0, 0, 0)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(90, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Unit price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 9)
	for _, it := range doc.Items {
		pdf.CellFormat(90, 8, it.ItemName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 8, formatYen(it.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, formatYen(it.Amount), "1", 1, "R", false, 0, "")
	}
	for i := len(doc.Items); i < 6; i++ {
		pdf.CellFormat(90, 8, "", "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, "", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 8, "", "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, "", "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Totals summary
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(110, 7, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, formatYen(doc.Subtotal), "", 1, "R", false, 0, "")
	pdf.CellFormat(110, 7, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "Tax (10%)", "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, formatYen(doc.TaxAmount), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(110, 8, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, "Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, formatYen(doc.TotalAmount), "T", 1, "R", false, 0, "")
	pdf.Ln(8)

	// Notes and issuer footer
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(0, 5, "Notes", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	notes := doc.Notes
	if notes == "" {
		if doc.DocumentType == model.DocTypeInvoice {
			notes = "Bank transfer fees are to be borne by the payer."
		} else {
			notes = "Thank you for your business."
		}
	}
	pdf.MultiCell(100, 5, notes, "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, s.company.Name, "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 4, s.company.Zip+" "+s.company.Address, "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 4, "TEL: "+s.company.Tel, "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 4, s.company.Email, "", 1, "R", false, 0, "")

	if doc.DocumentType == model.DocTypeInvoice {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, 5, "Bank details", "T", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, s.company.Bank, "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, s.company.Account, "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// formatYen renders a whole-yen decimal with thousands separators.
func formatYen(d decimal.Decimal) string {
	s := d.Truncate(0).String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
