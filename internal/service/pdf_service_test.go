package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"docgen/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func yenDec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testCompany() CompanyProfile {
	return CompanyProfile{
		Name:    "LEXIA",
		Zip:     "447-0817",
		Address: "1-45 Kawabata-cho, Hekinan, Aichi",
		Tel:     "090-1742-3456",
		Email:   "lexia0web@gmail.com",
		Bank:    "Aichi Chuo Shinkumi Bank, Minami branch",
		Account: "Account holder: Masato Saito",
	}
}

func TestRenderPayloadAllTypes(t *testing.T) {
	svc := NewPDFService(newMockDocumentRepo(), testCompany())

	for _, docType := range []string{model.DocTypeInvoice, model.DocTypeReceipt, model.DocTypeQuote} {
		t.Run(docType, func(t *testing.T) {
			out, filename, err := svc.RenderPayload(context.Background(), validRequest(docType))
			if err != nil {
				t.Fatalf("RenderPayload() failed: %v", err)
			}
			if !bytes.HasPrefix(out, []byte("%PDF")) {
				t.Errorf("output does not start with %%PDF header")
			}
			if !strings.HasSuffix(filename, ".pdf") {
				t.Errorf("filename = %q, want .pdf suffix", filename)
			}
		})
	}
}

func TestRenderPayloadValidates(t *testing.T) {
	svc := NewPDFService(newMockDocumentRepo(), testCompany())

	req := validRequest(model.DocTypeReceipt)
	req.Document.ReceiptItem = ""

	if _, _, err := svc.RenderPayload(context.Background(), req); !IsValidation(err) {
		t.Errorf("invalid payload rendered: error = %v, want ValidationError", err)
	}
}

func TestRenderDocumentNotFound(t *testing.T) {
	svc := NewPDFService(newMockDocumentRepo(), testCompany())

	_, _, err := svc.RenderDocument(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("render of missing id: error = %v, want ErrDocumentNotFound", err)
	}
}

func TestRenderPersistedDocument(t *testing.T) {
	repo := newMockDocumentRepo()
	docSvc := NewDocumentService(repo, &mockTxManager{})
	pdfSvc := NewPDFService(repo, testCompany())
	ctx := context.Background()

	created, err := docSvc.CreateDocument(ctx, validRequest(model.DocTypeInvoice))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	out, filename, err := pdfSvc.RenderDocument(ctx, created.ID)
	if err != nil {
		t.Fatalf("RenderDocument() failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not start with %%PDF header")
	}
	if !strings.Contains(filename, "invoice") {
		t.Errorf("filename = %q, want the document type in it", filename)
	}

	// Rendering leaves the store untouched
	got, err := docSvc.GetDocument(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after render failed: %v", err)
	}
	if got.TotalAmount != created.TotalAmount {
		t.Errorf("render mutated the document: total %s -> %s", created.TotalAmount, got.TotalAmount)
	}
}

func TestFormatYen(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{143000, "143,000"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		if got := formatYen(yenDec(tt.in)); got != tt.want {
			t.Errorf("formatYen(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
