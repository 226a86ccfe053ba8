package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"docgen/internal/model"
	"docgen/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- Mocks ---

// mockTxManager runs the function directly; the in-memory repo below has no
// real transaction boundary to manage.
type mockTxManager struct{}

func (m *mockTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type mockDocumentRepo struct {
	docs      map[uuid.UUID]model.Document
	items     map[uuid.UUID][]model.DocumentItem
	sequences map[string]int64
	failNext  error // returned by the next mutating call when set
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{
		docs:      make(map[uuid.UUID]model.Document),
		items:     make(map[uuid.UUID][]model.DocumentItem),
		sequences: make(map[string]int64),
	}
}

func (m *mockDocumentRepo) Create(_ context.Context, doc *model.Document) error {
	if m.failNext != nil {
		return m.failNext
	}
	doc.ID = uuid.New()
	m.docs[doc.ID] = *doc
	return nil
}

func (m *mockDocumentRepo) Update(_ context.Context, doc *model.Document) error {
	if m.failNext != nil {
		return m.failNext
	}
	if _, ok := m.docs[doc.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.docs[doc.ID] = *doc
	return nil
}

func (m *mockDocumentRepo) FindByIDWithItems(_ context.Context, id uuid.UUID) (*model.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	doc.Items = append([]model.DocumentItem(nil), m.items[id]...)
	sort.Slice(doc.Items, func(i, j int) bool { return doc.Items[i].Position < doc.Items[j].Position })
	return &doc, nil
}

func (m *mockDocumentRepo) List(_ context.Context, filter repository.DocumentListFilter) ([]model.Document, int64, error) {
	var out []model.Document
	for _, doc := range m.docs {
		if filter.DocumentType != "" && doc.DocumentType != filter.DocumentType {
			continue
		}
		out = append(out, doc)
	}
	return out, int64(len(out)), nil
}

func (m *mockDocumentRepo) DeleteItemsByDocumentID(_ context.Context, documentID uuid.UUID) error {
	delete(m.items, documentID)
	return nil
}

func (m *mockDocumentRepo) CreateItems(_ context.Context, items []model.DocumentItem) error {
	for _, it := range items {
		m.items[it.DocumentID] = append(m.items[it.DocumentID], it)
	}
	return nil
}

func (m *mockDocumentRepo) NextDocumentNumber(_ context.Context, documentType string) (int64, error) {
	m.sequences[documentType]++
	return m.sequences[documentType], nil
}

func newTestService(repo *mockDocumentRepo) DocumentService {
	return NewDocumentService(repo, &mockTxManager{})
}

func validRequest(docType string) DocumentRequest {
	req := DocumentRequest{
		Type:     docType,
		Customer: CustomerPayload{Name: "Mino Construction", Zip: "447-0056", Address: "Hekinan, Aichi"},
		Document: DocumentMeta{IssueDate: "2025-04-01"},
		Items: []ItemPayload{
			{Name: "Widget", Quantity: 3, UnitPrice: decimal.NewFromInt(1000)},
		},
	}
	if docType == model.DocTypeReceipt {
		req.Document.ReceiptItem = "Web development"
	}
	return req
}

// --- Validation ---

func TestPreviewValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*DocumentRequest)
		wantField string
	}{
		{
			name:      "missing customer name",
			mutate:    func(r *DocumentRequest) { r.Customer.Name = "" },
			wantField: "customer.name",
		},
		{
			name:      "missing issue date",
			mutate:    func(r *DocumentRequest) { r.Document.IssueDate = "" },
			wantField: "document.issueDate",
		},
		{
			name:      "malformed issue date",
			mutate:    func(r *DocumentRequest) { r.Document.IssueDate = "01-04-2025" },
			wantField: "document.issueDate",
		},
		{
			name:      "malformed due date",
			mutate:    func(r *DocumentRequest) { r.Document.DueDate = "someday" },
			wantField: "document.dueDate",
		},
		{
			name: "no items at all",
			mutate: func(r *DocumentRequest) {
				r.Items = nil
			},
			wantField: "items",
		},
		{
			name: "only invalid rows",
			mutate: func(r *DocumentRequest) {
				r.Items = []ItemPayload{
					{Name: "", Quantity: 1, UnitPrice: decimal.NewFromInt(100)},
					{Name: "Free", Quantity: 1, UnitPrice: decimal.Zero},
					{Name: "None", Quantity: 0, UnitPrice: decimal.NewFromInt(100)},
				}
			},
			wantField: "items",
		},
	}

	svc := newTestService(newMockDocumentRepo())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest(model.DocTypeInvoice)
			tt.mutate(&req)

			_, err := svc.Preview(context.Background(), req)

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Preview() error = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("ValidationError.Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestReceiptRequiresReceiptItem(t *testing.T) {
	svc := newTestService(newMockDocumentRepo())

	req := validRequest(model.DocTypeReceipt)
	req.Document.ReceiptItem = ""

	_, err := svc.Preview(context.Background(), req)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "document.receiptItem" {
		t.Fatalf("receipt without receiptItem: error = %v, want ValidationError on document.receiptItem", err)
	}

	// The identical payload as an invoice passes.
	req.Type = model.DocTypeInvoice
	if _, err := svc.Preview(context.Background(), req); err != nil {
		t.Fatalf("invoice with same fields failed: %v", err)
	}
}

// --- Totals through the service ---

func TestPreviewComputesTotals(t *testing.T) {
	svc := newTestService(newMockDocumentRepo())

	resp, err := svc.Preview(context.Background(), validRequest(model.DocTypeInvoice))
	if err != nil {
		t.Fatalf("Preview() failed: %v", err)
	}

	if resp.Subtotal != "3000" || resp.TaxAmount != "300" || resp.TotalAmount != "3300" {
		t.Errorf("totals = %s/%s/%s, want 3000/300/3300", resp.Subtotal, resp.TaxAmount, resp.TotalAmount)
	}
	if resp.ID != "" || resp.DocumentNumber != 0 {
		t.Errorf("preview assigned id %q / number %d, want none", resp.ID, resp.DocumentNumber)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	repo := newMockDocumentRepo()
	svc := newTestService(repo)

	if _, err := svc.Preview(context.Background(), validRequest(model.DocTypeQuote)); err != nil {
		t.Fatalf("Preview() failed: %v", err)
	}
	if len(repo.docs) != 0 || len(repo.items) != 0 {
		t.Errorf("preview wrote to the store: %d docs, %d item sets", len(repo.docs), len(repo.items))
	}
}

// --- Create ---

func TestCreateDocumentNumbersArePerType(t *testing.T) {
	svc := newTestService(newMockDocumentRepo())
	ctx := context.Background()

	first, err := svc.CreateDocument(ctx, validRequest(model.DocTypeInvoice))
	if err != nil {
		t.Fatalf("create #1 failed: %v", err)
	}
	second, err := svc.CreateDocument(ctx, validRequest(model.DocTypeInvoice))
	if err != nil {
		t.Fatalf("create #2 failed: %v", err)
	}
	receipt, err := svc.CreateDocument(ctx, validRequest(model.DocTypeReceipt))
	if err != nil {
		t.Fatalf("create receipt failed: %v", err)
	}

	if first.DocumentNumber != 1 || second.DocumentNumber != 2 {
		t.Errorf("invoice numbers = %d, %d, want 1, 2", first.DocumentNumber, second.DocumentNumber)
	}
	if receipt.DocumentNumber != 1 {
		t.Errorf("receipt number = %d, want 1 (counters are per type)", receipt.DocumentNumber)
	}
}

func TestCreateDocumentFiltersInvalidRows(t *testing.T) {
	repo := newMockDocumentRepo()
	svc := newTestService(repo)

	req := validRequest(model.DocTypeInvoice)
	req.Items = append(req.Items,
		ItemPayload{Name: "", Quantity: 5, UnitPrice: decimal.NewFromInt(100)},
		ItemPayload{Name: "Gadget", Quantity: 2, UnitPrice: decimal.NewFromInt(750)},
	)

	resp, err := svc.CreateDocument(context.Background(), req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if len(resp.Items) != 2 {
		t.Fatalf("kept %d items, want 2 (blank row dropped)", len(resp.Items))
	}
	// 3*1000 + 2*750 = 4500, tax 450
	if resp.Subtotal != "4500" || resp.TaxAmount != "450" || resp.TotalAmount != "4950" {
		t.Errorf("totals = %s/%s/%s, want 4500/450/4950", resp.Subtotal, resp.TaxAmount, resp.TotalAmount)
	}

	stored, err := svc.GetDocument(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("get after create failed: %v", err)
	}
	if len(stored.Items) != 2 {
		t.Errorf("stored %d items, want 2", len(stored.Items))
	}
}

func TestCreateDocumentStoreFailure(t *testing.T) {
	repo := newMockDocumentRepo()
	repo.failNext = errors.New("connection reset")
	svc := newTestService(repo)

	_, err := svc.CreateDocument(context.Background(), validRequest(model.DocTypeInvoice))
	if err == nil {
		t.Fatal("expected store error to surface")
	}
	if IsValidation(err) {
		t.Errorf("store failure reported as validation error: %v", err)
	}
	if len(repo.docs) != 0 {
		t.Errorf("failed create left %d documents behind", len(repo.docs))
	}
}

// --- Update ---

func TestUpdateDocumentReplacesItems(t *testing.T) {
	svc := newTestService(newMockDocumentRepo())
	ctx := context.Background()

	created, err := svc.CreateDocument(ctx, validRequest(model.DocTypeInvoice))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	update := validRequest(model.DocTypeInvoice)
	update.Items = []ItemPayload{
		{Name: "Design", Quantity: 1, UnitPrice: decimal.NewFromInt(50000)},
		{Name: "Coding", Quantity: 10, UnitPrice: decimal.NewFromInt(8000)},
	}

	updated, err := svc.UpdateDocument(ctx, created.ID, update)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if updated.ID != created.ID {
		t.Errorf("id changed on update: %s -> %s", created.ID, updated.ID)
	}
	if updated.DocumentNumber != created.DocumentNumber {
		t.Errorf("document number changed on update: %d -> %d", created.DocumentNumber, updated.DocumentNumber)
	}

	got, err := svc.GetDocument(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after update failed: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("after update %d items, want exactly the 2 new ones", len(got.Items))
	}
	if got.Items[0].ItemName != "Design" || got.Items[1].ItemName != "Coding" {
		t.Errorf("items after update = %q, %q; old rows must be gone", got.Items[0].ItemName, got.Items[1].ItemName)
	}
	if got.TotalAmount != "143000" {
		t.Errorf("total after update = %s, want 143000", got.TotalAmount)
	}
}

func TestUpdateDocumentNotFound(t *testing.T) {
	svc := newTestService(newMockDocumentRepo())

	_, err := svc.UpdateDocument(context.Background(), uuid.NewString(), validRequest(model.DocTypeInvoice))
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("update of missing id: error = %v, want ErrDocumentNotFound", err)
	}
}

func TestUpdateValidationRunsBeforeStore(t *testing.T) {
	repo := newMockDocumentRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.CreateDocument(ctx, validRequest(model.DocTypeInvoice))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	bad := validRequest(model.DocTypeInvoice)
	bad.Customer.Name = ""
	if _, err := svc.UpdateDocument(ctx, created.ID, bad); !IsValidation(err) {
		t.Fatalf("update with invalid payload: error = %v, want ValidationError", err)
	}

	// Original document untouched
	got, err := svc.GetDocument(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.CustomerName != "Mino Construction" {
		t.Errorf("customer name mutated by failed update: %q", got.CustomerName)
	}
}

// --- Get / List ---

func TestGetDocumentNotFound(t *testing.T) {
	svc := newTestService(newMockDocumentRepo())

	_, err := svc.GetDocument(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("get of missing id: error = %v, want ErrDocumentNotFound", err)
	}
}

func TestListDocumentsFiltersByType(t *testing.T) {
	svc := newTestService(newMockDocumentRepo())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.CreateDocument(ctx, validRequest(model.DocTypeInvoice)); err != nil {
			t.Fatalf("create invoice failed: %v", err)
		}
	}
	if _, err := svc.CreateDocument(ctx, validRequest(model.DocTypeQuote)); err != nil {
		t.Fatalf("create quote failed: %v", err)
	}

	invoices, total, err := svc.ListDocuments(ctx, DocumentFilter{DocumentType: model.DocTypeInvoice})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(invoices) != 2 {
		t.Errorf("invoice listing = %d rows (total %d), want 2", len(invoices), total)
	}

	all, total, err := svc.ListDocuments(ctx, DocumentFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("unfiltered listing = %d rows (total %d), want 3", len(all), total)
	}

	if _, _, err := svc.ListDocuments(ctx, DocumentFilter{DocumentType: "memo"}); !IsValidation(err) {
		t.Errorf("unknown type filter: error = %v, want ValidationError", err)
	}
}
