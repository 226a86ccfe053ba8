package repository

import (
	"context"

	"docgen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentListFilter narrows the paginated document listing.
type DocumentListFilter struct {
	Search       string // partial match on customer_name
	DocumentType string // invoice, receipt, quote or empty for all
	Page         int
	Limit        int
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	Update(ctx context.Context, doc *model.Document) error
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Document, error)
	List(ctx context.Context, filter DocumentListFilter) ([]model.Document, int64, error)
	DeleteItemsByDocumentID(ctx context.Context, documentID uuid.UUID) error
	CreateItems(ctx context.Context, items []model.DocumentItem) error
	NextDocumentNumber(ctx context.Context, documentType string) (int64, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	// Items are inserted separately so the same path serves create and update
	return GetDB(ctx, r.db).Omit("Items").Create(doc).Error
}

func (r *documentRepository) Update(ctx context.Context, doc *model.Document) error {
	return GetDB(ctx, r.db).Omit("Items").Save(doc).Error
}

func (r *documentRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&doc, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) List(ctx context.Context, filter DocumentListFilter) ([]model.Document, int64, error) {
	var docs []model.Document
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Document{})
	if filter.DocumentType != "" {
		query = query.Where("document_type = ?", filter.DocumentType)
	}
	if filter.Search != "" {
		query = query.Where("customer_name ILIKE ?", "%"+filter.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	fetchQuery := db.Model(&model.Document{})
	if filter.DocumentType != "" {
		fetchQuery = fetchQuery.Where("document_type = ?", filter.DocumentType)
	}
	if filter.Search != "" {
		fetchQuery = fetchQuery.Where("customer_name ILIKE ?", "%"+filter.Search+"%")
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&docs).Error; err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

func (r *documentRepository) DeleteItemsByDocumentID(ctx context.Context, documentID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("document_id = ?", documentID).Delete(&model.DocumentItem{}).Error
}

func (r *documentRepository) CreateItems(ctx context.Context, items []model.DocumentItem) error {
	if len(items) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&items).Error
}

// NextDocumentNumber increments and returns the per-type sequence. It must be
// called inside RunInTx: the sequence row is taken with FOR UPDATE so two
// concurrent creates of the same type cannot observe the same number.
func (r *documentRepository) NextDocumentNumber(ctx context.Context, documentType string) (int64, error) {
	db := GetDB(ctx, r.db)

	var seq model.DocumentSequence
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(model.DocumentSequence{DocumentType: documentType}).
		FirstOrCreate(&seq).Error
	if err != nil {
		return 0, err
	}

	seq.LastNumber++
	if err := db.Save(&seq).Error; err != nil {
		return 0, err
	}

	return seq.LastNumber, nil
}
