package repository

import (
	"context"

	"docgen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, customer *model.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	List(ctx context.Context, search string, page, limit int) ([]model.Customer, int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Save(customer).Error
}

func (r *customerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Customer{}).Error
}

func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) List(ctx context.Context, search string, page, limit int) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Customer{})
	if search != "" {
		query = query.Where("name ILIKE ? OR address ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Model(&model.Customer{})
	if search != "" {
		fetchQuery = fetchQuery.Where("name ILIKE ? OR address ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if err := fetchQuery.Order("name ASC").Offset(offset).Limit(limit).Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}
