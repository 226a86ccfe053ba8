package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docgen/internal/model"
	"docgen/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateCustomerRequest struct {
	Name    string `json:"name" binding:"required"`
	Zip     string `json:"zip"`
	Address string `json:"address"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name"`
	Zip     *string `json:"zip"`
	Address *string `json:"address"`
}

type CustomerResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Zip       string `json:"zip"`
	Address   string `json:"address"`
	CreatedAt string `json:"created_at"`
}

// --- Interface ---

type CustomerService interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (CustomerResponse, error)
	UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest) (CustomerResponse, error)
	DeleteCustomer(ctx context.Context, id string) error
	GetCustomer(ctx context.Context, id string) (CustomerResponse, error)
	ListCustomers(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
}

func NewCustomerService(customerRepo repository.CustomerRepository) CustomerService {
	return &customerService{customerRepo: customerRepo}
}

// --- Implementation ---

func (s *customerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (CustomerResponse, error) {
	customer := model.Customer{
		Name:    req.Name,
		Zip:     req.Zip,
		Address: req.Address,
	}

	if err := s.customerRepo.Create(ctx, &customer); err != nil {
		return CustomerResponse{}, fmt.Errorf("failed to create customer: %w", err)
	}

	return toCustomerResponse(customer), nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest) (CustomerResponse, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return CustomerResponse{}, &ValidationError{Field: "id", Message: "invalid customer id"}
	}

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CustomerResponse{}, ErrCustomerNotFound
		}
		return CustomerResponse{}, fmt.Errorf("failed to fetch customer: %w", err)
	}

	if req.Name != nil {
		if *req.Name == "" {
			return CustomerResponse{}, &ValidationError{Field: "name", Message: "customer name cannot be empty"}
		}
		customer.Name = *req.Name
	}
	if req.Zip != nil {
		customer.Zip = *req.Zip
	}
	if req.Address != nil {
		customer.Address = *req.Address
	}

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return CustomerResponse{}, fmt.Errorf("failed to update customer: %w", err)
	}

	return toCustomerResponse(*customer), nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id string) error {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return &ValidationError{Field: "id", Message: "invalid customer id"}
	}

	if _, err := s.customerRepo.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCustomerNotFound
		}
		return fmt.Errorf("failed to fetch customer: %w", err)
	}

	if err := s.customerRepo.Delete(ctx, customerID); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (CustomerResponse, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return CustomerResponse{}, &ValidationError{Field: "id", Message: "invalid customer id"}
	}

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CustomerResponse{}, ErrCustomerNotFound
		}
		return CustomerResponse{}, fmt.Errorf("failed to fetch customer: %w", err)
	}

	return toCustomerResponse(*customer), nil
}

func (s *customerService) ListCustomers(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	customers, total, err := s.customerRepo.List(ctx, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch customers: %w", err)
	}

	result := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		result = append(result, toCustomerResponse(c))
	}
	return result, total, nil
}

// --- Mapping ---

func toCustomerResponse(c model.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Zip:       c.Zip,
		Address:   c.Address,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}
