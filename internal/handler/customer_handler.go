package handler

import (
	"net/http"

	"docgen/internal/service"
	"docgen/pkg/pagination"
	"docgen/pkg/response"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService service.CustomerService
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	customers := router.Group("/api/customers")
	{
		customers.POST("", h.CreateCustomer)
		customers.GET("", h.ListCustomers)
		customers.GET("/:id", h.GetCustomer)
		customers.PUT("/:id", h.UpdateCustomer)
		customers.DELETE("/:id", h.DeleteCustomer)
	}
}

// CreateCustomer saves a customer the form can prefill from
// @Summary      Create customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCustomerRequest  true  "Customer payload"
// @Success      201      {object}  response.Envelope{data=service.CustomerResponse}
// @Failure      400      {object}  response.Envelope
// @Router       /api/customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.OK(customer))
}

// ListCustomers returns a paginated customer listing with optional search
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 10)"
// @Param        search  query     string  false  "Partial match on name or address"
// @Success      200     {object}  response.Envelope{data=object}
// @Failure      500     {object}  response.Envelope
// @Router       /api/customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	params := pagination.Parse(c)

	customers, total, err := h.customerService.ListCustomers(c.Request.Context(), c.Query("search"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.OK(gin.H{
		"customers":  customers,
		"pagination": pagination.NewMeta(params, total),
	}))
}

// GetCustomer returns one customer
// @Summary      Get customer
// @Tags         customers
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Envelope{data=service.CustomerResponse}
// @Failure      404  {object}  response.Envelope
// @Router       /api/customers/{id} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.customerService.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.OK(customer))
}

// UpdateCustomer edits a saved customer
// @Summary      Update customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Customer ID"
// @Param        payload  body      service.UpdateCustomerRequest  true  "Customer payload"
// @Success      200      {object}  response.Envelope{data=service.CustomerResponse}
// @Failure      404      {object}  response.Envelope
// @Router       /api/customers/{id} [put]
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	var req service.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.OK(customer))
}

// DeleteCustomer removes a saved customer
// @Summary      Delete customer
// @Tags         customers
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Envelope
// @Failure      404  {object}  response.Envelope
// @Router       /api/customers/{id} [delete]
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	if err := h.customerService.DeleteCustomer(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.OK(gin.H{"deleted": true}))
}
