package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/launchpad/internal/domain"
	"github.com/smallbiznis/launchpad/internal/http/middleware"
	"github.com/smallbiznis/launchpad/internal/service"
)

// CustomerHandler exposes customer CRUD endpoints.
type CustomerHandler struct {
	Customers *service.CustomerService
}

// NewCustomerHandler creates the handler.
func NewCustomerHandler(customers *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{Customers: customers}
}

type customerRequest struct {
	BusinessName string `json:"business_name"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	TaxID        string `json:"tax_id"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}

func (req customerRequest) toDomain() domain.Customer {
	return domain.Customer{
		BusinessName: req.BusinessName,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		TaxID:        req.TaxID,
		Email:        req.Email,
		Phone:        req.Phone,
	}
}

func (h *CustomerHandler) Create(c *gin.Context) {
	actorID, _ := middleware.GetUserID(c)

	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}

	created, err := h.Customers.Create(c.Request.Context(), req.toDomain(), actorID, c.ClientIP())
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *CustomerHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid customer id."})
		return
	}

	customer, err := h.Customers.Get(c.Request.Context(), id)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) List(c *gin.Context) {
	customers, err := h.Customers.List(c.Request.Context())
	if err != nil {
		respondAuthError(c, err)
		return
	}
	if customers == nil {
		customers = []domain.Customer{}
	}
	c.JSON(http.StatusOK, customers)
}

func (h *CustomerHandler) Update(c *gin.Context) {
	actorID, _ := middleware.GetUserID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid customer id."})
		return
	}

	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}

	customer := req.toDomain()
	customer.ID = id
	updated, err := h.Customers.Update(c.Request.Context(), customer, actorID, c.ClientIP())
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *CustomerHandler) Delete(c *gin.Context) {
	actorID, _ := middleware.GetUserID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid customer id."})
		return
	}

	if err := h.Customers.Delete(c.Request.Context(), id, actorID, c.ClientIP()); err != nil {
		respondAuthError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
