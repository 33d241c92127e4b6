package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/smallbiznis/launchpad/internal/domain"
	"github.com/smallbiznis/launchpad/internal/repository"
)

// CustomerService exposes customer CRUD with audit logging.
type CustomerService struct {
	customers repository.CustomerRepository
	audits    repository.AuditRepository
	snowflake *snowflake.Node
	logger    *zap.Logger
}

// NewCustomerService wires dependencies.
func NewCustomerService(customers repository.CustomerRepository, audits repository.AuditRepository, node *snowflake.Node, logger *zap.Logger) *CustomerService {
	return &CustomerService{customers: customers, audits: audits, snowflake: node, logger: logger}
}

func errCustomerNotFound() *AuthError {
	return newAuthError("customer_not_found", "Customer not found.", http.StatusNotFound)
}

func (s *CustomerService) Create(ctx context.Context, customer domain.Customer, actorID int64, ip string) (domain.Customer, error) {
	customer.ID = s.snowflake.Generate().Int64()
	created, err := s.customers.Create(ctx, customer)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	s.auditCustomer(ctx, "customer.created", created.ID, actorID, ip)
	return created, nil
}

func (s *CustomerService) Get(ctx context.Context, id int64) (domain.Customer, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Customer{}, errCustomerNotFound()
		}
		return domain.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return customer, nil
}

func (s *CustomerService) List(ctx context.Context) ([]domain.Customer, error) {
	return s.customers.List(ctx)
}

func (s *CustomerService) Update(ctx context.Context, customer domain.Customer, actorID int64, ip string) (domain.Customer, error) {
	updated, err := s.customers.Update(ctx, customer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Customer{}, errCustomerNotFound()
		}
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	s.auditCustomer(ctx, "customer.updated", updated.ID, actorID, ip)
	return updated, nil
}

func (s *CustomerService) Delete(ctx context.Context, id, actorID int64, ip string) error {
	if err := s.customers.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errCustomerNotFound()
		}
		return fmt.Errorf("delete customer: %w", err)
	}
	s.auditCustomer(ctx, "customer.deleted", id, actorID, ip)
	return nil
}

func (s *CustomerService) auditCustomer(ctx context.Context, action string, customerID, actorID int64, ip string) {
	s.logger.Info("audit",
		zap.String("event", action),
		zap.Int64("customer_id", customerID),
		zap.Int64("user_id", actorID),
		zap.String("client_ip", ip),
	)
	if s.audits == nil {
		return
	}
	entry := domain.AuditEntry{
		ID:        s.snowflake.Generate().Int64(),
		Action:    action,
		Resource:  "customer",
		Details:   fmt.Sprintf("customer %d", customerID),
		UserID:    &actorID,
		IPAddress: ip,
	}
	if err := s.audits.Insert(ctx, entry); err != nil {
		s.logger.Warn("audit insert failed", zap.String("event", action), zap.Error(err))
	}
}
