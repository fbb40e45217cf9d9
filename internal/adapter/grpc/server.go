package grpc

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/account"
	"github.com/simaogato/ledger-backend/internal/usecase/customer"
	"github.com/simaogato/ledger-backend/internal/usecase/summary"
)

// Server implements the LedgerService gRPC server
type Server struct {
	AccountService  *account.AccountService
	SummaryService  *summary.SummaryService
	CustomerService *customer.CustomerService
}

// NewServer creates a new gRPC server instance
func NewServer(accountService *account.AccountService, summaryService *summary.SummaryService, customerService *customer.CustomerService) *Server {
	return &Server{
		AccountService:  accountService,
		SummaryService:  summaryService,
		CustomerService: customerService,
	}
}

// OpenAccount handles the OpenAccount RPC
func (s *Server) OpenAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	customerID, err := uuidField(req, "customer_id")
	if err != nil {
		return nil, err
	}

	openingBalance, err := optionalDecimalField(req, "opening_balance")
	if err != nil {
		return nil, err
	}
	interestRate, err := optionalDecimalField(req, "interest_rate")
	if err != nil {
		return nil, err
	}
	overdraftLimit, err := optionalDecimalField(req, "overdraft_limit")
	if err != nil {
		return nil, err
	}

	input := account.OpenAccountInput{
		CustomerID:     customerID,
		Type:           domain.AccountType(stringField(req, "type")),
		OpeningBalance: openingBalance,
		AccountNumber:  stringField(req, "account_number"),
		InterestRate:   interestRate,
		OverdraftLimit: overdraftLimit,
	}

	acc, err := s.AccountService.OpenAccount(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	return accountToStruct(acc)
}

// GetAccount handles the GetAccount RPC
func (s *Server) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "account_id")
	if err != nil {
		return nil, err
	}

	acc, err := s.AccountService.GetAccount(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	return accountToStruct(acc)
}

// Deposit handles the Deposit RPC
func (s *Server) Deposit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "account_id")
	if err != nil {
		return nil, err
	}
	amount, err := decimalField(req, "amount")
	if err != nil {
		return nil, err
	}

	acc, err := s.AccountService.Deposit(ctx, id, amount, stringField(req, "note"))
	if err != nil {
		return nil, mapError(err)
	}

	return accountToStruct(acc)
}

// Withdraw handles the Withdraw RPC
func (s *Server) Withdraw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "account_id")
	if err != nil {
		return nil, err
	}
	amount, err := decimalField(req, "amount")
	if err != nil {
		return nil, err
	}

	acc, err := s.AccountService.Withdraw(ctx, id, amount, stringField(req, "note"))
	if err != nil {
		return nil, mapError(err)
	}

	return accountToStruct(acc)
}

// Transfer handles the Transfer RPC
func (s *Server) Transfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fromID, err := uuidField(req, "from_account_id")
	if err != nil {
		return nil, err
	}
	toID, err := uuidField(req, "to_account_id")
	if err != nil {
		return nil, err
	}
	amount, err := decimalField(req, "amount")
	if err != nil {
		return nil, err
	}

	if err := s.AccountService.Transfer(ctx, fromID, toID, amount, stringField(req, "note")); err != nil {
		return nil, mapError(err)
	}

	return &structpb.Struct{}, nil
}

// CloseAccount handles the CloseAccount RPC
func (s *Server) CloseAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "account_id")
	if err != nil {
		return nil, err
	}

	if err := s.AccountService.CloseAccount(ctx, id); err != nil {
		return nil, mapError(err)
	}

	return &structpb.Struct{}, nil
}

// ListTransactions handles the ListTransactions RPC
func (s *Server) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "account_id")
	if err != nil {
		return nil, err
	}

	txs, err := s.AccountService.ListTransactions(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]interface{}, 0, len(txs))
	for _, tx := range txs {
		items = append(items, transactionToMap(tx))
	}

	return newStruct(map[string]interface{}{"transactions": items})
}

// ListAccountsForCustomer handles the ListAccountsForCustomer RPC
func (s *Server) ListAccountsForCustomer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	customerID, err := uuidField(req, "customer_id")
	if err != nil {
		return nil, err
	}

	accounts, err := s.AccountService.ListAccountsForCustomer(ctx, customerID)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]interface{}, 0, len(accounts))
	for _, acc := range accounts {
		items = append(items, accountToMap(acc))
	}

	return newStruct(map[string]interface{}{"accounts": items})
}

// GetCustomerSummary handles the GetCustomerSummary RPC
func (s *Server) GetCustomerSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	customerID, err := uuidField(req, "customer_id")
	if err != nil {
		return nil, err
	}

	result, err := s.SummaryService.GetCustomerSummary(ctx, customerID)
	if err != nil {
		return nil, mapError(err)
	}

	byType := make(map[string]interface{}, len(result.ByType))
	for accountType, total := range result.ByType {
		byType[string(accountType)] = domain.FormatMoney(total)
	}

	return newStruct(map[string]interface{}{
		"customer_id":     result.CustomerID.String(),
		"account_count":   float64(result.AccountCount),
		"total_balance":   domain.FormatMoney(result.TotalBalance),
		"total_available": domain.FormatMoney(result.TotalAvailable),
		"balance_by_type": byType,
	})
}

// RegisterCustomer handles the RegisterCustomer RPC
func (s *Server) RegisterCustomer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	created, err := s.CustomerService.RegisterCustomer(ctx, customer.RegisterCustomerInput{
		FirstName: stringField(req, "first_name"),
		LastName:  stringField(req, "last_name"),
		Email:     stringField(req, "email"),
		Phone:     stringField(req, "phone"),
	})
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(customerToMap(created))
}

// GetCustomer handles the GetCustomer RPC
func (s *Server) GetCustomer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuidField(req, "customer_id")
	if err != nil {
		return nil, err
	}

	found, err := s.CustomerService.GetCustomer(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(customerToMap(found))
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func uuidField(req *structpb.Struct, name string) (uuid.UUID, error) {
	raw := stringField(req, name)
	if raw == "" {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return id, nil
}

// Amounts travel as decimal strings so no precision is lost in float64
func decimalField(req *structpb.Struct, name string) (decimal.Decimal, error) {
	raw := stringField(req, name)
	if raw == "" {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s is required as a decimal string", name)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return v, nil
}

func optionalDecimalField(req *structpb.Struct, name string) (*decimal.Decimal, error) {
	if stringField(req, name) == "" {
		return nil, nil
	}
	v, err := decimalField(req, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func accountToMap(acc *domain.Account) map[string]interface{} {
	m := map[string]interface{}{
		"id":              acc.ID.String(),
		"account_number":  acc.AccountNumber,
		"customer_id":     acc.CustomerID.String(),
		"type":            string(acc.Type),
		"balance":         domain.FormatMoney(acc.Balance),
		"available":       domain.FormatMoney(acc.Available()),
		"status":          string(acc.Status),
		"opened_at":       acc.OpenedAt.UTC().Format(time.RFC3339Nano),
		"interest_rate":   nil,
		"overdraft_limit": nil,
	}
	if acc.InterestRate != nil {
		m["interest_rate"] = acc.InterestRate.String()
	}
	if acc.OverdraftLimit != nil {
		m["overdraft_limit"] = domain.FormatMoney(*acc.OverdraftLimit)
	}
	return m
}

func accountToStruct(acc *domain.Account) (*structpb.Struct, error) {
	return newStruct(accountToMap(acc))
}

func customerToMap(c *domain.Customer) map[string]interface{} {
	return map[string]interface{}{
		"id":         c.ID.String(),
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"email":      c.Email,
		"phone":      c.Phone,
		"created_at": c.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func transactionToMap(tx *domain.Transaction) map[string]interface{} {
	return map[string]interface{}{
		"id":         tx.ID.String(),
		"account_id": tx.AccountID.String(),
		"type":       string(tx.Type),
		"amount":     domain.FormatMoney(tx.Amount),
		"timestamp":  tx.Timestamp.UTC().Format(time.RFC3339Nano),
		"note":       tx.Note,
	}
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return st, nil
}

const internalErrorMessage = "internal error"

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrConflict):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrLockTimeout):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	// Default to Internal error for unknown errors; the cause stays in the log
	log.Printf("Internal error: %v", err)
	return status.Error(codes.Internal, internalErrorMessage)
}
