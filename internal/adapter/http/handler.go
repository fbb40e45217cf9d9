// Package http exposes the account engine and the customer directory as a
// JSON API on gin.
package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/account"
	"github.com/simaogato/ledger-backend/internal/usecase/customer"
	"github.com/simaogato/ledger-backend/internal/usecase/summary"
)

// OpenAccountRequest is the body of POST /api/v1/accounts
type OpenAccountRequest struct {
	CustomerID     string           `json:"customer_id" binding:"required"`
	Type           string           `json:"type" binding:"required"`
	OpeningBalance *decimal.Decimal `json:"opening_balance"`
	AccountNumber  string           `json:"account_number"`
	InterestRate   *decimal.Decimal `json:"interest_rate"`
	OverdraftLimit *decimal.Decimal `json:"overdraft_limit"`
}

// AmountRequest is the body of deposit and withdraw
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// TransferRequest is the body of POST /api/v1/accounts/transfer
type TransferRequest struct {
	FromAccountID string          `json:"from_account_id" binding:"required"`
	ToAccountID   string          `json:"to_account_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note"`
}

// AccountResponse is the JSON view of an account
type AccountResponse struct {
	ID             string  `json:"id"`
	AccountNumber  string  `json:"account_number"`
	CustomerID     string  `json:"customer_id"`
	Type           string  `json:"type"`
	Balance        string  `json:"balance"`
	Available      string  `json:"available"`
	InterestRate   *string `json:"interest_rate"`
	OverdraftLimit *string `json:"overdraft_limit"`
	Status         string  `json:"status"`
	OpenedAt       string  `json:"opened_at"`
}

// TransactionResponse is the JSON view of a ledger entry
type TransactionResponse struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Type      string `json:"type"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
	Note      string `json:"note"`
}

// SummaryResponse is the JSON view of a customer summary
type SummaryResponse struct {
	CustomerID     string            `json:"customer_id"`
	AccountCount   int               `json:"account_count"`
	TotalBalance   string            `json:"total_balance"`
	TotalAvailable string            `json:"total_available"`
	BalanceByType  map[string]string `json:"balance_by_type"`
}

// Handler serves the account and customer endpoints
type Handler struct {
	AccountService  *account.AccountService
	SummaryService  *summary.SummaryService
	CustomerService *customer.CustomerService
}

// NewHandler creates a new Handler instance
func NewHandler(accountService *account.AccountService, summaryService *summary.SummaryService, customerService *customer.CustomerService) *Handler {
	return &Handler{
		AccountService:  accountService,
		SummaryService:  summaryService,
		CustomerService: customerService,
	}
}

// OpenAccount handles POST /api/v1/accounts
func (h *Handler) OpenAccount(c *gin.Context) {
	var req OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customerID, ok := parseID(c, "customer_id", req.CustomerID)
	if !ok {
		return
	}

	acc, err := h.AccountService.OpenAccount(c.Request.Context(), account.OpenAccountInput{
		CustomerID:     customerID,
		Type:           domain.AccountType(req.Type),
		OpeningBalance: req.OpeningBalance,
		AccountNumber:  req.AccountNumber,
		InterestRate:   req.InterestRate,
		OverdraftLimit: req.OverdraftLimit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toAccountResponse(acc))
}

// GetAccount handles GET /api/v1/accounts/:id
func (h *Handler) GetAccount(c *gin.Context) {
	id, ok := parseID(c, "id", c.Param("id"))
	if !ok {
		return
	}

	acc, err := h.AccountService.GetAccount(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAccountResponse(acc))
}

// Deposit handles POST /api/v1/accounts/:id/deposit
func (h *Handler) Deposit(c *gin.Context) {
	id, ok := parseID(c, "id", c.Param("id"))
	if !ok {
		return
	}

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.AccountService.Deposit(c.Request.Context(), id, req.Amount, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAccountResponse(acc))
}

// Withdraw handles POST /api/v1/accounts/:id/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	id, ok := parseID(c, "id", c.Param("id"))
	if !ok {
		return
	}

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.AccountService.Withdraw(c.Request.Context(), id, req.Amount, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAccountResponse(acc))
}

// Transfer handles POST /api/v1/accounts/transfer
func (h *Handler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fromID, ok := parseID(c, "from_account_id", req.FromAccountID)
	if !ok {
		return
	}
	toID, ok := parseID(c, "to_account_id", req.ToAccountID)
	if !ok {
		return
	}

	if err := h.AccountService.Transfer(c.Request.Context(), fromID, toID, req.Amount, req.Note); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListTransactions handles GET /api/v1/accounts/:id/transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	id, ok := parseID(c, "id", c.Param("id"))
	if !ok {
		return
	}

	txs, err := h.AccountService.ListTransactions(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, TransactionResponse{
			ID:        tx.ID.String(),
			AccountID: tx.AccountID.String(),
			Type:      string(tx.Type),
			Amount:    domain.FormatMoney(tx.Amount),
			Timestamp: tx.Timestamp.UTC().Format(time.RFC3339Nano),
			Note:      tx.Note,
		})
	}

	c.JSON(http.StatusOK, out)
}

// ListAccountsForCustomer handles GET /api/v1/accounts/by-customer/:customerId
func (h *Handler) ListAccountsForCustomer(c *gin.Context) {
	customerID, ok := parseID(c, "customerId", c.Param("customerId"))
	if !ok {
		return
	}

	accounts, err := h.AccountService.ListAccountsForCustomer(c.Request.Context(), customerID)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, toAccountResponse(acc))
	}

	c.JSON(http.StatusOK, out)
}

// GetCustomerSummary handles GET /api/v1/accounts/by-customer/:customerId/summary
func (h *Handler) GetCustomerSummary(c *gin.Context) {
	customerID, ok := parseID(c, "customerId", c.Param("customerId"))
	if !ok {
		return
	}

	result, err := h.SummaryService.GetCustomerSummary(c.Request.Context(), customerID)
	if err != nil {
		writeError(c, err)
		return
	}

	byType := make(map[string]string, len(result.ByType))
	for accountType, total := range result.ByType {
		byType[string(accountType)] = domain.FormatMoney(total)
	}

	c.JSON(http.StatusOK, SummaryResponse{
		CustomerID:     result.CustomerID.String(),
		AccountCount:   result.AccountCount,
		TotalBalance:   domain.FormatMoney(result.TotalBalance),
		TotalAvailable: domain.FormatMoney(result.TotalAvailable),
		BalanceByType:  byType,
	})
}

// CloseAccount handles DELETE /api/v1/accounts/:id
func (h *Handler) CloseAccount(c *gin.Context) {
	id, ok := parseID(c, "id", c.Param("id"))
	if !ok {
		return
	}

	if err := h.AccountService.CloseAccount(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context, name, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ": " + err.Error()})
		return uuid.Nil, false
	}
	return id, true
}

func toAccountResponse(acc *domain.Account) AccountResponse {
	resp := AccountResponse{
		ID:            acc.ID.String(),
		AccountNumber: acc.AccountNumber,
		CustomerID:    acc.CustomerID.String(),
		Type:          string(acc.Type),
		Balance:       domain.FormatMoney(acc.Balance),
		Available:     domain.FormatMoney(acc.Available()),
		Status:        string(acc.Status),
		OpenedAt:      acc.OpenedAt.UTC().Format(time.RFC3339Nano),
	}
	if acc.InterestRate != nil {
		v := acc.InterestRate.String()
		resp.InterestRate = &v
	}
	if acc.OverdraftLimit != nil {
		v := domain.FormatMoney(*acc.OverdraftLimit)
		resp.OverdraftLimit = &v
	}
	return resp
}

// statusFor maps domain error kinds to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("Error handling %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(code, gin.H{"error": "internal error"})
		return
	}
	if code == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
