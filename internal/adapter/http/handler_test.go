package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/ledger-backend/internal/adapter/repository/memory"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/account"
	"github.com/simaogato/ledger-backend/internal/usecase/accountnumber"
	"github.com/simaogato/ledger-backend/internal/usecase/customer"
	"github.com/simaogato/ledger-backend/internal/usecase/ledger"
	"github.com/simaogato/ledger-backend/internal/usecase/summary"
)

const testToken = "test-token"

type testAPI struct {
	router     *gin.Engine
	customerID uuid.UUID
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	owner := &domain.Customer{FirstName: "Bob"}
	require.NoError(t, store.Customers().Create(context.Background(), owner))

	accountService := account.NewAccountService(
		store,
		store.Customers(),
		ledger.NewRecorder(store.Transactions()),
		accountnumber.NewGenerator(store.Accounts(), nil),
	)
	handler := NewHandler(accountService, summary.NewSummaryService(store.Accounts()), customer.NewCustomerService(store.Customers()))

	return &testAPI{router: NewRouter(handler, testToken), customerID: owner.ID}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *testAPI) open(t *testing.T, body map[string]interface{}) AccountResponse {
	t.Helper()
	body["customer_id"] = a.customerID.String()
	w := a.do(t, http.MethodPost, "/api/v1/accounts", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[AccountResponse](t, w)
}

func TestHandler_AccountLifecycle(t *testing.T) {
	api := newTestAPI(t)

	// Numeric and string amounts are both accepted
	checking := api.open(t, map[string]interface{}{"type": "CURRENT", "opening_balance": 100, "overdraft_limit": "100.00"})
	assert.Equal(t, "100.00", checking.Balance)
	assert.Equal(t, "200.00", checking.Available)
	require.NotNil(t, checking.OverdraftLimit)
	assert.Equal(t, "100.00", *checking.OverdraftLimit)
	assert.Len(t, checking.AccountNumber, domain.AccountNumberLength)

	savings := api.open(t, map[string]interface{}{"type": "SAVINGS", "interest_rate": "0.025"})
	assert.Equal(t, "0.00", savings.Balance)
	require.NotNil(t, savings.InterestRate)
	assert.Nil(t, savings.OverdraftLimit)

	w := api.do(t, http.MethodPost, "/api/v1/accounts/"+checking.ID+"/withdraw", map[string]interface{}{"amount": "180.00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "-80.00", decode[AccountResponse](t, w).Balance)

	w = api.do(t, http.MethodPost, "/api/v1/accounts/"+checking.ID+"/deposit", map[string]interface{}{"amount": "80.00", "note": "payday"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.00", decode[AccountResponse](t, w).Balance)

	w = api.do(t, http.MethodPost, "/api/v1/accounts/transfer", map[string]interface{}{
		"from_account_id": checking.ID, "to_account_id": savings.ID, "amount": "40.00",
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/api/v1/accounts/"+savings.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "40.00", decode[AccountResponse](t, w).Balance)

	w = api.do(t, http.MethodGet, "/api/v1/accounts/"+checking.ID+"/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	txs := decode[[]TransactionResponse](t, w)
	require.Len(t, txs, 4)
	assert.Equal(t, "TRANSFER_OUT", txs[0].Type)
	assert.Equal(t, "DEPOSIT", txs[1].Type)
	assert.Equal(t, "payday", txs[1].Note)
	assert.Equal(t, "WITHDRAWAL", txs[2].Type)
	assert.Equal(t, "OPENING_DEPOSIT", txs[3].Type)

	w = api.do(t, http.MethodGet, "/api/v1/accounts/by-customer/"+api.customerID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]AccountResponse](t, w), 2)

	w = api.do(t, http.MethodGet, "/api/v1/accounts/by-customer/"+api.customerID.String()+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sum := decode[SummaryResponse](t, w)
	assert.Equal(t, 2, sum.AccountCount)
	assert.Equal(t, "0.00", sum.TotalBalance)
	assert.Equal(t, "100.00", sum.TotalAvailable)
	assert.Equal(t, "-40.00", sum.BalanceByType["CURRENT"])
	assert.Equal(t, "40.00", sum.BalanceByType["SAVINGS"])

	w = api.do(t, http.MethodDelete, "/api/v1/accounts/"+savings.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/accounts/transfer", map[string]interface{}{
		"from_account_id": savings.ID, "to_account_id": checking.ID, "amount": "40.00",
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodDelete, "/api/v1/accounts/"+savings.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/accounts/"+savings.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ErrorStatuses(t *testing.T) {
	api := newTestAPI(t)
	acc := api.open(t, map[string]interface{}{"type": "SAVINGS", "opening_balance": "10.00"})

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{name: "Malformed JSON", method: http.MethodPost, path: "/api/v1/accounts", body: "{", status: http.StatusBadRequest},
		{name: "Missing customer", method: http.MethodPost, path: "/api/v1/accounts", body: map[string]interface{}{"type": "SAVINGS"}, status: http.StatusBadRequest},
		{name: "Unknown customer", method: http.MethodPost, path: "/api/v1/accounts", body: map[string]interface{}{"customer_id": uuid.NewString(), "type": "SAVINGS"}, status: http.StatusBadRequest},
		{name: "Malformed account id", method: http.MethodGet, path: "/api/v1/accounts/abc", status: http.StatusBadRequest},
		{name: "Unknown account", method: http.MethodGet, path: "/api/v1/accounts/" + uuid.NewString(), status: http.StatusNotFound},
		{name: "Zero deposit", method: http.MethodPost, path: "/api/v1/accounts/" + acc.ID + "/deposit", body: map[string]interface{}{"amount": "0"}, status: http.StatusBadRequest},
		{name: "Malformed amount", method: http.MethodPost, path: "/api/v1/accounts/" + acc.ID + "/deposit", body: map[string]interface{}{"amount": "lots"}, status: http.StatusBadRequest},
		{name: "Insufficient funds", method: http.MethodPost, path: "/api/v1/accounts/" + acc.ID + "/withdraw", body: map[string]interface{}{"amount": "10.01"}, status: http.StatusConflict},
		{name: "Close with balance", method: http.MethodDelete, path: "/api/v1/accounts/" + acc.ID, status: http.StatusConflict},
		{name: "Transfer to self", method: http.MethodPost, path: "/api/v1/accounts/transfer", body: map[string]interface{}{"from_account_id": acc.ID, "to_account_id": acc.ID, "amount": "1"}, status: http.StatusBadRequest},
		{name: "Transfer to unknown", method: http.MethodPost, path: "/api/v1/accounts/transfer", body: map[string]interface{}{"from_account_id": acc.ID, "to_account_id": uuid.NewString(), "amount": "1"}, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "Missing header", header: "", status: http.StatusUnauthorized},
		{name: "Wrong token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "Bare token", header: testToken, status: http.StatusOK},
		{name: "Bearer token", header: "Bearer " + testToken, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/by-customer/"+api.customerID.String(), nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			api.router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	// Health check needs no token
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrInvalidArgument))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrInsufficientFunds))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrConflict))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(domain.ErrLockTimeout))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.ErrAccountNumberExhausted))
}
