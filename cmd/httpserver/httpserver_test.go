package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/integrationtest"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

type client struct {
	t      *testing.T
	server *httpserver.Server
	maker  tokenpkg.Maker
	userID uuid.UUID
}

func newClient(t *testing.T, server *httpserver.Server) client {
	t.Helper()

	maker, err := tokenpkg.NewMaker(server.Config.TokenType, server.Config.TokenSymmetricKey)
	require.NoError(t, err)

	return client{t: t, server: server, maker: maker, userID: uuid.New()}
}

type result struct {
	Account      domain.Account       `json:"account"`
	Transaction  domain.Transaction   `json:"transaction"`
	Message      string               `json:"message"`
	Transactions []domain.Transaction `json:"transactions"`
}

// do sends the request and decodes the response. It is safe to call from
// several goroutines.
func (c client) do(method, path string, body any) (int, result, web.Response, error) {
	var buf bytes.Buffer

	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, result{}, web.Response{}, err
		}
	}

	req, err := http.NewRequest(method, path, &buf)
	if err != nil {
		return 0, result{}, web.Response{}, err
	}

	err = middleware.AddAuthorization(req, c.maker, middleware.AuthTypeBearer, c.userID, c.server.Config.AccessTokenDuration)
	if err != nil {
		return 0, result{}, web.Response{}, err
	}

	recorder := httptest.NewRecorder()
	c.server.ServeHTTP(recorder, req)

	var data result
	res := web.Response{Data: &data}

	if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
		return 0, result{}, web.Response{}, err
	}

	return recorder.Code, data, res, nil
}

func (c client) mustDo(method, path string, body any, wantStatus int) (result, web.Response) {
	c.t.Helper()

	code, data, res, err := c.do(method, path, body)
	require.NoError(c.t, err)
	require.Equal(c.t, wantStatus, code, "%s %s: %+v", method, path, res)

	return data, res
}

func (c client) open(owner, deposit string) domain.Account {
	c.t.Helper()

	data, _ := c.mustDo(http.MethodPost, "/accounts", map[string]string{
		"owner_name":      owner,
		"initial_deposit": deposit,
	}, http.StatusCreated)

	return data.Account
}

func TestLedgerFlow(t *testing.T) {
	server := integrationtest.SetupMemoryServer(t)
	alice := newClient(t, server)
	bob := newClient(t, server)

	a := alice.open("Alice", "0")
	b := bob.open("Bob", "0")

	require.True(t, a.Balance.IsZero())

	data, _ := alice.mustDo(http.MethodPost, "/transactions/deposit", map[string]string{"amount": "100"}, http.StatusOK)
	assert.Equal(t, "Deposit successful", data.Message)
	assert.Equal(t, domain.TransactionDeposit, data.Transaction.Type)
	assert.True(t, data.Transaction.ResultingBalance.Equal(decimal.NewFromInt(100)))

	_, res := alice.mustDo(http.MethodPost, "/transactions/withdraw", map[string]string{"amount": "150"}, http.StatusBadRequest)
	assert.Equal(t, domain.ErrInsufficientFunds.Error(), res.Error)
	assert.Equal(t, "INSUFFICIENT_FUNDS", res.Kind)

	data, _ = alice.mustDo(http.MethodPost, "/transactions/transfer", map[string]string{
		"recipient_account_number": b.AccountNumber,
		"amount":                   "40",
	}, http.StatusOK)
	assert.Equal(t, "Funds transferred successfully", data.Message)
	assert.Equal(t, domain.TransactionTransferOut, data.Transaction.Type)
	assert.Equal(t, b.AccountNumber, data.Transaction.CounterpartyAccountNumber)

	data, _ = alice.mustDo(http.MethodGet, "/accounts", nil, http.StatusOK)
	assert.True(t, data.Account.Balance.Equal(decimal.NewFromInt(60)), "alice balance %s", data.Account.Balance)

	data, _ = bob.mustDo(http.MethodGet, "/accounts/"+b.AccountNumber, nil, http.StatusOK)
	assert.True(t, data.Account.Balance.Equal(decimal.NewFromInt(40)), "bob balance %s", data.Account.Balance)

	data, _ = alice.mustDo(http.MethodGet, "/transactions", nil, http.StatusOK)
	require.Len(t, data.Transactions, 2)
	assert.Equal(t, domain.TransactionTransferOut, data.Transactions[0].Type)
	assert.Equal(t, domain.TransactionDeposit, data.Transactions[1].Type)

	data, _ = bob.mustDo(http.MethodGet, "/transactions?account_number="+b.AccountNumber, nil, http.StatusOK)
	require.Len(t, data.Transactions, 1)
	assert.Equal(t, domain.TransactionTransferIn, data.Transactions[0].Type)
	assert.Equal(t, a.AccountNumber, data.Transactions[0].CounterpartyAccountNumber)

	_, res = bob.mustDo(http.MethodGet, "/accounts/"+a.AccountNumber, nil, http.StatusNotFound)
	assert.Equal(t, domain.ErrAccountOwnerMismatch.Error(), res.Error)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", res.Kind)

	_, res = alice.mustDo(http.MethodPost, "/transactions/transfer", map[string]string{
		"recipient_account_number": "LT00000000000000",
		"amount":                   "1",
	}, http.StatusNotFound)
	assert.Equal(t, domain.ErrRecipientNotFound.Error(), res.Error)

	_, res = alice.mustDo(http.MethodPost, "/transactions/transfer", map[string]string{
		"recipient_account_number": a.AccountNumber,
		"amount":                   "1",
	}, http.StatusBadRequest)
	assert.Equal(t, domain.ErrSameAccount.Error(), res.Error)
}

func TestOpenWithInitialDeposit(t *testing.T) {
	server := integrationtest.SetupMemoryServer(t)
	c := newClient(t, server)

	a := c.open("Carol", "25.50")
	assert.True(t, a.Balance.Equal(decimal.RequireFromString("25.5")))

	data, _ := c.mustDo(http.MethodGet, "/transactions", nil, http.StatusOK)
	require.Len(t, data.Transactions, 1)
	assert.Equal(t, domain.TransactionDeposit, data.Transactions[0].Type)

	_, res := c.mustDo(http.MethodPost, "/accounts", map[string]string{
		"owner_name":      "Carol",
		"initial_deposit": "-1",
	}, http.StatusBadRequest)
	assert.Equal(t, "InitialDeposit must be a non-negative decimal amount", res.Error)
}

func TestConcurrentTransfersConserveMoney(t *testing.T) {
	server := integrationtest.SetupMemoryServer(t)
	alice := newClient(t, server)
	bob := newClient(t, server)

	a := alice.open("Alice", "1000")
	b := bob.open("Bob", "1000")

	var g errgroup.Group

	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, _, _, err := alice.do(http.MethodPost, "/transactions/transfer", map[string]string{
				"recipient_account_number": b.AccountNumber,
				"amount":                   "10",
			})
			return err
		})
		g.Go(func() error {
			_, _, _, err := bob.do(http.MethodPost, "/transactions/transfer", map[string]string{
				"recipient_account_number": a.AccountNumber,
				"amount":                   "5",
			})
			return err
		})
	}

	require.NoError(t, g.Wait())

	balA, err := server.Ledger.Balance(context.Background(), a.AccountNumber)
	require.NoError(t, err)
	balB, err := server.Ledger.Balance(context.Background(), b.AccountNumber)
	require.NoError(t, err)

	assert.True(t, balA.Add(balB).Equal(decimal.NewFromInt(2000)), "total %s", balA.Add(balB))
}

func TestMetricsEndpoint(t *testing.T) {
	server := integrationtest.SetupMemoryServer(t)
	c := newClient(t, server)

	c.open("Dave", "1")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "ledger_http_requests_total")
	assert.Contains(t, recorder.Body.String(), "ledger_operations_total")
}

func TestNewRejectsCountryCode(t *testing.T) {
	config := configpkg.Config{
		DBDriver:           configpkg.DriverMemory,
		TokenType:          "paseto",
		TokenSymmetricKey:  "12345678901234567890123456789012",
		AccountCountryCode: "lt",
	}

	_, err := httpserver.New(httpserver.MemoryStorage(), zerolog.Nop(), config)
	require.ErrorIs(t, err, configpkg.ErrInvalidCountryCode)
}
