// Package httpserver manages server creation and api routing.
package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/accountdelivery"
	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/accountservice"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/ledgerdelivery"
	"github.com/go-petr/pet-ledger/internal/ledgerrepo"
	"github.com/go-petr/pet-ledger/internal/ledgerservice"
	"github.com/go-petr/pet-ledger/internal/memstore"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/transactionrepo"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// AccountStore provides account persistence used by both account and ledger services.
type AccountStore interface {
	Get(ctx context.Context, accountNumber string) (domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Account, error)
}

// Storage groups the persistence backends of the server.
//
// DB is nil for the in-memory storage.
type Storage struct {
	DB       *sql.DB
	Ledger   ledgerservice.Store
	Accounts AccountStore
	History  ledgerservice.TransactionReader
}

// PostgresStorage returns Storage backed by the given database connection.
func PostgresStorage(conn *sql.DB) Storage {
	return Storage{
		DB:       conn,
		Ledger:   ledgerrepo.NewRepoPGS(conn),
		Accounts: accountrepo.NewRepoPGS(conn),
		History:  transactionrepo.NewRepoPGS(conn),
	}
}

// MemoryStorage returns Storage kept in process memory.
func MemoryStorage() Storage {
	store := memstore.New()

	return Storage{
		Ledger:   store,
		Accounts: store,
		History:  store,
	}
}

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
	Ledger *ledgerservice.Service
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(storage Storage, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	tokenMaker, err := tokenpkg.NewMaker(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, errors.New("cannot create token maker")
	}

	ledgerService := ledgerservice.New(
		storage.Ledger,
		storage.Accounts,
		storage.History,
		ledgerservice.WithMaxRetries(config.LedgerMaxRetries),
		ledgerservice.WithLockTimeout(config.LedgerLockTimeout),
	)
	accountService := accountservice.New(storage.Accounts, ledgerService, config.AccountCountryCode)

	accountHandler := accountdelivery.NewHandler(accountService)
	ledgerHandler := ledgerdelivery.NewHandler(ledgerService, accountService)

	if err := web.RegisterValidators(); err != nil {
		return nil, errors.New("cannot register request validators")
	}

	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.Metrics())
	engine.Use(gin.Recovery())

	engine.GET("/metrics", middleware.MetricsHandler())

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.POST("/accounts", accountHandler.Create)
	authRoutes.GET("/accounts", accountHandler.Me)
	authRoutes.GET("/accounts/:number", accountHandler.Get)

	authRoutes.POST("/transactions/deposit", ledgerHandler.Deposit)
	authRoutes.POST("/transactions/withdraw", ledgerHandler.Withdraw)
	authRoutes.POST("/transactions/transfer", ledgerHandler.Transfer)
	authRoutes.GET("/transactions", ledgerHandler.History)

	server := &Server{
		DB:     storage.DB,
		Engine: engine,
		Config: config,
		Ledger: ledgerService,
	}

	return server, nil
}
