package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/ledger-backend/internal/adapter/grpc"
	httpadapter "github.com/simaogato/ledger-backend/internal/adapter/http"
	"github.com/simaogato/ledger-backend/internal/adapter/repository/memory"
	"github.com/simaogato/ledger-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/ledger-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/ledger-backend/internal/config"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/account"
	"github.com/simaogato/ledger-backend/internal/usecase/accountnumber"
	"github.com/simaogato/ledger-backend/internal/usecase/customer"
	"github.com/simaogato/ledger-backend/internal/usecase/ledger"
	"github.com/simaogato/ledger-backend/internal/usecase/seeder"
	"github.com/simaogato/ledger-backend/internal/usecase/summary"
)

// backend bundles what the services need from a configured store
type backend struct {
	store     domain.LedgerStore
	customers domain.CustomerRepository
	closer    io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// 1. Setup Store
	b, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store, err)
	}
	if b.closer != nil {
		defer b.closer.Close()
	}
	log.Printf("Using %s ledger store", cfg.Store)

	// 2. Initialize Services (Use Cases)
	generator := accountnumber.NewGenerator(b.store.Accounts(), nil)
	generator.MaxAttempts = cfg.AccountNumberMaxAttempts

	accountService := account.NewAccountService(
		b.store,
		b.customers,
		ledger.NewRecorder(b.store.Transactions()),
		generator,
	)
	accountService.Logger = log.New(os.Stderr, "audit: ", log.LstdFlags|log.LUTC)
	summaryService := summary.NewSummaryService(b.store.Accounts())
	customerService := customer.NewCustomerService(b.customers)
	customerService.Logger = accountService.Logger

	// Initialize System Seeder and run it
	systemSeeder := seeder.NewSystemSeeder(b.customers)
	if err := systemSeeder.Seed(ctx); err != nil {
		log.Fatalf("Failed to seed system customers: %v", err)
	}
	log.Println("System customers seeded successfully")

	// 3. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(nil),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)
	grpcadapter.RegisterLedgerServiceServer(grpcServer, grpcadapter.NewServer(accountService, summaryService, customerService))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.GRPCAddr, err)
	}

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC server: %v", err)
		}
	}()

	// 4. Start HTTP Server
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpadapter.NewRouter(httpadapter.NewHandler(accountService, summaryService, customerService), cfg.APIToken),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP server: %v", err)
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, httpServer)
}

// openBackend connects to the store selected by LEDGER_STORE
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		store := memory.NewStore(memory.WithLockTimeout(cfg.LockTimeout))
		return &backend{store: store, customers: store.Customers()}, nil

	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.SQLitePath, cfg.LockTimeout)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		store := sqlite.NewStore(db)
		return &backend{store: store, customers: store.Customers(), closer: db}, nil

	default:
		// Add 2-second delay to ensure Postgres is up (Simple retry)
		time.Sleep(2 * time.Second)

		db, err := postgres.NewDB(cfg.DBConnStr)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		store := postgres.NewStore(db, cfg.LockTimeout)
		return &backend{store: store, customers: store.Customers(), closer: db}, nil
	}
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down both servers
func waitForShutdown(grpcServer *grpclib.Server, httpServer *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal: %v. Shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}
	log.Println("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Println("gRPC server stopped")
}
