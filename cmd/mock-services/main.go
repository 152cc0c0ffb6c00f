package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/card-service/internal/logging"
	"github.com/josh-kwaku/card-service/internal/mockservices"
)

func main() {
	logging.Init("mock-services", "info", os.Getenv("APP_ENV"))

	srv := mockservices.New()
	seed(srv)

	addr := ":8081"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("mock services started", "addr", addr)
	if err := httpSrv.ListenAndServe(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func seed(srv *mockservices.Server) {
	srv.PutCustomer(mockservices.Customer{
		ID: "CUST-001", CustomerType: "PERSONAL", FullName: "Ana Torres",
		DocumentType: "DNI", DocumentNumber: "45879632",
	})
	srv.PutCustomer(mockservices.Customer{
		ID: "CUST-002", CustomerType: "ENTERPRISE", FullName: "Andes Logistics SAC",
		DocumentType: "RUC", DocumentNumber: "20548796321",
	})

	srv.PutAccount(mockservices.Account{
		AccountID: "ACC-001", AccountNumber: "191-0001", AccountType: "SAVINGS",
		AvailableBalance: decimal.NewFromInt(30),
	})
	srv.PutAccount(mockservices.Account{
		AccountID: "ACC-002", AccountNumber: "191-0002", AccountType: "CHECKING",
		AvailableBalance: decimal.NewFromInt(100),
	})
	srv.PutAccount(mockservices.Account{
		AccountID: "ACC-003", AccountNumber: "191-0003", AccountType: "SAVINGS",
		AvailableBalance: decimal.Zero,
	})
}
