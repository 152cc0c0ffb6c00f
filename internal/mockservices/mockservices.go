// Package mockservices is an in-memory stand-in for the Account, Customer
// and Transaction services, used for local runs and gateway tests. Each
// service can be switched to answer 503 to exercise the circuit breakers.
package mockservices

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ServiceAccounts     = "accounts"
	ServiceCustomers    = "customers"
	ServiceTransactions = "transactions"
)

type Account struct {
	AccountID        string          `json:"accountId"`
	AccountNumber    string          `json:"accountNumber"`
	AccountType      string          `json:"accountType"`
	Currency         string          `json:"currency"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	CurrentBalance   decimal.Decimal `json:"currentBalance"`
	LastMovementDate *time.Time      `json:"lastMovementDate,omitempty"`
}

type Customer struct {
	ID             string `json:"id"`
	CustomerType   string `json:"customerType"`
	FullName       string `json:"fullName"`
	DocumentType   string `json:"documentType"`
	DocumentNumber string `json:"documentNumber"`
}

type AffectedAccount struct {
	AccountID      string          `json:"accountId"`
	AmountDeducted decimal.Decimal `json:"amountDeducted"`
}

type Transaction struct {
	TransactionID     string            `json:"transactionId"`
	CardID            string            `json:"cardId"`
	Amount            decimal.Decimal   `json:"amount"`
	TransactionType   string            `json:"transactionType"`
	AuthorizationCode string            `json:"authorizationCode,omitempty"`
	Status            string            `json:"status"`
	Timestamp         time.Time         `json:"timestamp"`
	AccountsAffected  []AffectedAccount `json:"accountsAffected,omitempty"`
}

// Movement is an account credit or debit as seen by the Account service.
type Movement struct {
	AccountID   string          `json:"accountId"`
	Direction   string          `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
}

type movementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
}

type Server struct {
	mu           sync.Mutex
	accounts     map[string]*Account
	customers    map[string]*Customer
	transactions []Transaction
	movements    []Movement
	failing      map[string]bool
	latency      map[string]time.Duration
}

func New() *Server {
	return &Server{
		accounts:  make(map[string]*Account),
		customers: make(map[string]*Customer),
		failing:   make(map[string]bool),
		latency:   make(map[string]time.Duration),
	}
}

func (s *Server) PutAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Currency == "" {
		a.Currency = "PEN"
	}
	if a.CurrentBalance.IsZero() {
		a.CurrentBalance = a.AvailableBalance
	}
	s.accounts[a.AccountID] = &a
}

func (s *Server) PutCustomer(c Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = &c
}

// SetFailing makes every endpoint of service answer 503 while enabled.
func (s *Server) SetFailing(service string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[service] = enabled
}

// SetLatency delays every response of service by d.
func (s *Server) SetLatency(service string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency[service] = d
}

func (s *Server) Balance(accountID string) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return decimal.Zero, false
	}
	return a.AvailableBalance, true
}

func (s *Server) Transactions() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transaction(nil), s.transactions...)
}

func (s *Server) Movements() []Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Movement(nil), s.movements...)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("GET /accounts/{id}/balance", s.guard(ServiceAccounts, s.getBalance))
	mux.Handle("GET /accounts/{id}", s.guard(ServiceAccounts, s.getAccount))
	mux.Handle("POST /accounts/{id}/debit", s.guard(ServiceAccounts, s.move("debit")))
	mux.Handle("POST /accounts/{id}/credit", s.guard(ServiceAccounts, s.move("credit")))

	mux.Handle("GET /customers/{id}/type", s.guard(ServiceCustomers, s.getCustomerType))
	mux.Handle("GET /customers/{id}", s.guard(ServiceCustomers, s.getCustomer))

	mux.Handle("POST /transactions", s.guard(ServiceTransactions, s.createTransaction))
	mux.Handle("GET /transactions/summary", s.guard(ServiceTransactions, s.summary))
	mux.Handle("GET /transactions/{id}", s.guard(ServiceTransactions, s.getTransaction))
	mux.Handle("GET /transactions/cards/{id}/movements", s.guard(ServiceTransactions, s.cardMovements))

	mux.HandleFunc("POST /admin/accounts", s.adminPutAccount)
	mux.HandleFunc("POST /admin/customers", s.adminPutCustomer)
	mux.HandleFunc("POST /admin/failures/{service}", s.adminSetFailing)

	return mux
}

func (s *Server) guard(service string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		failing := s.failing[service]
		delay := s.latency[service]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": service + " unavailable"})
			return
		}
		next(w, r)
	})
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accountId":        a.AccountID,
		"availableBalance": a.AvailableBalance,
		"currentBalance":   a.CurrentBalance,
		"currency":         a.Currency,
	})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) move(direction string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req movementRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Amount.IsPositive() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid movement"})
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		id := r.PathValue("id")
		a, ok := s.accounts[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
			return
		}

		amount := req.Amount
		if direction == "debit" {
			if a.AvailableBalance.LessThan(amount) {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "insufficient balance"})
				return
			}
			amount = amount.Neg()
		}

		now := time.Now().UTC()
		a.AvailableBalance = a.AvailableBalance.Add(amount)
		a.CurrentBalance = a.CurrentBalance.Add(amount)
		a.LastMovementDate = &now

		s.movements = append(s.movements, Movement{
			AccountID:   id,
			Direction:   direction,
			Amount:      req.Amount,
			Description: req.Description,
			Reference:   req.Reference,
		})

		writeJSON(w, http.StatusOK, map[string]string{
			"transactionId": uuid.NewString(),
			"status":        "COMPLETED",
		})
	}
}

func (s *Server) getCustomerType(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"customerType": c.CustomerType})
}

func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var t Transaction
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil || t.CardID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid transaction"})
		return
	}
	if t.TransactionID == "" {
		t.TransactionID = uuid.NewString()
	}

	s.mu.Lock()
	s.transactions = append(s.transactions, t)
	s.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.transactions {
		if t.TransactionID == id {
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "transaction not found"})
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	start, err1 := time.Parse(time.DateOnly, r.URL.Query().Get("startDate"))
	end, err2 := time.Parse(time.DateOnly, r.URL.Query().Get("endDate"))
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date range"})
		return
	}
	end = end.AddDate(0, 0, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	total := decimal.Zero
	for _, t := range s.transactions {
		if t.Timestamp.Before(start) || !t.Timestamp.Before(end) {
			continue
		}
		count++
		total = total.Add(t.Amount)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalTransactions": count,
		"totalAmount":       total,
	})
}

func (s *Server) cardMovements(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	cardID := r.PathValue("id")

	s.mu.Lock()
	var out []Transaction
	for _, t := range s.transactions {
		if t.CardID == cardID {
			out = append(out, t)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []Transaction{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) adminPutAccount(w http.ResponseWriter, r *http.Request) {
	var a Account
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil || a.AccountID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid account"})
		return
	}
	s.PutAccount(a)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminPutCustomer(w http.ResponseWriter, r *http.Request) {
	var c Customer
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer"})
		return
	}
	s.PutCustomer(c)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminSetFailing(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")
	switch service {
	case ServiceAccounts, ServiceCustomers, ServiceTransactions:
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown service"})
		return
	}

	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "enabled must be true or false"})
		return
	}
	s.SetFailing(service, enabled)
	slog.Info("failure toggle changed", "service", service, "enabled", enabled)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
