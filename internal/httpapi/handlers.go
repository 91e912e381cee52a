package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pkarasev/exchange-api/internal/auth"
	"github.com/pkarasev/exchange-api/internal/model"
)

// Accepted timestamp layouts for the range query, most specific first.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unrecognized timestamp")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return false
	}
	return true
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type tokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if req.Password != req.PasswordConfirm {
		writeError(w, http.StatusBadRequest, "Passwords do not match")
		return
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		s.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	user := auth.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrDuplicateUser) {
			writeError(w, http.StatusBadRequest, "Username already taken")
			return
		}
		s.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	token, err := s.tokens.Mint(user)
	if err != nil {
		s.logger.Error("mint token", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	s.logger.Info("user registered", "username", user.Username)
	writeJSON(w, http.StatusCreated, tokenResponse{
		Message: "User registered successfully",
		Token:   token,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.users.GetUserByName(r.Context(), req.Username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.tokens.Mint(user)
	if err != nil {
		s.logger.Error("mint token", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Message: "Login successful",
		Token:   token,
	})
}

type createAccountRequest struct {
	Username string          `json:"username"`
	Balance  decimal.Decimal `json:"balance"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if req.Balance.IsNegative() {
		writeError(w, http.StatusBadRequest, "balance must not be negative")
		return
	}

	acct := model.Account{Username: req.Username, Balance: req.Balance}
	if err := s.store.CreateAccount(r.Context(), acct); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, acct)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.store.GetAccount(r.Context(), r.PathValue("username"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

type createStockRequest struct {
	Ticker string          `json:"ticker"`
	Price  decimal.Decimal `json:"stock_price"`
	Name   string          `json:"stock_name"`
}

func (s *Server) handleCreateStock(w http.ResponseWriter, r *http.Request) {
	var req createStockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Ticker == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "ticker and stock_name are required")
		return
	}
	if req.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "stock_price must not be negative")
		return
	}

	inst := model.Instrument{Ticker: req.Ticker, Price: req.Price, Name: req.Name}
	if err := s.store.CreateInstrument(r.Context(), inst); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, inst)
}

func (s *Server) handleListStocks(w http.ResponseWriter, r *http.Request) {
	instruments, err := s.store.ListInstruments(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instruments)
}

func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	inst, err := s.store.GetInstrument(r.Context(), r.PathValue("ticker"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

type createTransactionRequest struct {
	User   string          `json:"user"`
	Ticker string          `json:"ticker"`
	Kind   string          `json:"transaction_type"`
	Volume decimal.Decimal `json:"transaction_volume"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	kind, ok := model.ParseTransactionKind(req.Kind)
	if !ok {
		writeError(w, http.StatusBadRequest, "transaction_type must be BUY or SELL")
		return
	}

	if ident, ok := identityFrom(r.Context()); ok {
		s.logger.Debug("transaction submitted",
			"by", ident.Username,
			"for", req.User,
			"ticker", req.Ticker,
		)
	}

	txn, err := s.processor.Submit(r.Context(), req.User, req.Ticker, kind, req.Volume)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.processor.History(r.Context(), r.PathValue("username"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

func (s *Server) handleListTransactionsInRange(w http.ResponseWriter, r *http.Request) {
	start, err := parseTimestamp(r.PathValue("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format")
		return
	}
	end, err := parseTimestamp(r.PathValue("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format")
		return
	}

	txns, err := s.processor.HistoryInRange(r.Context(), r.PathValue("username"), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}
