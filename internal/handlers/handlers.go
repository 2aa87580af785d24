package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Bakary221/Om-Pay/configs"
	"github.com/Bakary221/Om-Pay/internal/engine"
	"github.com/Bakary221/Om-Pay/internal/httputil"
	"github.com/Bakary221/Om-Pay/internal/logger"
	"github.com/Bakary221/Om-Pay/internal/middleware"
	"github.com/Bakary221/Om-Pay/internal/models"
	"github.com/Bakary221/Om-Pay/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Handler struct {
	Engine *engine.Engine
}

func New(eng *engine.Engine) *Handler {
	return &Handler{Engine: eng}
}

type RegisterRequest struct {
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	PIN       string `json:"pin"`
}

type LoginRequest struct {
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// RegisterHandler creates the user and their account in one transaction.
// The account starts unverified, with no QR payload and a zero balance.
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LastName == "" || req.FirstName == "" || req.Phone == "" {
		httputil.WriteError(w, http.StatusBadRequest, "last_name, first_name and phone are required")
		return
	}
	if len(req.PIN) != 4 {
		httputil.WriteError(w, http.StatusBadRequest, "pin must be 4 digits")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Error("failed to hash pin", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user := models.User{
		LastName:  req.LastName,
		FirstName: req.FirstName,
		Phone:     req.Phone,
		Email:     req.Email,
		PINHash:   string(hash),
		Kind:      models.UserClient,
		Status:    models.UserInactive,
	}
	var account models.Account

	err = store.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		account = models.Account{UserID: user.ID}
		return createAccountWithNumber(tx, &account)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		httputil.WriteError(w, http.StatusConflict, "phone already registered")
		return
	}
	if err != nil {
		logger.Log.Error("registration failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"user":    user,
		"account": account,
	})
}

// createAccountWithNumber retries number generation on collision, each
// attempt inside a savepoint.
func createAccountWithNumber(tx *gorm.DB, account *models.Account) error {
	for attempt := 0; attempt < 3; attempt++ {
		account.Number = engine.NewAccountNumber(time.Now())
		err := tx.Transaction(func(inner *gorm.DB) error {
			return inner.Create(account).Error
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return err
	}
	return fmt.Errorf("account number generation exhausted retries")
}

type VerifyRequest struct {
	Phone string `json:"phone"`
}

// VerifyHandler marks the user verified and active, and populates the
// account QR payload. Delivery of the verification code is out of band.
func (h *Handler) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var user models.User
	if err := store.DB.Where("phone = ?", req.Phone).First(&user).Error; err != nil {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}

	err := store.DB.Transaction(func(tx *gorm.DB) error {
		user.Verified = true
		user.Status = models.UserActive
		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		var account models.Account
		if err := tx.Where("user_id = ?", user.ID).First(&account).Error; err != nil {
			return err
		}
		payload, err := qrPayload(&account)
		if err != nil {
			return err
		}
		return tx.Model(&account).Update("qr_payload", payload).Error
	})
	if err != nil {
		logger.Log.Error("verification failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

func qrPayload(account *models.Account) (string, error) {
	raw, err := json.Marshal(map[string]string{
		"kind":           "account",
		"account_number": account.Number,
		"user_id":        account.UserID.String(),
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Phone == "" || req.PIN == "" {
		httputil.WriteError(w, http.StatusBadRequest, "phone and pin are required")
		return
	}

	var user models.User
	if err := store.DB.Where("phone = ?", req.Phone).First(&user).Error; err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid phone or pin")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PINHash), []byte(req.PIN)); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid phone or pin")
		return
	}
	if !user.Verified || user.Status != models.UserActive {
		httputil.WriteError(w, http.StatusForbidden, "account not verified")
		return
	}

	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configs.AppConfig.JWT.SECRET))
	if err != nil {
		logger.Log.Error("failed to sign jwt", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: signed})
}

func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var user models.User
	if err := store.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// AccountHandler returns the principal's account with its derived balance.
func (h *Handler) AccountHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	balance, err := h.Engine.Balance(r.Context(), account.ID)
	if err != nil {
		logger.Log.Error("failed to compute balance", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to compute balance")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"account": account,
		"balance": balance,
	})
}

func (h *Handler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	balance, err := h.Engine.Balance(r.Context(), account.ID)
	if err != nil {
		logger.Log.Error("failed to compute balance", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to compute balance")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	trx, err := h.Engine.Deposit(r.Context(), account.ID, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"transaction": trx})
}

type PaymentRequest struct {
	Destination string          `json:"destination"`
	Amount      decimal.Decimal `json:"amount"`
}

func (h *Handler) PaymentHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Destination == "" {
		httputil.WriteError(w, http.StatusBadRequest, "destination is required")
		return
	}
	trx, err := h.Engine.Pay(r.Context(), account.ID, req.Destination, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"transaction": trx})
}

type TransferRequest struct {
	DestinationPhone string          `json:"destination_phone"`
	Amount           decimal.Decimal `json:"amount"`
}

func (h *Handler) TransferHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DestinationPhone == "" {
		httputil.WriteError(w, http.StatusBadRequest, "destination_phone is required")
		return
	}
	trx, err := h.Engine.Transfer(r.Context(), account.ID, req.DestinationPhone, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"transaction": trx})
}

func (h *Handler) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 15)

	list, total, err := h.Engine.ListTransactions(r.Context(), userID, page, pageSize)
	if err != nil {
		logger.Log.Error("failed to list transactions", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": list,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
	})
}

func (h *Handler) TransactionShowHandler(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	trx, err := h.Engine.GetTransaction(r.Context(), reference)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transaction": trx})
}

func currentUserID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(middleware.UserIDContextKey).(uuid.UUID)
	return userID, ok
}

func (h *Handler) currentAccount(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	userID, ok := currentUserID(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	var account models.Account
	if err := store.DB.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "no account found")
			return nil, false
		}
		logger.Log.Error("failed to load account", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load account")
		return nil, false
	}
	return &account, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// writeEngineError maps the engine's error taxonomy to HTTP responses.
func writeEngineError(w http.ResponseWriter, err error) {
	var limitErr *engine.LimitError
	switch {
	case errors.As(err, &limitErr):
		httputil.WriteError(w, http.StatusUnprocessableEntity, limitErr.Error())
	case errors.Is(err, engine.ErrDestinationNotFound),
		errors.Is(err, engine.ErrAccountNotFound),
		errors.Is(err, engine.ErrTransactionNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrSelfTarget),
		errors.Is(err, engine.ErrInsufficientFunds):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrReferenceConflict):
		httputil.WriteError(w, http.StatusServiceUnavailable, "temporary conflict, please retry")
	default:
		logger.Log.Error("transaction failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "transaction failed")
	}
}
