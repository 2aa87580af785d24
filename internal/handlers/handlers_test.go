package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Bakary221/Om-Pay/configs"
	"github.com/Bakary221/Om-Pay/internal/engine"
	"github.com/Bakary221/Om-Pay/internal/handlers"
	"github.com/Bakary221/Om-Pay/internal/logger"
	"github.com/Bakary221/Om-Pay/internal/metrics"
	"github.com/Bakary221/Om-Pay/internal/models"
	"github.com/Bakary221/Om-Pay/internal/routes"
	"github.com/Bakary221/Om-Pay/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	logger.Init()
	configs.AppConfig.JWT.SECRET = "test-secret"

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Account{}, &models.Merchant{}, &models.Transaction{}))
	store.DB = db

	collector := metrics.New()
	eng := engine.New(db, engine.NewPolicy(engine.DefaultPolicyConfig()), collector)
	return routes.NewRoutes(handlers.New(eng), collector.Handler())
}

func httpDo(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type registerResponse struct {
	User    models.User    `json:"user"`
	Account models.Account `json:"account"`
}

type transactionResponse struct {
	Transaction models.Transaction `json:"transaction"`
}

func registerAndLogin(t *testing.T, r http.Handler, lastName, phone string) (string, registerResponse) {
	t.Helper()
	w := httpDo(r, "POST", "/auth/register", "", map[string]string{
		"last_name":  lastName,
		"first_name": "Test",
		"phone":      phone,
		"pin":        "1234",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var reg registerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))

	w = httpDo(r, "POST", "/auth/verify", "", map[string]string{"phone": phone})
	require.Equal(t, http.StatusOK, w.Code)

	w = httpDo(r, "POST", "/auth/login", "", map[string]string{"phone": phone, "pin": "1234"})
	require.Equal(t, http.StatusOK, w.Code)
	var login handlers.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	return login.Token, reg
}

func balanceOf(t *testing.T, r http.Handler, token string) decimal.Decimal {
	t.Helper()
	w := httpDo(r, "GET", "/accounts/me/balance", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Balance
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	r := setupServer(t)

	w := httpDo(r, "POST", "/auth/register", "", map[string]string{
		"last_name":  "Diop",
		"first_name": "Amadou",
		"phone":      "770000001",
		"pin":        "1234",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var reg registerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	require.Regexp(t, `^OM-\d{4}-[0-9A-F]{4}-[0-9A-F]{4}$`, reg.Account.Number)
	require.Nil(t, reg.Account.QRPayload)
	require.False(t, reg.User.Verified)

	// Duplicate phone is rejected.
	w = httpDo(r, "POST", "/auth/register", "", map[string]string{
		"last_name":  "Diop",
		"first_name": "Moussa",
		"phone":      "770000001",
		"pin":        "1234",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	// No login before verification.
	w = httpDo(r, "POST", "/auth/login", "", map[string]string{"phone": "770000001", "pin": "1234"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httpDo(r, "POST", "/auth/verify", "", map[string]string{"phone": "770000001"})
	require.Equal(t, http.StatusOK, w.Code)
	var verified models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verified))
	require.True(t, verified.Verified)

	w = httpDo(r, "POST", "/auth/login", "", map[string]string{"phone": "770000001", "pin": "1234"})
	require.Equal(t, http.StatusOK, w.Code)
	var login handlers.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	// Verification populated the QR payload.
	w = httpDo(r, "GET", "/accounts/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var accResp struct {
		Account models.Account  `json:"account"`
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accResp))
	require.NotNil(t, accResp.Account.QRPayload)
	require.True(t, accResp.Balance.IsZero())

	w = httpDo(r, "GET", "/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Wrong pin.
	w = httpDo(r, "POST", "/auth/login", "", map[string]string{"phone": "770000001", "pin": "9999"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMoneyMovementOverHTTP(t *testing.T) {
	r := setupServer(t)
	tokenA, _ := registerAndLogin(t, r, "Diop", "770000001")
	tokenB, _ := registerAndLogin(t, r, "Sarr", "770000002")

	// Below the deposit minimum.
	w := httpDo(r, "POST", "/transactions/deposit", tokenA, map[string]any{"amount": 50})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = httpDo(r, "POST", "/transactions/deposit", tokenA, map[string]any{"amount": 20000})
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, balanceOf(t, r, tokenA).Equal(decimal.NewFromInt(20000)))

	// Transfer with tiered fee.
	w = httpDo(r, "POST", "/transactions/transfer", tokenA, map[string]any{
		"destination_phone": "770000002",
		"amount":            10000,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var transfer transactionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &transfer))
	require.True(t, transfer.Transaction.Fee.Equal(decimal.NewFromInt(100)))

	require.True(t, balanceOf(t, r, tokenA).Equal(decimal.NewFromInt(9900)))
	require.True(t, balanceOf(t, r, tokenB).Equal(decimal.NewFromInt(10000)))

	// Merchant payment against a seeded merchant row.
	merchantUser := models.User{LastName: "Auchan", FirstName: "Dakar", Phone: "338000000",
		Kind: models.UserMerchant, Status: models.UserActive, Verified: true}
	require.NoError(t, store.DB.Create(&merchantUser).Error)
	merchant := models.Merchant{UserID: merchantUser.ID, Code: "MCH-AUCH1", BusinessName: "Auchan Dakar"}
	require.NoError(t, store.DB.Create(&merchant).Error)

	w = httpDo(r, "POST", "/transactions/payment", tokenA, map[string]any{
		"destination": "MCH-AUCH1",
		"amount":      2500,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var payment transactionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payment))
	require.NotNil(t, payment.Transaction.MerchantID)
	require.Nil(t, payment.Transaction.RecipientAccountID)
	require.True(t, balanceOf(t, r, tokenA).Equal(decimal.NewFromInt(7400)))

	// History is newest first and scoped to the caller.
	w = httpDo(r, "GET", "/transactions?page=1&page_size=10", tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Transactions []models.Transaction `json:"transactions"`
		Total        int64                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.EqualValues(t, 3, list.Total)
	require.Equal(t, payment.Transaction.Reference, list.Transactions[0].Reference)

	w = httpDo(r, "GET", "/transactions/"+transfer.Transaction.Reference, tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = httpDo(r, "GET", "/transactions/TRX-20200101-FFFFFF", tokenA, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMoneyMovementErrors(t *testing.T) {
	r := setupServer(t)
	tokenA, _ := registerAndLogin(t, r, "Diop", "770000001")

	w := httpDo(r, "POST", "/transactions/deposit", tokenA, map[string]any{"amount": 5000})
	require.Equal(t, http.StatusCreated, w.Code)

	// Unknown destination.
	w = httpDo(r, "POST", "/transactions/transfer", tokenA, map[string]any{
		"destination_phone": "789999999",
		"amount":            1000,
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	// Self-transfer.
	w = httpDo(r, "POST", "/transactions/transfer", tokenA, map[string]any{
		"destination_phone": "770000001",
		"amount":            1000,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Insufficient funds.
	registerAndLogin(t, r, "Sarr", "770000002")
	w = httpDo(r, "POST", "/transactions/transfer", tokenA, map[string]any{
		"destination_phone": "770000002",
		"amount":            50000,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Balance untouched by rejected operations.
	require.True(t, balanceOf(t, r, tokenA).Equal(decimal.NewFromInt(5000)))

	// No token, no service.
	w = httpDo(r, "POST", "/transactions/deposit", "", map[string]any{"amount": 1000})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
