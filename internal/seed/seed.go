package seed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Bakary221/Om-Pay/internal/engine"
	"github.com/Bakary221/Om-Pay/internal/logger"
	"github.com/Bakary221/Om-Pay/internal/models"
	"github.com/Bakary221/Om-Pay/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	seedPIN        = "1234"
	openingDeposit = "20000.00"
)

var merchants = []struct {
	LastName  string
	FirstName string
	Phone     string
	Code      string
	Business  string
	Category  string
}{
	{"Auchan", "Dakar", "338000000", "MCH-AUCH1", "Auchan Dakar", "Supermarché"},
	{"CFAO", "Technologies", "338000001", "MCH-CFAO1", "CFAO Technologies", "Électronique"},
	{"Total", "Energies", "338000002", "MCH-TOTT1", "Total Energies Dakar", "Station-service"},
	{"Super", "V", "338000003", "MCH-SUPV1", "Super V Dakar", "Épicerie"},
}

var clients = []struct {
	LastName  string
	FirstName string
	Phone     string
	Email     string
}{
	{"Diop", "Amadou", "770000001", "amadou.diop@test.com"},
	{"Sarr", "Fatou", "770000002", "fatou.sarr@test.com"},
}

// Run seeds the demo merchants and two verified client accounts, each with
// an opening deposit posted through the engine. Idempotent.
func Run(eng *engine.Engine) {
	db := store.DB
	var count int64
	if err := db.Model(&models.Merchant{}).Count(&count).Error; err != nil {
		logger.Log.Fatal("seed check failed", zap.Error(err))
	}
	if count > 0 {
		logger.Log.Info("seed already applied, skipping")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPIN), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Fatal("failed to hash seed pin", zap.Error(err))
	}
	hashed := string(hash)

	var clientAccounts []models.Account

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, m := range merchants {
			user := models.User{
				LastName:  m.LastName,
				FirstName: m.FirstName,
				Phone:     m.Phone,
				PINHash:   hashed,
				Kind:      models.UserMerchant,
				Status:    models.UserActive,
				Verified:  true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			category := m.Category
			merchant := models.Merchant{
				UserID:       user.ID,
				Code:         m.Code,
				BusinessName: m.Business,
				Category:     &category,
			}
			if err := tx.Create(&merchant).Error; err != nil {
				return err
			}
			account := models.Account{UserID: user.ID, Number: engine.NewAccountNumber(time.Now())}
			if err := tx.Create(&account).Error; err != nil {
				return err
			}
		}

		for _, c := range clients {
			user := models.User{
				LastName:  c.LastName,
				FirstName: c.FirstName,
				Phone:     c.Phone,
				Email:     c.Email,
				PINHash:   hashed,
				Kind:      models.UserClient,
				Status:    models.UserActive,
				Verified:  true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			account := models.Account{UserID: user.ID, Number: engine.NewAccountNumber(time.Now())}
			payload, err := json.Marshal(map[string]string{
				"kind":           "account",
				"account_number": account.Number,
				"user_id":        user.ID.String(),
			})
			if err != nil {
				return err
			}
			qr := string(payload)
			account.QRPayload = &qr
			if err := tx.Create(&account).Error; err != nil {
				return err
			}
			clientAccounts = append(clientAccounts, account)
		}
		return nil
	})
	if err != nil {
		logger.Log.Fatal("seed failed", zap.Error(err))
	}

	opening := decimal.RequireFromString(openingDeposit)
	for _, account := range clientAccounts {
		if _, err := eng.Deposit(context.Background(), account.ID, opening); err != nil {
			logger.Log.Fatal("opening deposit failed", zap.Error(err))
		}
	}

	logger.Log.Info("seeded demo merchants and clients", zap.String("pin", seedPIN))
}
