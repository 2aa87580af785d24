package configs

import (
	"errors"

	"github.com/Bakary221/Om-Pay/internal/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// LimitSetting bounds the amount of a single transaction, in whole FCFA.
type LimitSetting struct {
	Min int64 `mapstructure:"min"`
	Max int64 `mapstructure:"max"`
}

// FeeTierSetting is one bracket of the transfer fee schedule: amounts in
// [From, To] inclusive pay a flat Fee.
type FeeTierSetting struct {
	From int64 `mapstructure:"from"`
	To   int64 `mapstructure:"to"`
	Fee  int64 `mapstructure:"fee"`
}

type Config struct {
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	JWT struct {
		SECRET string `mapstructure:"secret"`
	} `mapstructure:"jwt"`
	Limits struct {
		Deposit  LimitSetting `mapstructure:"deposit"`
		Payment  LimitSetting `mapstructure:"payment"`
		Transfer LimitSetting `mapstructure:"transfer"`
	} `mapstructure:"limits"`
	Fees struct {
		Transfer []FeeTierSetting `mapstructure:"transfer"`
	} `mapstructure:"fees"`
}

var AppConfig Config

func LoadConfig() {
	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	var fileLookupError viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil {
		if errors.As(err, &fileLookupError) {
			logger.Log.Fatal("config file not found", zap.Error(err))
		}
		logger.Log.Fatal("failed to read config", zap.Error(err))
	}

	viper.Unmarshal(&AppConfig)
}
