package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr          string
	DBDSN             string
	JWTSecret         string
	AdminPasswordHash string
	InternalToken     string
	WebSocketOrigin   string
	PriceAPIURL       string
	PriceAPIKey       string
	PriceTimeout      time.Duration
	SettleInterval    time.Duration
	LockTimeout       time.Duration
	WithdrawMin       decimal.Decimal
	LogLevel          string
	LogFile           string
}

func Load() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	c.AdminPasswordHash = os.Getenv("ADMIN_PASSWORD_HASH")
	if c.AdminPasswordHash == "" {
		missing = append(missing, "ADMIN_PASSWORD_HASH")
	}
	c.InternalToken = os.Getenv("INTERNAL_API_TOKEN")
	if c.InternalToken == "" {
		missing = append(missing, "INTERNAL_API_TOKEN")
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}
	c.PriceAPIURL = os.Getenv("PRICE_API_URL")
	if c.PriceAPIURL == "" {
		missing = append(missing, "PRICE_API_URL")
	}
	c.PriceAPIKey = os.Getenv("PRICE_API_KEY")

	var err error
	c.PriceTimeout, err = durationEnv("PRICE_TIMEOUT", 2*time.Second)
	if err != nil {
		return c, err
	}
	c.SettleInterval, err = durationEnv("SETTLE_INTERVAL", time.Second)
	if err != nil {
		return c, err
	}
	c.LockTimeout, err = durationEnv("LOCK_TIMEOUT", 30*time.Second)
	if err != nil {
		return c, err
	}

	withdrawMin := os.Getenv("WITHDRAW_MIN")
	if withdrawMin == "" {
		withdrawMin = "50000"
	}
	c.WithdrawMin, err = decimal.NewFromString(withdrawMin)
	if err != nil {
		return c, errors.New("invalid WITHDRAW_MIN")
	}

	c.LogLevel = os.Getenv("LOG_LEVEL")
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.LogFile = os.Getenv("LOG_FILE")

	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return d, nil
}
