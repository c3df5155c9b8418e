package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host     string `env:"HOST,required=true"`
	Port     int    `env:"PORT,required=true"`
	LogLevel string `env:"LOG_LEVEL,required=true"`

	// BadgerFilepath holds the message cache and the tenant records.
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	// DeviceStoreDSN is the sqlite3 connection string of the protocol
	// credential store, e.g. "file:devices.db?_foreign_keys=on".
	DeviceStoreDSN string `env:"DEVICE_STORE_DSN,required=true"`

	QRWebhookURL     string        `env:"QR_WEBHOOK_URL,required=true"`
	LoginWebhookURL  string        `env:"LOGIN_WEBHOOK_URL,required=true"`
	NotifyTimeout    time.Duration `env:"NOTIFY_TIMEOUT,required=true"`
	NotifyBufferSize int           `env:"NOTIFY_BUFFER_SIZE,required=true"`

	// SyncInterval is how often the cache is flushed to disk.
	SyncInterval      time.Duration `env:"SYNC_INTERVAL,required=true"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,required=true"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
