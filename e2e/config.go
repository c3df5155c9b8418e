package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// GATEWAY_ADDR points the suite at a running gateway, e.g. http://localhost:8080.
	// The suite is skipped when empty.
	GatewayAddr string `envconfig:"GATEWAY_ADDR"`
	// JWT_SECRET must match the gateway's signing secret.
	JWTSecret string `envconfig:"JWT_SECRET"`
	// LOCATION_IDENTIFIER is the tenant exercised by the scenario.
	LocationIdentifier string `envconfig:"LOCATION_IDENTIFIER" default:"e2e-location"`
	// E2E_DEBUG_JSON dumps full response bodies for troubleshooting
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
