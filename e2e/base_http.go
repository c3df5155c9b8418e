package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"

	"wa-gateway/auth"
)

type BaseHTTPSuite struct {
	suite.Suite
	Config Config
	client *http.Client
	token  string
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.GatewayAddr == "" {
		s.T().Skip("GATEWAY_ADDR not set, skipping end to end suite")
	}

	tokens := auth.NewTokenManager(s.Config.JWTSecret, time.Hour)
	s.token, err = tokens.GenerateToken("e2e-suite")
	s.Require().NoError(err)

	s.client = &http.Client{Timeout: 30 * time.Second}
}

// Call performs one authenticated request against the gateway and decodes
// the JSON response, with colorized step logging.
func (s *BaseHTTPSuite) Call(t *testing.T, name, method, path string, body any) (int, map[string]any) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, s.Config.GatewayAddr+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	if s.Config.DebugJSON {
		t.Logf("%s %s -> %d\n%s", method, path, resp.StatusCode, string(raw))
	}

	payload := map[string]any{}
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &payload))
	}
	return resp.StatusCode, payload
}
