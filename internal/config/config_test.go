package config

import (
	"errors"
	"testing"
)

func TestValidateRejectsOutOfRangePorts(t *testing.T) {
	cases := []Config{
		{HTTPPort: 0, P2PPort: 5000, PrivateKey: "k"},
		{HTTPPort: 70000, P2PPort: 5000, PrivateKey: "k"},
		{HTTPPort: 3000, P2PPort: 0, PrivateKey: "k"},
		{HTTPPort: 3000, P2PPort: 5000, PrivateKey: ""},
	}
	for i, c := range cases {
		if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("case %d: Validate() = %v, want ErrInvalidConfig", i, err)
		}
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	c := Config{HTTPPort: 3000, P2PPort: 5000, PrivateKey: "wallet/private_key"}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() rejected a well-formed config: %v", err)
	}
}

func TestNewLoggerFallsBackOnBadLevel(t *testing.T) {
	c := Config{LogLevel: "not-a-level"}
	if l := c.NewLogger(); l == nil {
		t.Fatalf("NewLogger() returned nil")
	}
}
