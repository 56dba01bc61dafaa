package tokenkit

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with keys valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "jwt access ttl invalid",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = 0
			},
			wantValid: false,
		},
		{
			name: "jwt signing hs256 valid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "hs256"
				c.JWT.PrivateKey = make([]byte, 32)
			},
			wantValid: true,
		},
		{
			name: "jwt signing hs256 short key invalid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "hs256"
				c.JWT.PrivateKey = make([]byte, 16)
			},
			wantValid: false,
		},
		{
			name: "jwt signing unsupported",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "ed25519 missing private key invalid",
			mutate: func(c *Config) {
				c.JWT.PrivateKey = nil
			},
			wantValid: false,
		},
		{
			name: "ed25519 missing public key invalid",
			mutate: func(c *Config) {
				c.JWT.PublicKey = nil
			},
			wantValid: false,
		},
		{
			name: "refresh ttl zero invalid",
			mutate: func(c *Config) {
				c.Refresh.TTL = 0
			},
			wantValid: false,
		},
		{
			name: "refresh ttl below access ttl invalid",
			mutate: func(c *Config) {
				c.Refresh.TTL = 5 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "grace window valid",
			mutate: func(c *Config) {
				c.Refresh.RotationGraceWindow = 5 * time.Second
			},
			wantValid: true,
		},
		{
			name: "grace window negative invalid",
			mutate: func(c *Config) {
				c.Refresh.RotationGraceWindow = -time.Second
			},
			wantValid: false,
		},
		{
			name: "grace window too long invalid",
			mutate: func(c *Config) {
				c.Refresh.RotationGraceWindow = 30 * time.Second
			},
			wantValid: false,
		},
		{
			name: "audit enabled without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config, got nil")
			}
		})
	}
}

func TestDefaultConfigIsConsistent(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.JWT.SigningMethod != "ed25519" {
		t.Fatalf("expected ed25519 default, got %q", cfg.JWT.SigningMethod)
	}
	if cfg.Refresh.TTL <= cfg.JWT.AccessTTL {
		t.Fatal("default refresh TTL must exceed access TTL")
	}
	if cfg.Refresh.RotationGraceWindow != 0 {
		t.Fatal("grace window must default to off")
	}
}

func TestConfigCloneIsolatesKeys(t *testing.T) {
	cfg := testConfig(t)
	cloned := cloneConfig(cfg)

	cloned.JWT.PrivateKey[0] ^= 0xff
	if cfg.JWT.PrivateKey[0] == cloned.JWT.PrivateKey[0] {
		t.Fatal("clone must not share key backing arrays")
	}
}
