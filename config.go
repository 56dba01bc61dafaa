package tokenkit

import (
	"errors"
	"time"
)

// Config defines the tokenkit service configuration. Instances are assembled
// during initialization and treated as immutable afterwards.
type Config struct {
	JWT      JWTConfig
	Refresh  RefreshConfig
	Denylist DenylistConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds access-token signing configuration.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls refresh-token lifetime and the rotation protocol.
type RefreshConfig struct {
	TTL time.Duration
	// RotationGraceWindow is the bounded exception to "any reuse revokes
	// everything": a duplicate rotation arriving within the window after a
	// legitimate rotation is answered with the same pair instead of
	// escalating. Zero disables it; Validate caps it at 10 seconds.
	RotationGraceWindow time.Duration
}

/*
====================================
DENYLIST CONFIG
====================================
*/

// DenylistConfig controls access-token revocation behavior.
type DenylistConfig struct {
	RedisPrefix string
	// TrackIssuedAccess enables zero-exposure mode: every issued access jti
	// is tracked so RevokeAllForUser can deny outstanding access tokens
	// immediately, trading memory for a tighter security window. When false
	// (default), outstanding access tokens survive until natural expiry.
	TrackIssuedAccess bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration: Ed25519 signing, a
// fifteen minute access TTL, a thirty day refresh TTL, and no grace
// window. Callers still have to supply keys before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "ed25519",
		},
		Refresh: RefreshConfig{
			TTL:                 30 * 24 * time.Hour,
			RotationGraceWindow: 0,
		},
		Denylist: DenylistConfig{
			RedisPrefix:       "tkdl",
			TrackIssuedAccess: false,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
		return errors.New("hs256 requires PrivateKey of at least 256 bits")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Refresh
	if c.Refresh.TTL <= 0 {
		return errors.New("Refresh TTL must be > 0")
	}
	if c.Refresh.TTL <= c.JWT.AccessTTL {
		return errors.New("Refresh TTL must exceed JWT AccessTTL")
	}
	if c.Refresh.RotationGraceWindow < 0 {
		return errors.New("Refresh RotationGraceWindow must be >= 0")
	}
	// The grace window is a carve-out from reuse detection; keeping it in
	// single-digit seconds keeps the security property intact.
	if c.Refresh.RotationGraceWindow > 10*time.Second {
		return errors.New("Refresh RotationGraceWindow must be <= 10s")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
