package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TypeAccess is the token type claim carried by every access token.
const TypeAccess = "access"

var (
	// ErrExpired is returned when a token's exp claim is in the past.
	ErrExpired = errors.New("token expired")
	// ErrMalformed is returned when a token cannot be decoded or lacks
	// required claims (sub, jti).
	ErrMalformed = errors.New("token malformed")
	// ErrWrongType is returned when a token's type claim does not match the
	// expected purpose.
	ErrWrongType = errors.New("wrong token type")
	// ErrBadSignature is returned when signature verification fails.
	ErrBadSignature = errors.New("bad token signature")
)

// SigningMethod selects the signature algorithm for issued tokens.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

// Config holds the signing key material and validation policy. Instances are
// configured at startup and treated as immutable afterwards.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// AccessClaims is the decoded claim set of an access token. Permissions are
// opaque to this package; callers interpret them.
type AccessClaims struct {
	TokenType   string   `json:"type"`
	Permissions []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies self-contained tokens. It is stateless: Verify
// never consults any revocation state.
type Manager struct {
	config Config
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// Issue signs an access token for subject with the given permissions and
// optional extra claims. A zero ttl falls back to the configured AccessTTL.
// The jti must be supplied by the caller so server-side bookkeeping and the
// token agree on the identifier.
func (m *Manager) Issue(
	subject string,
	jti string,
	permissions []string,
	extra map[string]any,
	ttl time.Duration,
	now time.Time,
) (string, error) {
	if subject == "" || jti == "" {
		return "", ErrMalformed
	}
	if ttl <= 0 {
		ttl = m.config.AccessTTL
	}

	claims := jwt.MapClaims{
		"sub":  subject,
		"jti":  jti,
		"iat":  jwt.NewNumericDate(now),
		"exp":  jwt.NewNumericDate(now.Add(ttl)),
		"type": TypeAccess,
	}
	if len(permissions) > 0 {
		claims["perms"] = permissions
	}
	if m.config.Issuer != "" {
		claims["iss"] = m.config.Issuer
	}
	if m.config.Audience != "" {
		claims["aud"] = m.config.Audience
	}
	for k, v := range extra {
		if _, reserved := claims[k]; !reserved {
			claims[k] = v
		}
	}

	token := jwt.NewWithClaims(m.getMethod(), claims)

	signKey, err := m.getSignKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(signKey)
}

// Verify checks signature and registered claims and returns the decoded
// claim set. Failures map onto exactly one package sentinel:
// ErrExpired, ErrBadSignature, ErrWrongType, or ErrMalformed.
func (m *Manager) Verify(tokenStr string) (*AccessClaims, error) {
	claims, err := m.parseRaw(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TypeAccess {
		return nil, ErrWrongType
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

// IssueOneTime signs a single-purpose token (email verification, password
// reset) with the given type claim. The same key material is used; Verify
// rejects these for API access via the type check. The jti lets callers
// invalidate a one-time token before its natural expiry.
func (m *Manager) IssueOneTime(subject, jti, kind string, ttl time.Duration, now time.Time) (string, error) {
	if subject == "" || jti == "" || kind == "" || kind == TypeAccess {
		return "", ErrMalformed
	}
	if ttl <= 0 {
		return "", errors.New("invalid one-time token ttl")
	}

	claims := jwt.MapClaims{
		"sub":  subject,
		"jti":  jti,
		"iat":  jwt.NewNumericDate(now),
		"exp":  jwt.NewNumericDate(now.Add(ttl)),
		"type": kind,
	}
	if m.config.Issuer != "" {
		claims["iss"] = m.config.Issuer
	}

	token := jwt.NewWithClaims(m.getMethod(), claims)
	signKey, err := m.getSignKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(signKey)
}

// VerifyOneTime validates a single-purpose token and returns its claim set
// so callers can read the subject, jti, and expiry.
func (m *Manager) VerifyOneTime(tokenStr, kind string) (*AccessClaims, error) {
	claims, err := m.parseRaw(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != kind {
		return nil, ErrWrongType
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

func (m *Manager) parseRaw(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.getMethod().Alg()}),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.getVerifyKey()
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	default:
		return ErrMalformed
	}
}

func (m *Manager) getMethod() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) getSignKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(m.config.PrivateKey)
	}
}

func (m *Manager) getVerifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		return parseEdPublicKey(m.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
