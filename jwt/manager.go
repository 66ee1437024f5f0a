package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken wraps every parse failure: bad signature, wrong algorithm,
// malformed structure, missing required claim or expiry.
var ErrInvalidToken = errors.New("invalid token")

// DefaultAccessTTL is the token lifetime used when Config.AccessTTL is zero.
const DefaultAccessTTL = 60 * time.Minute

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared HMAC-SHA256 secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// Config controls token issuance and verification.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	// PrivateKey is the HMAC secret for HS256 or the Ed25519 private key
	// (raw or PEM).
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
	// KeyID is written to the kid header; when VerifyKeys is set it must be
	// one of its keys.
	KeyID      string
	VerifyKeys map[string][]byte
	// Now overrides the clock used for iat/exp. Defaults to time.Now.
	Now func() time.Time
}

// Manager signs and verifies access tokens. It is immutable after
// construction and safe for concurrent use.
type Manager struct {
	config Config
}

// AccessClaims is the token payload. Subject carries the username and SID
// the opaque session token.
type AccessClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Username returns the subject claim.
func (c *AccessClaims) Username() string {
	return c.Subject
}

// NewManager validates cfg and returns a [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.AccessTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return &Manager{config: cfg}, nil
}

// TTL returns the default access token lifetime.
func (j *Manager) TTL() time.Duration {
	return j.config.AccessTTL
}

// CreateAccess signs a token for username bound to sessionToken. A
// non-positive ttl selects the configured AccessTTL.
func (j *Manager) CreateAccess(username, sessionToken string, ttl time.Duration) (string, error) {
	if username == "" || sessionToken == "" {
		return "", errors.New("username and session token are required")
	}
	if ttl <= 0 {
		ttl = j.config.AccessTTL
	}

	now := j.config.Now()
	claims := AccessClaims{
		SID: sessionToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
		},
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	token := jwt.NewWithClaims(j.getMethod(), claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}

	signKey, err := j.getSignKey()
	if err != nil {
		return "", err
	}

	return token.SignedString(signKey)
}

// ParseAccess verifies signature, algorithm, expiry and the presence of the
// sub, sid and exp claims. Every failure wraps [ErrInvalidToken].
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	options := j.parserOptions(
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.config.Now),
	)
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}

	return j.parse(tokenStr, options)
}

// ParseForRevocation verifies the signature and required claims but ignores
// time-based validation, so that logout can still end the session bound to an
// expired token.
func (j *Manager) ParseForRevocation(tokenStr string) (*AccessClaims, error) {
	return j.parse(tokenStr, j.parserOptions(jwt.WithoutClaimsValidation()))
}

func (j *Manager) parserOptions(extra ...jwt.ParserOption) []jwt.ParserOption {
	return append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{j.getMethod().Alg()}),
	}, extra...)
}

func (j *Manager) parse(tokenStr string, options []jwt.ParserOption) (*AccessClaims, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, j.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, jwt.ErrTokenInvalidClaims)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	if claims.SID == "" {
		return nil, fmt.Errorf("%w: missing sid", ErrInvalidToken)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrInvalidToken)
	}

	return claims, nil
}

func (j *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != j.getMethod().Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	kid, _ := t.Header["kid"].(string)
	if len(j.config.VerifyKeys) > 0 {
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := j.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return j.keyBytesToVerifyKey(key)
	}

	if j.config.KeyID != "" && kid != j.config.KeyID {
		return nil, errors.New("unknown kid")
	}

	return j.getVerifyKey()
}

func (j *Manager) getMethod() jwt.SigningMethod {
	if j.config.SigningMethod == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (j *Manager) getSignKey() (interface{}, error) {
	if j.config.SigningMethod == MethodEd25519 {
		if len(j.config.PrivateKey) == 0 {
			return nil, errors.New("ed25519 private key not configured")
		}
		return parseEdPrivateKey(j.config.PrivateKey)
	}
	return j.config.PrivateKey, nil
}

func (j *Manager) getVerifyKey() (interface{}, error) {
	if j.config.SigningMethod == MethodEd25519 {
		return parseEdPublicKey(j.config.PublicKey)
	}
	return j.config.PrivateKey, nil
}

func (j *Manager) keyBytesToVerifyKey(key []byte) (interface{}, error) {
	if j.config.SigningMethod == MethodEd25519 {
		return parseEdPublicKey(key)
	}
	return key, nil
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
