package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the bcrypt cost factor
	BcryptCost = 12
	// APIKeyHeader carries a static API key
	APIKeyHeader = "X-API-Key"
)

var (
	// ErrUnauthorized is returned when credentials are missing or invalid
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotConfigured is returned by token helpers when no JWT secret is set
	ErrNotConfigured = errors.New("jwt authentication not configured")
)

// Config configures request authentication. With neither APIKey nor
// JWTSecret set every request is accepted.
type Config struct {
	// APIKey is compared against the X-API-Key header or api_key query parameter.
	APIKey string

	// JWTSecret is the shared secret for HS256/384/512 bearer tokens.
	JWTSecret string

	// Issuer is the expected "iss" claim (optional).
	Issuer string

	// Audience is the expected "aud" claim (optional).
	Audience string
}

// Identity describes an authenticated caller
type Identity struct {
	Subject   string
	Method    string // "api_key", "jwt" or "anonymous"
	ExpiresAt time.Time
}

// Authenticator validates request credentials
type Authenticator struct {
	cfg Config
}

// New creates an authenticator
func New(cfg Config) *Authenticator {
	return &Authenticator{cfg: cfg}
}

// Enabled reports whether any credential is required
func (a *Authenticator) Enabled() bool {
	return a != nil && (a.cfg.APIKey != "" || a.cfg.JWTSecret != "")
}

// Authenticate checks the request's API key or bearer token
func (a *Authenticator) Authenticate(r *http.Request) (*Identity, error) {
	if !a.Enabled() {
		return &Identity{Method: "anonymous"}, nil
	}

	if a.cfg.APIKey != "" {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(a.cfg.APIKey)) == 1 {
				return &Identity{Subject: "api_key", Method: "api_key"}, nil
			}
			return nil, fmt.Errorf("%w: invalid api key", ErrUnauthorized)
		}
	}

	if a.cfg.JWTSecret != "" {
		if token, ok := bearerToken(r); ok {
			return a.ValidateToken(token)
		}
	}

	return nil, fmt.Errorf("%w: missing credentials", ErrUnauthorized)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ValidateToken parses a bearer token and checks its signature, expiry,
// issuer and audience
func (a *Authenticator) ValidateToken(tokenString string) (*Identity, error) {
	if a == nil || a.cfg.JWTSecret == "" {
		return nil, ErrNotConfigured
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token: %w", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}

	subject, _ := claims.GetSubject()
	if subject == "" {
		subject, _ = claims["name"].(string)
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: token missing sub or name claim", ErrUnauthorized)
	}

	identity := &Identity{Subject: subject, Method: "jwt"}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}
	return identity, nil
}

// IssueToken signs an HS256 token for subject, valid for ttl (0 never
// expires). It exists for
// operators minting tokens from the command line.
func (a *Authenticator) IssueToken(subject string, ttl time.Duration) (string, error) {
	if a == nil || a.cfg.JWTSecret == "" {
		return "", ErrNotConfigured
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
		Issuer:   a.cfg.Issuer,
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	if a.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{a.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// HashPassword hashes a password using bcrypt. A cost of 0 means BcryptCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = BcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// IsHashed reports whether s already looks like a bcrypt hash
func IsHashed(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// Methods lists the credential kinds the authenticator accepts
func (a *Authenticator) Methods() []string {
	var methods []string
	if a == nil {
		return methods
	}
	if a.cfg.APIKey != "" {
		methods = append(methods, "api_key")
	}
	if a.cfg.JWTSecret != "" {
		methods = append(methods, "jwt")
	}
	slices.Sort(methods)
	return methods
}
