package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/koios/flipdot-renderer/internal/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SubjectKey is the gin context key holding the authenticated subject
const SubjectKey = "auth_subject"

// DefaultAPIKeyHeader is used when the config leaves the header name empty
const DefaultAPIKeyHeader = "X-API-Key"

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Authenticator checks API requests against a static bearer token, HMAC
// signed JWTs, or a bcrypt-hashed API key. Any one matching credential is
// enough.
type Authenticator struct {
	token        string
	jwtSecret    []byte
	apiKeyHash   []byte
	apiKeyHeader string
	logger       *zap.Logger
}

// New creates an authenticator from config
func New(cfg config.AuthConfig, logger *zap.Logger) *Authenticator {
	header := cfg.APIKeyHeader
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	a := &Authenticator{
		token:        cfg.Token,
		apiKeyHeader: header,
		logger:       logger,
	}
	if cfg.JWTSecret != "" {
		a.jwtSecret = []byte(cfg.JWTSecret)
	}
	if cfg.APIKeyHash != "" {
		a.apiKeyHash = []byte(cfg.APIKeyHash)
	}
	return a
}

// Enabled reports whether any credential is configured. A disabled
// authenticator lets every request through.
func (a *Authenticator) Enabled() bool {
	return a.token != "" || len(a.jwtSecret) > 0 || len(a.apiKeyHash) > 0
}

// Authenticate returns the subject of the request's credentials
func (a *Authenticator) Authenticate(r *http.Request) (string, error) {
	if !a.Enabled() {
		return "anonymous", nil
	}

	if key := r.Header.Get(a.apiKeyHeader); key != "" && len(a.apiKeyHash) > 0 {
		if bcrypt.CompareHashAndPassword(a.apiKeyHash, []byte(key)) == nil {
			return "api_key", nil
		}
		return "", ErrInvalidCredentials
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingCredentials
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidCredentials
	}
	bearer := parts[1]

	if a.token != "" && subtle.ConstantTimeCompare([]byte(bearer), []byte(a.token)) == 1 {
		return "token", nil
	}
	if len(a.jwtSecret) > 0 {
		if sub, err := parseToken(bearer, a.jwtSecret); err == nil {
			return sub, nil
		}
	}
	return "", ErrInvalidCredentials
}

// Middleware aborts unauthenticated requests with 401
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := a.Authenticate(c.Request)
		if err != nil {
			a.logger.Warn("Unauthorized request",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(SubjectKey, subject)
		c.Next()
	}
}

// GenerateJWT signs a token for subject valid for ttl
func GenerateJWT(subject, secret string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

func parseToken(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidCredentials
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidCredentials
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidCredentials
	}
	return sub, nil
}

// HashAPIKey returns the bcrypt hash to put in AUTH_API_KEY_HASH
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(hash), err
}
