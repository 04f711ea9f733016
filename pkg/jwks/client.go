package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownKey   = errors.New("no matching signing key")
)

// Config describes the token issuer.
type Config struct {
	Issuer   string
	Audience string
	// JWKSURL defaults to "<issuer>/.well-known/jwks.json".
	JWKSURL string
	// Secret switches the verifier to HS256 shared-secret mode.
	Secret string

	HTTPClient *http.Client
	Leeway     time.Duration
}

// Verifier validates bearer tokens and returns their claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (jwt.MapClaims, error)
}

// NewVerifier returns an HS256 verifier when a secret is configured and an
// RS256 JWKS verifier otherwise.
func NewVerifier(cfg Config, logger *zap.Logger) (Verifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Secret != "" {
		return &secretVerifier{secret: []byte(cfg.Secret), parser: newParser(cfg, jwt.SigningMethodHS256.Alg())}, nil
	}
	if cfg.Issuer == "" && cfg.JWKSURL == "" {
		return nil, errors.New("jwks: issuer or jwks url is required")
	}
	return NewClient(cfg, logger), nil
}

func newParser(cfg Config, alg string) *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return jwt.NewParser(opts...)
}

type secretVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func (v *secretVerifier) Verify(_ context.Context, tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Client verifies RS256 tokens against the issuer's JWKS. Keys are cached by
// kid and refetched when a token names an unknown kid.
type Client struct {
	jwksURL    string
	parser     *jwt.Parser
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastRefresh time.Time // last fetch attempt
}

// minRefreshInterval bounds how often unknown kids can trigger a JWKS fetch.
const minRefreshInterval = time.Minute

func NewClient(cfg Config, logger *zap.Logger) *Client {
	url := cfg.JWKSURL
	if url == "" {
		url = strings.TrimSuffix(cfg.Issuer, "/") + "/.well-known/jwks.json"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		jwksURL:    url,
		parser:     newParser(cfg, jwt.SigningMethodRS256.Alg()),
		httpClient: httpClient,
		logger:     logger,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

func (c *Client) Verify(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := c.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		return c.key(ctx, kid)
	})
	if err != nil {
		c.logger.Debug("Token rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

func (c *Client) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if k := c.cached(kid); k != nil {
		return k, nil
	}
	if !c.beginRefresh() {
		return nil, fmt.Errorf("%w: kid %q", ErrUnknownKey, kid)
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if k := c.cached(kid); k != nil {
		return k, nil
	}
	return nil, fmt.Errorf("%w: kid %q", ErrUnknownKey, kid)
}

// cached returns the key for kid. An empty kid matches only a single cached key.
func (c *Client) cached(kid string) *rsa.PublicKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if kid == "" && len(c.keys) == 1 {
		for _, k := range c.keys {
			return k
		}
	}
	return c.keys[kid]
}

// beginRefresh claims the next fetch slot. Failed fetches count too, so an
// unreachable issuer is not hit once per request.
func (c *Client) beginRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastRefresh.IsZero() && time.Since(c.lastRefresh) < minRefreshInterval {
		return false
	}
	c.lastRefresh = time.Now()
	return true
}

func (c *Client) refresh(ctx context.Context) error {
	c.logger.Info("Fetching JWKS", zap.String("url", c.jwksURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build jwks request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected jwks status code: %d", resp.StatusCode)
	}

	var set struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			Alg string `json:"alg"`
			Use string `json:"use"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := parseJWK(k.N, k.E)
		if err != nil {
			c.logger.Warn("Skipping malformed JWK", zap.String("kid", k.Kid), zap.Error(err))
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("no suitable RSA signing key found in jwks")
	}

	c.mu.Lock()
	c.keys = keys
	c.mu.Unlock()

	c.logger.Info("Loaded JWKS", zap.Int("keys", len(keys)))
	return nil
}

func parseJWK(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("failed to decode n: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("failed to decode e: %w", err)
	}

	eBig := new(big.Int).SetBytes(eBytes)
	if !eBig.IsInt64() || eBig.Int64() <= 1 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(eBig.Int64()),
	}, nil
}
