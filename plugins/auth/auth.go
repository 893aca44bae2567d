// Package auth provides the bundled authentication plugin. It issues and
// verifies HMAC-signed JWTs and offers bcrypt password hashing to other
// plugins and to the host application.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-petal/petal/factory"
	"github.com/go-petal/petal/plugins"
)

const (
	// Name is the plugin's registry name.
	Name = "auth"
	// Version is the plugin's semantic version.
	Version = "1.0.0"

	confKey = "petal.auth"
)

func init() {
	factory.Global().RegisterPlugin(Name, func() plugins.Plugin {
		return New()
	})
}

// Config holds the auth plugin settings, read from the application
// configuration under "petal.auth" during OnLoad.
type Config struct {
	Secret   string `json:"secret"`
	Issuer   string `json:"issuer"`
	TokenTTL string `json:"token_ttl"`
}

// Plugin implements JWT issuance/verification behind the "auth" capability.
type Plugin struct {
	meta *plugins.PluginMetadata

	mu      sync.RWMutex
	ready   bool
	secret  []byte
	issuer  string
	ttl     time.Duration
	signAlg jwt.SigningMethod
}

// Option customises the plugin at construction time.
type Option func(*Plugin)

// WithSecret sets the signing secret, overriding configuration.
func WithSecret(secret []byte) Option {
	return func(p *Plugin) { p.secret = secret }
}

// WithIssuer sets the token issuer claim.
func WithIssuer(issuer string) Option {
	return func(p *Plugin) { p.issuer = issuer }
}

// WithTokenTTL sets the token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(p *Plugin) { p.ttl = ttl }
}

/// New creates the auth plugin with defaults: HS256 signing, one-hour tokens.
func New(opts ...Option) *Plugin {
	p := &Plugin{
		meta: plugins.NewMetadata(Name, Version).
			WithDescription("JWT authentication and password hashing").
			WithTrust(plugins.TrustTrusted).
			MustBuild(),
		issuer:  "petal",
		ttl:     time.Hour,
		signAlg: jwt.SigningMethodHS256,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Metadata implements plugins.Plugin.
func (p *Plugin) Metadata() *plugins.PluginMetadata { return p.meta }

// Capabilities implements plugins.Plugin.
func (p *Plugin) Capabilities() []plugins.Capability {
	return []plugins.Capability{plugins.CapabilityAuth}
}

// OnLoad reads the plugin configuration. A missing or unscannable config
// section keeps the constructor defaults; invalid values fail the load.
func (p *Plugin) OnLoad(ctx context.Context, pctx *plugins.PluginContext) error {
	conf := pctx.Config()
	if conf == nil {
		return nil
	}
	var c Config
	if err := conf.Value(confKey).Scan(&c); err != nil {
		// Section absent or not a map; keep defaults.
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c.Secret != "" {
		p.secret = []byte(c.Secret)
	}
	if c.Issuer != "" {
		p.issuer = c.Issuer
	}
	if c.TokenTTL != "" {
		ttl, err := time.ParseDuration(c.TokenTTL)
		if err != nil {
			return fmt.Errorf("auth: invalid token_ttl %q: %w", c.TokenTTL, err)
		}
		if ttl <= 0 {
			return fmt.Errorf("auth: token_ttl must be positive, got %s", ttl)
		}
		p.ttl = ttl
	}
	return nil
}

// OnEnable verifies the plugin has a signing secret and marks it ready.
func (p *Plugin) OnEnable(ctx context.Context, pctx *plugins.PluginContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.secret) == 0 {
		return errors.New("auth: no signing secret configured")
	}
	p.ready = true
	return nil
}

// OnDisable marks the plugin unavailable to token consumers.
func (p *Plugin) OnDisable(ctx context.Context, pctx *plugins.PluginContext) error {
	p.mu.Lock()
	p.ready = false
	p.mu.Unlock()
	return nil
}

// OnUnload zeroes the signing secret.
func (p *Plugin) OnUnload(ctx context.Context, pctx *plugins.PluginContext) error {
	p.mu.Lock()
	for i := range p.secret {
		p.secret[i] = 0
	}
	p.secret = nil
	p.mu.Unlock()
	return nil
}

// IssueToken signs a JWT for the given subject with the extra claims merged
// in. Standard claims (iss, sub, iat, exp) always win over extras.
func (p *Plugin) IssueToken(subject string, extra map[string]any) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.ready {
		return "", errors.New("auth: plugin is not enabled")
	}

	now := time.Now()
	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}
	claims["iss"] = p.issuer
	claims["sub"] = subject
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(p.ttl).Unix()

	return jwt.NewWithClaims(p.signAlg, claims).SignedString(p.secret)
}

// VerifyToken parses and validates a token string, returning its claims.
func (p *Plugin) VerifyToken(tokenString string) (jwt.MapClaims, error) {
	p.mu.RLock()
	secret := p.secret
	ready := p.ready
	issuer := p.issuer
	p.mu.RUnlock()
	if !ready {
		return nil, errors.New("auth: plugin is not enabled")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	return claims, nil
}

// HashPassword hashes a plaintext password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash against a plaintext candidate.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
