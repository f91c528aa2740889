package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// Google's published signing keys and the two issuer spellings it uses.
const GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var GoogleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// minKeyRefresh stops a stream of tokens with unknown kids from turning
// into a stream of JWKS fetches.
const minKeyRefresh = 30 * time.Second

// ErrUnknownKey means the token's kid is not in the provider's key set,
// even after a refresh.
var ErrUnknownKey = errors.New("auth: id_token signed with unknown key")

// IDClaims is the subset of an OpenID Connect id_token we read.
type IDClaims struct {
	jwt.RegisteredClaims
	Email         string    `json:"email"`
	EmailVerified claimBool `json:"email_verified"`
	Name          string    `json:"name"`
}

// claimBool decodes a boolean claim that some issuers send as the string
// "true" or "false". A missing claim is false.
type claimBool bool

func (b *claimBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true":
		*b = true
	case "false", "null", "":
		*b = false
	default:
		return fmt.Errorf("auth: invalid boolean claim %s", data)
	}
	return nil
}

// VerifierConfig configures an IDTokenVerifier. Audience is required; the
// other fields default to Google's values.
type VerifierConfig struct {
	Audience   string // our OAuth client id
	JWKSURL    string
	Issuers    []string
	HTTPClient *http.Client
}

// IDTokenVerifier checks RS256 id_tokens against a remote JSON Web Key Set.
//
// Keys are cached by kid. A token naming an unknown kid triggers one
// refetch (Google rotates keys roughly weekly), rate limited by
// minKeyRefresh.
type IDTokenVerifier struct {
	audience string
	jwksURL  string
	issuers  []string
	client   *http.Client

	mu        sync.RWMutex
	keys      map[string]any
	fetchedAt time.Time
}

func NewIDTokenVerifier(cfg VerifierConfig) *IDTokenVerifier {
	v := &IDTokenVerifier{
		audience: cfg.Audience,
		jwksURL:  cfg.JWKSURL,
		issuers:  cfg.Issuers,
		client:   cfg.HTTPClient,
		keys:     map[string]any{},
	}
	if v.jwksURL == "" {
		v.jwksURL = GoogleJWKSURL
	}
	if len(v.issuers) == 0 {
		v.issuers = GoogleIssuers
	}
	if v.client == nil {
		v.client = &http.Client{Timeout: DefaultExchangeTimeout}
	}
	return v
}

// Verify checks the signature, audience, expiry and issuer of rawToken and
// returns its claims.
func (v *IDTokenVerifier) Verify(ctx context.Context, rawToken string) (*IDClaims, error) {
	var claims IDClaims
	_, err := jwt.ParseWithClaims(
		rawToken,
		&claims,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			return v.key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: verifying id_token: %w", err)
	}

	// jwt.WithIssuer accepts a single value; Google uses two.
	if !slices.Contains(v.issuers, claims.Issuer) {
		return nil, fmt.Errorf("auth: verifying id_token: unexpected issuer %q", claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, errors.New("auth: verifying id_token: no subject")
	}
	return &claims, nil
}

// key returns the public key for kid, refetching the key set on a miss.
func (v *IDTokenVerifier) key(ctx context.Context, kid string) (any, error) {
	v.mu.RLock()
	k, ok := v.keys[kid]
	stale := time.Since(v.fetchedAt) >= minKeyRefresh
	v.mu.RUnlock()
	if ok {
		return k, nil
	}
	if !stale {
		return nil, ErrUnknownKey
	}

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if k, ok := v.keys[kid]; ok {
		return k, nil
	}
	return nil, ErrUnknownKey
}

func (v *IDTokenVerifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("auth: building JWKS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth: fetching JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: fetching JWKS: status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&set); err != nil {
		return fmt.Errorf("auth: decoding JWKS: %w", err)
	}

	keys := make(map[string]any, len(set.Keys))
	for _, k := range set.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		if !k.IsPublic() {
			continue
		}
		keys[k.KeyID] = k.Key
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = time.Now()
	v.mu.Unlock()
	return nil
}
