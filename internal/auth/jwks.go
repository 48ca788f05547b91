package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWKSVerifier validates bearer tokens against the issuer's published key set.
// The key set is fetched on every verification; nothing is cached between requests.
type JWKSVerifier struct {
	httpClient *http.Client
	issuer     string
	jwksURL    string
}

func NewJWKSVerifier(httpClient *http.Client, issuer string) *JWKSVerifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	issuer = strings.TrimRight(issuer, "/")
	return &JWKSVerifier{
		httpClient: httpClient,
		issuer:     issuer,
		jwksURL:    issuer + "/.well-known/jwks.json",
	}
}

// Verify checks signature, issuer and expiry and returns the identity in the claims.
// All failures wrap ErrUnauthenticated.
func (v *JWKSVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	if tokenString == "" || v.issuer == "" {
		return nil, ErrUnauthenticated
	}
	keys, err := v.fetchKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	claims := jwt.MapClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if key, ok := keys[kid]; ok {
			return key, nil
		}
		// Single-key sets are commonly published without a kid on the token.
		if kid == "" && len(keys) == 1 {
			for _, key := range keys {
				return key, nil
			}
		}
		return nil, fmt.Errorf("kid not found in jwks: %q", kid)
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	identity := claimsToIdentity(claims)
	if identity.ID == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrUnauthenticated)
	}
	return identity, nil
}

func claimsToIdentity(c jwt.MapClaims) *Identity {
	str := func(key string) string {
		s, _ := c[key].(string)
		return s
	}
	return &Identity{
		ID:         str("sub"),
		GivenName:  str("given_name"),
		FamilyName: str("family_name"),
		Email:      str("email"),
		Picture:    str("picture"),
	}
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`

	// RSA
	N string `json:"n"`
	E string `json:"e"`

	// EC
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func (v *JWKSVerifier) fetchKeys(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("jwks fetch failed: %s", res.Status)
	}

	var set jwkSet
	if err := json.NewDecoder(res.Body).Decode(&set); err != nil {
		return nil, err
	}

	keys := map[string]any{}
	for _, k := range set.Keys {
		switch k.Kty {
		case "RSA":
			if pub, err := rsaFromModExp(k.N, k.E); err == nil {
				keys[k.Kid] = pub
			}
		case "EC":
			if pub, err := ecdsaFromXY(k.Crv, k.X, k.Y); err == nil {
				keys[k.Kid] = pub
			}
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("jwks contained no usable keys")
	}
	return keys, nil
}

func rsaFromModExp(nB64, eB64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}

	e := 0
	for _, b := range eb {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}

func ecdsaFromXY(crv, xB64, yB64 string) (*ecdsa.PublicKey, error) {
	if crv != "P-256" {
		return nil, fmt.Errorf("unsupported curve: %s", crv)
	}
	xb, err := base64.RawURLEncoding.DecodeString(xB64)
	if err != nil {
		return nil, err
	}
	yb, err := base64.RawURLEncoding.DecodeString(yB64)
	if err != nil {
		return nil, err
	}

	curve := elliptic.P256()
	x := new(big.Int).SetBytes(xb)
	y := new(big.Int).SetBytes(yb)
	if !curve.IsOnCurve(x, y) {
		return nil, fmt.Errorf("invalid EC point")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}
