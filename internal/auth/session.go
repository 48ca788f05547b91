package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	cookieAccessToken  = "access_token"
	cookieIDToken      = "id_token"
	cookieRefreshToken = "refresh_token"
	cookieState        = "ac-state-key"
	cookieVerifier     = "ac-code-verifier"

	refreshTokenTTL = 30 * 24 * time.Hour
	stateTTL        = 10 * time.Minute
)

var errStateMismatch = errors.New("oauth state mismatch")

type SessionConfig struct {
	IssuerBaseURL string
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	// SiteURL is where the provider sends the browser after logout.
	SiteURL    string
	HTTPClient *http.Client
}

// SessionFlow runs the authorization code flow and keeps tokens in HTTP-only cookies.
type SessionFlow struct {
	oauth      *oauth2.Config
	issuer     string
	siteURL    string
	httpClient *http.Client
}

func NewSessionFlow(cfg SessionConfig) *SessionFlow {
	issuer := strings.TrimRight(cfg.IssuerBaseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &SessionFlow{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "profile", "email", "offline"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  issuer + "/oauth2/auth",
				TokenURL: issuer + "/oauth2/token",
			},
		},
		issuer:     issuer,
		siteURL:    cfg.SiteURL,
		httpClient: httpClient,
	}
}

// LoginURL starts a new flow. register asks the provider for its sign-up screen.
func (f *SessionFlow) LoginURL(w http.ResponseWriter, register bool) (string, error) {
	state, err := randomState()
	if err != nil {
		return "", err
	}
	verifier := oauth2.GenerateVerifier()
	setCookie(w, cookieState, state, stateTTL)
	setCookie(w, cookieVerifier, verifier, stateTTL)

	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if register {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "create"))
	}
	return f.oauth.AuthCodeURL(state, opts...), nil
}

// Callback exchanges the authorization code and stores the session cookies.
func (f *SessionFlow) Callback(w http.ResponseWriter, r *http.Request) error {
	stateCookie, err := r.Cookie(cookieState)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		return errStateMismatch
	}
	if msg := r.URL.Query().Get("error"); msg != "" {
		return fmt.Errorf("authorization denied: %s", msg)
	}

	var opts []oauth2.AuthCodeOption
	if c, err := r.Cookie(cookieVerifier); err == nil && c.Value != "" {
		opts = append(opts, oauth2.VerifierOption(c.Value))
	}
	token, err := f.oauth.Exchange(f.clientContext(r.Context()), r.URL.Query().Get("code"), opts...)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}

	clearCookie(w, cookieState)
	clearCookie(w, cookieVerifier)
	f.storeToken(w, token)
	return nil
}

// LogoutURL clears the session cookies and returns the provider logout URL.
func (f *SessionFlow) LogoutURL(w http.ResponseWriter) string {
	for _, name := range []string{cookieAccessToken, cookieIDToken, cookieRefreshToken, "user"} {
		clearCookie(w, name)
	}
	return f.issuer + "/logout?redirect=" + url.QueryEscape(f.siteURL)
}

// Authenticate resolves the session in the request cookies. An expired access token
// is refreshed once through the token endpoint and the new cookies are written to w.
func (f *SessionFlow) Authenticate(w http.ResponseWriter, r *http.Request) (*Identity, error) {
	current := &oauth2.Token{}
	if c, err := r.Cookie(cookieAccessToken); err == nil {
		current.AccessToken = c.Value
	}
	if c, err := r.Cookie(cookieRefreshToken); err == nil {
		current.RefreshToken = c.Value
	}
	if current.AccessToken == "" && current.RefreshToken == "" {
		return nil, ErrUnauthenticated
	}

	ctx := f.clientContext(r.Context())
	token, err := f.oauth.TokenSource(ctx, current).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh failed: %v", ErrUnauthenticated, err)
	}
	if token.AccessToken != current.AccessToken {
		f.storeToken(w, token)
	}

	identity, err := f.profile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return identity, nil
}

func (f *SessionFlow) profile(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.issuer+"/oauth2/v2/user_profile", nil)
	if err != nil {
		return nil, err
	}
	res, err := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token)).Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user profile request failed: %s", res.Status)
	}

	var identity Identity
	if err := json.NewDecoder(res.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("decode user profile: %w", err)
	}
	if identity.ID == "" {
		return nil, fmt.Errorf("user profile has no id")
	}
	return &identity, nil
}

func (f *SessionFlow) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
}

func (f *SessionFlow) storeToken(w http.ResponseWriter, token *oauth2.Token) {
	// The access cookie expires with the token so the next request takes the refresh path.
	accessTTL := time.Hour
	if !token.Expiry.IsZero() {
		accessTTL = time.Until(token.Expiry)
	}
	setCookie(w, cookieAccessToken, token.AccessToken, accessTTL)
	if token.RefreshToken != "" {
		setCookie(w, cookieRefreshToken, token.RefreshToken, refreshTokenTTL)
	}
	if idToken, ok := token.Extra("id_token").(string); ok && idToken != "" {
		setCookie(w, cookieIDToken, idToken, accessTTL)
	}
}

func setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
