package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/iliyamo/donation-identity/internal/model"
	"github.com/iliyamo/donation-identity/internal/repository"
	"github.com/iliyamo/donation-identity/internal/utils"
)

// GoogleUserInfoURL is the profile endpoint queried with the access token.
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// CallbackPath is appended to the redirect base URL.
const CallbackPath = "/v1/auth/google/callback"

// OAuthConfig holds client credentials and provider endpoints. Endpoint
// and UserInfoURL default to Google's.
type OAuthConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectBaseURL string
	Endpoint        oauth2.Endpoint
	UserInfoURL     string
}

// Profile is the subset of the provider's userinfo document the bridge uses.
type Profile struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Name       string `json:"name"`
}

// OAuthBridge runs the authorization code flow and maps the resulting
// profile onto a users row.
type OAuthBridge struct {
	cfg      OAuthConfig
	users    UserStore
	registry Registry
	sessions SessionMinter
	client   *http.Client
	logger   *log.Logger
}

func NewOAuthBridge(cfg OAuthConfig, users UserStore, registry Registry, sessions SessionMinter, logger *log.Logger) *OAuthBridge {
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = endpoints.Google
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = GoogleUserInfoURL
	}
	return &OAuthBridge{
		cfg:      cfg,
		users:    users,
		registry: registry,
		sessions: sessions,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

func (b *OAuthBridge) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     b.cfg.ClientID,
		ClientSecret: b.cfg.ClientSecret,
		Endpoint:     b.cfg.Endpoint,
		RedirectURL:  strings.TrimRight(b.cfg.RedirectBaseURL, "/") + CallbackPath,
		Scopes:       []string{"email", "profile"},
	}
}

// BuildAuthURL returns the provider consent URL.
func (b *OAuthBridge) BuildAuthURL() (string, error) {
	if b.cfg.ClientID == "" {
		return "", ErrOAuthNotConfigured
	}
	return b.oauth2Config().AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// ExchangeCode trades an authorization code for an access token.
func (b *OAuthBridge) ExchangeCode(ctx context.Context, code string) (string, error) {
	if b.cfg.ClientID == "" || b.cfg.ClientSecret == "" {
		return "", ErrOAuthNotConfigured
	}
	if code == "" {
		return "", &ProviderError{Stage: ErrTokenExchangeFailed, Detail: "missing code"}
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.client)
	tok, err := b.oauth2Config().Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return "", &ProviderError{Stage: ErrTokenExchangeFailed, Detail: strings.TrimSpace(string(re.Body))}
		}
		return "", &ProviderError{Stage: ErrTokenExchangeFailed, Detail: err.Error()}
	}
	return tok.AccessToken, nil
}

// FetchProfile reads the userinfo document for accessToken.
func (b *OAuthBridge) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.UserInfoURL, nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := b.client.Do(req)
	if err != nil {
		return Profile{}, &ProviderError{Stage: ErrProfileFetchFailed, Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode/100 != 2 {
		return Profile{}, &ProviderError{
			Stage:  ErrProfileFetchFailed,
			Detail: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return Profile{}, &ProviderError{Stage: ErrProfileFetchFailed, Detail: err.Error()}
	}
	p.Email = utils.NormalizeEmail(p.Email)
	if p.Email == "" {
		return Profile{}, &ProviderError{Stage: ErrProfileFetchFailed, Detail: "profile has no email"}
	}
	if !utils.IsEmail(p.Email) {
		return Profile{}, &ProviderError{Stage: ErrProfileFetchFailed, Detail: "profile email is malformed"}
	}
	return p, nil
}

// ResolveUser returns the user owning the profile's email unchanged, or
// creates a PENDING ambassador with no password. OAuth never creates or
// upgrades an admin or donor.
func (b *OAuthBridge) ResolveUser(ctx context.Context, p Profile) (model.User, error) {
	u, err := b.users.GetByEmail(ctx, p.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, err
	}
	if err := b.registry.EnsureAvailable(ctx, p.Email, "", ""); err != nil {
		return model.User{}, err
	}

	name := p.GivenName
	if name == "" {
		name = p.Name
	}
	if name == "" {
		name, _, _ = strings.Cut(p.Email, "@")
	}
	u = model.User{
		Name:       name,
		FamilyName: opt(p.FamilyName),
		Email:      &p.Email,
		Role:       model.RoleAmbassador,
		Status:     model.StatusPending,
	}
	id, err := b.users.Create(ctx, &u)
	if errors.Is(err, repository.ErrEmailExists) {
		// Another callback for the same email won the insert.
		return b.users.GetByEmail(ctx, p.Email)
	}
	if err != nil {
		return model.User{}, fromStore(err)
	}
	u.ID = id
	b.logger.Infof("user %d onboarded through google", id)
	return u, nil
}

// Complete runs exchange, profile fetch, resolution and session issuance
// for a callback code.
func (b *OAuthBridge) Complete(ctx context.Context, code string) (Session, error) {
	token, err := b.ExchangeCode(ctx, code)
	if err != nil {
		return Session{}, err
	}
	profile, err := b.FetchProfile(ctx, token)
	if err != nil {
		return Session{}, err
	}
	u, err := b.ResolveUser(ctx, profile)
	if err != nil {
		return Session{}, err
	}
	tok, err := b.sessions.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: tok.Token, ExpiresAt: tok.Exp, Principal: model.UserPrincipal(u)}, nil
}
