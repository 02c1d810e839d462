package discord

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/context"
)

const tokenEndpoint = "https://discord.com/api/oauth2/token"

type AuthService interface {
	GetAccessToken(ctx context.Context, code string) (*AuthResponse, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
}

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthServiceImpl struct {
	http         *resty.Client
	clientID     string
	clientSecret string
	redirectURI  string
	tokenURL     string
}

func NewAuthService(client *resty.Client, clientID, clientSecret, redirectURI string) *AuthServiceImpl {
	return &AuthServiceImpl{
		http:         client,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		tokenURL:     tokenEndpoint,
	}
}

func (a *AuthServiceImpl) GetAccessToken(ctx context.Context, code string) (*AuthResponse, error) {
	values := url.Values{
		"client_id":     []string{a.clientID},
		"client_secret": []string{a.clientSecret},
		"grant_type":    []string{"authorization_code"},
		"redirect_uri":  []string{a.redirectURI},
		"scope":         []string{"identify"},
		"code":          []string{code},
	}
	return a.exchange(ctx, values)
}

func (a *AuthServiceImpl) RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	values := url.Values{
		"client_id":     []string{a.clientID},
		"client_secret": []string{a.clientSecret},
		"grant_type":    []string{"refresh_token"},
		"redirect_uri":  []string{a.redirectURI},
		"scope":         []string{"identify"},
		"refresh_token": []string{refreshToken},
	}
	return a.exchange(ctx, values)
}

func (a *AuthServiceImpl) exchange(ctx context.Context, values url.Values) (*AuthResponse, error) {
	response := &AuthResponse{}
	responseError := &AuthError{}

	resp, err := a.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetResult(response).
		SetError(responseError).
		SetFormDataFromValues(values).
		Post(a.tokenURL)
	if err != nil {
		slog.With("error", err.Error()).Error("Error getting access token")
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("error getting access token: %w", responseError)
	}
	return response, nil
}
