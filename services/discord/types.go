package discord

import (
	"errors"
	"fmt"
)

// AuthResponse is Discord's token endpoint payload.
type AuthResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// Bearer renders the token the way the API expects it in an Authorization
// header, e.g. "Bearer abc123".
func (a AuthResponse) Bearer() string {
	return fmt.Sprintf("%s %s", a.TokenType, a.AccessToken)
}

// AuthError is the provider's rejection payload, surfaced verbatim.
type AuthError struct {
	ErrorType    string `json:"error"`
	ErrorMessage string `json:"error_description"`
}

func (a AuthError) Error() string {
	return fmt.Sprintf("%s: %s", a.ErrorType, a.ErrorMessage)
}

// Profile is a Discord user profile as the API returns it.
type Profile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Avatar        string `json:"avatar"`
	Discriminator string `json:"discriminator"`
	PublicFlags   int64  `json:"public_flags"`
	Locale        string `json:"locale"`
	PremiumType   int64  `json:"premium_type"`
}

// throttled is the body Discord sends alongside a 429. RetryAfter is in
// milliseconds.
type throttled struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
	Global     bool    `json:"global"`
}

var ErrUnauthorized = errors.New("discord: unauthorized")
