package session

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwt"
)

// Service issues and verifies the signed tokens that back browser sessions.
// Tokens are stateless: the user ID and expiry live inside the signature, so
// no session collection is consulted on requests.
type Service interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
}

var _ Service = (*service)(nil)

type service struct {
	secret []byte
	ttl    time.Duration
}

const defaultTTL = 30 * 24 * time.Hour

func NewService(secret string) Service {
	return &service{
		secret: []byte(secret),
		ttl:    defaultTTL,
	}
}

func (s *service) Issue(userID string) (string, error) {
	t := jwt.New()
	now := time.Now()
	if err := t.Set(jwt.SubjectKey, userID); err != nil {
		return "", err
	}
	if err := t.Set(jwt.IssuedAtKey, now); err != nil {
		return "", err
	}
	if err := t.Set(jwt.ExpirationKey, now.Add(s.ttl)); err != nil {
		return "", err
	}
	signed, err := jwt.Sign(t, jwa.HS256, s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return string(signed), nil
}

func (s *service) Verify(token string) (string, error) {
	t, err := jwt.Parse(
		[]byte(token),
		jwt.WithVerify(jwa.HS256, s.secret),
		jwt.WithValidate(true),
	)
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}
	return t.Subject(), nil
}
