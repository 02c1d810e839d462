package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	apiBaseURL         = "https://discord.com/api/v8"
	profileCacheTTL    = 3 * time.Minute
	maxThrottleRetries = 5

	headerRateLimitRemaining  = "X-RateLimit-Remaining"
	headerRateLimitResetAfter = "X-RateLimit-Reset-After"
)

// Service talks to the Discord API for profile data.
type Service interface {
	// GetCurrentUser fetches the profile belonging to the given bearer token.
	// Throttled responses are retried after the quoted delay; an unauthorized
	// response is terminal.
	GetCurrentUser(ctx context.Context, token string) (*Profile, error)
	// FetchUser fetches an arbitrary user's public profile with the bot
	// credential. Results are cached for three minutes unless force is set,
	// and calls wait out any rate-limit window Discord has imposed.
	FetchUser(ctx context.Context, id string, force bool) (*Profile, error)
}

var _ Service = (*service)(nil)

type service struct {
	http     *resty.Client
	botToken string
	baseURL  string
	cacheTTL time.Duration

	mu             sync.Mutex
	cache          map[string]Profile
	rateLimitReset time.Time
}

func NewService(client *resty.Client, botToken string) Service {
	return &service{
		http:     client,
		botToken: botToken,
		baseURL:  apiBaseURL,
		cacheTTL: profileCacheTTL,
		cache:    make(map[string]Profile),
	}
}

func (s *service) GetCurrentUser(ctx context.Context, token string) (*Profile, error) {
	for attempt := 0; attempt < maxThrottleRetries; attempt++ {
		profile := &Profile{}
		resp, err := s.http.R().
			SetContext(ctx).
			SetHeader("Authorization", token).
			SetResult(profile).
			Get(s.baseURL + "/users/@me")
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode() == http.StatusTooManyRequests:
			limited := throttled{}
			if err := json.Unmarshal(resp.Body(), &limited); err != nil {
				return nil, fmt.Errorf("discord: unreadable throttle response: %w", err)
			}
			wait := time.Duration(limited.RetryAfter * float64(time.Millisecond))
			log.Warn().Dur("wait", wait).Msg("throttled on /users/@me, retrying")
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		case resp.StatusCode() == http.StatusUnauthorized:
			return nil, ErrUnauthorized
		case resp.IsError():
			return nil, fmt.Errorf("discord: fetching current user: %s", resp.Status())
		default:
			return profile, nil
		}
	}
	return nil, fmt.Errorf("discord: still throttled after %d attempts", maxThrottleRetries)
}

func (s *service) FetchUser(ctx context.Context, id string, force bool) (*Profile, error) {
	if !force {
		s.mu.Lock()
		if cached, ok := s.cache[id]; ok {
			s.mu.Unlock()
			return &cached, nil
		}
		s.mu.Unlock()
	}

	if err := s.waitForRateLimit(ctx); err != nil {
		return nil, err
	}

	profile := &Profile{}
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bot "+s.botToken).
		SetResult(profile).
		Get(s.baseURL + "/users/" + id)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("discord: error status code: %d", resp.StatusCode())
	}

	s.observeRateLimit(resp)
	s.cacheProfile(id, *profile)
	return profile, nil
}

// waitForRateLimit blocks until the provider's most recently quoted reset
// time has elapsed. A zero deadline means the quota is not exhausted.
func (s *service) waitForRateLimit(ctx context.Context) error {
	s.mu.Lock()
	wait := time.Until(s.rateLimitReset)
	if wait <= 0 {
		s.rateLimitReset = time.Time{}
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	log.Warn().Dur("wait", wait).Msg("rate limited, delaying profile fetch")
	return sleep(ctx, wait)
}

// observeRateLimit arms the process-wide deadline when the response says the
// remaining quota hit zero. Other responses leave it untouched.
func (s *service) observeRateLimit(resp *resty.Response) {
	remaining, err := strconv.Atoi(resp.Header().Get(headerRateLimitRemaining))
	if err != nil || remaining != 0 {
		return
	}
	resetAfter, err := strconv.ParseFloat(resp.Header().Get(headerRateLimitResetAfter), 64)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.rateLimitReset = time.Now().Add(time.Duration(resetAfter * float64(time.Second)))
	s.mu.Unlock()
}

// cacheProfile stores the profile and schedules its removal after the TTL.
// Eviction is active, not checked lazily on the next read.
func (s *service) cacheProfile(id string, p Profile) {
	s.mu.Lock()
	s.cache[id] = p
	s.mu.Unlock()
	time.AfterFunc(s.cacheTTL, func() {
		s.mu.Lock()
		delete(s.cache, id)
		s.mu.Unlock()
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
