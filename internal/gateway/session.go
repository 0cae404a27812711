package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/CivicMesh/app/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// reuse tokens only while this much lifetime remains
const tokenSlack = 30 * time.Second

// Session acquires and caches the bearer token used for live-mode calls.
// The token is held in memory and mirrored to Redis so restarts do not
// force a new device login.
type Session struct {
	baseURL      string
	deviceID     string
	deviceSecret string
	rdb          *redis.Client
	client       *http.Client
	log          *slog.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewSession(cfg config.Config, rdb *redis.Client, client *http.Client, log *slog.Logger) *Session {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		baseURL:      strings.TrimRight(cfg.UpstreamURL, "/"),
		deviceID:     cfg.DeviceID,
		deviceSecret: cfg.DeviceSecret,
		rdb:          rdb,
		client:       client,
		log:          log,
	}
}

func (s *Session) redisKey() string {
	return "session:token:" + s.deviceID
}

// Token returns a bearer token with at least tokenSlack of lifetime left,
// logging in to the upstream only when no cached token qualifies.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.token != "" && now.Add(tokenSlack).Before(s.expires) {
		return s.token, nil
	}

	if s.rdb != nil {
		if tok, err := s.rdb.Get(ctx, s.redisKey()).Result(); err == nil && tok != "" {
			if exp := tokenExpiry(tok); now.Add(tokenSlack).Before(exp) {
				s.token, s.expires = tok, exp
				return tok, nil
			}
		}
	}

	tok, exp, err := s.login(ctx)
	if err != nil {
		return "", err
	}
	s.token, s.expires = tok, exp

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, s.redisKey(), tok, time.Until(exp)).Err(); err != nil {
			s.log.Warn("session token not cached", "err", err)
		}
	}
	return tok, nil
}

func (s *Session) login(ctx context.Context) (string, time.Time, error) {
	payload, _ := json.Marshal(map[string]string{
		"device_id":     s.deviceID,
		"device_secret": s.deviceSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/device", bytes.NewReader(payload))
	if err != nil {
		return "", time.Time{}, newNetwork("could not build session request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", time.Time{}, newNetwork("session acquisition failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", time.Time{}, newServer("session acquisition rejected by upstream")
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Token == "" {
		return "", time.Time{}, newNetwork("session response unreadable", err)
	}
	return out.Token, tokenExpiry(out.Token), nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// upstream owns the secret. Opaque tokens get a short reuse window.
func tokenExpiry(tok string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return time.Now().Add(10 * time.Minute)
}
