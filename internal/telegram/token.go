package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Settings keys holding the bot tokens.
const (
	settingMainToken = "tg_main_bot_token"
	settingTestToken = "tg_test_bot_token"
)

// SettingsReader is the slice of the settings store the token source needs.
type SettingsReader interface {
	Setting(ctx context.Context, key string) (string, error)
}

// StaticTokens resolves every bot identity from a fixed map. Used in tests
// and in deployments that configure tokens through the environment.
type StaticTokens map[Bot]string

func (s StaticTokens) Token(_ context.Context, bot Bot) (string, error) {
	t, ok := s[bot]
	if !ok || t == "" {
		return "", errors.Errorf("telegram: no token for bot %q", bot)
	}
	return t, nil
}

// SettingsTokens resolves tokens from the settings store, caching each for
// TTL so the hot send path does not hit Postgres on every message.
type SettingsTokens struct {
	settings SettingsReader
	ttl      time.Duration

	mu    sync.Mutex
	cache map[Bot]cachedToken
}

type cachedToken struct {
	value   string
	fetched time.Time
}

func NewSettingsTokens(settings SettingsReader, ttl time.Duration) *SettingsTokens {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SettingsTokens{
		settings: settings,
		ttl:      ttl,
		cache:    make(map[Bot]cachedToken),
	}
}

func (s *SettingsTokens) Token(ctx context.Context, bot Bot) (string, error) {
	s.mu.Lock()
	if c, ok := s.cache[bot]; ok && time.Since(c.fetched) < s.ttl {
		s.mu.Unlock()
		return c.value, nil
	}
	s.mu.Unlock()

	key := settingMainToken
	if bot == BotTest {
		key = settingTestToken
	}
	value, err := s.settings.Setting(ctx, key)
	if err != nil {
		return "", errors.Wrapf(err, "telegram: load token for bot %q", bot)
	}

	s.mu.Lock()
	s.cache[bot] = cachedToken{value: value, fetched: time.Now()}
	s.mu.Unlock()
	return value, nil
}
