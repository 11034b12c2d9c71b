package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// EstimateTokens returns an estimate of the number of model tokens in text.
// It uses the cl100k_base encoding when available and falls back to a
// bytes/4 heuristic when the encoding cannot be loaded.
func EstimateTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	if encoding != nil {
		return len(encoding.Encode(text, nil, nil))
	}
	return len(text)/4 + 1
}

// tokenUsage is one recorded admission with its estimated token cost.
type tokenUsage struct {
	at     time.Time
	tokens int
}

// TokenLimiter bounds both request rate and rolling token volume. The request
// limit is enforced first, then the token budget: a burst larger than the
// remaining budget waits repeatedly until enough usage records age out of the
// token window.
type TokenLimiter struct {
	requests *Limiter

	mu     sync.Mutex
	budget int
	window time.Duration
	usages []tokenUsage

	now func() time.Time
}

// NewTokenLimiter creates a TokenLimiter admitting maxRequests calls per
// window and tokenBudget estimated tokens per tokenWindow. A tokenBudget of
// zero disables token accounting.
func NewTokenLimiter(maxRequests int, window time.Duration, tokenBudget int, tokenWindow time.Duration) *TokenLimiter {
	return &TokenLimiter{
		requests: New(maxRequests, window),
		budget:   tokenBudget,
		window:   tokenWindow,
		now:      time.Now,
	}
}

// Wait admits one request without token accounting.
func (l *TokenLimiter) Wait(ctx context.Context) error {
	return l.WaitN(ctx, 0)
}

// WaitN admits one request projected to consume the given number of tokens.
func (l *TokenLimiter) WaitN(ctx context.Context, tokens int) error {
	if err := l.requests.Wait(ctx); err != nil {
		return err
	}
	if tokens <= 0 || l.budget <= 0 {
		return nil
	}
	for {
		wait := l.reserveTokens(tokens)
		if wait <= 0 {
			return nil
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// reserveTokens either records the usage (returning 0) or returns how long
// to wait for the oldest usage record to exit the token window.
func (l *TokenLimiter) reserveTokens(tokens int) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	i := 0
	for i < len(l.usages) && !l.usages[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		l.usages = append(l.usages[:0], l.usages[i:]...)
	}

	sum := 0
	for _, u := range l.usages {
		sum += u.tokens
	}

	// A single request larger than the whole budget would never be admitted;
	// let it through alone once the window is empty.
	if sum+tokens <= l.budget || (len(l.usages) == 0 && tokens > l.budget) {
		l.usages = append(l.usages, tokenUsage{at: now, tokens: tokens})
		return 0
	}

	return l.usages[0].at.Add(l.window).Sub(now)
}
