package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mohammed-shakir/weather-dashboard/internal/core/observability"
)

// Backoff controls retries of one upstream call. Attempts counts the first try.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

var single = Backoff{Attempts: 1, Initial: time.Second}

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
	errCircuitOpen = errors.New("circuit breaker open")
)

const maxBody = 8 << 20

// Getter performs GET requests for JSON with retries and one circuit breaker
// per source.
type Getter struct {
	client *http.Client
	log    *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewGetter(client *http.Client, log *slog.Logger) *Getter {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Getter{client: client, log: log, breakers: map[string]*gobreaker.CircuitBreaker{}}
}

func (g *Getter) breaker(source string) *gobreaker.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cb, ok := g.breakers[source]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        source,
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Warn("upstream breaker state changed", "source", name, "from", from.String(), "to", to.String())
		},
	})
	g.breakers[source] = cb
	return cb
}

// GetJSON decodes the body of a 2xx response into out. 429 and 5xx responses
// and transport errors are retried per b; other statuses fail at once.
func (g *Getter) GetJSON(ctx context.Context, source, url string, b Backoff, out any) error {
	start := time.Now()
	err := g.getJSON(ctx, source, url, b, out)
	observability.ObserveUpstreamLatency(source, err, time.Since(start).Seconds())
	return err
}

func (g *Getter) getJSON(ctx context.Context, source, url string, b Backoff, out any) error {
	if b.Attempts < 1 {
		b.Attempts = 1
	}
	if b.Initial <= 0 {
		b.Initial = time.Second
	}
	cb := g.breaker(source)

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := cb.Execute(func() (any, error) {
			return nil, g.do(ctx, url, out)
		})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if !retryable(err) || attempt+1 >= b.Attempts {
			return err
		}

		delay := b.Initial << attempt
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
		observability.IncUpstreamRetry(source)
		g.log.Debug("retrying upstream", "source", source, "attempt", attempt+1, "delay", delay, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (g *Getter) do(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return errRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	return !errors.Is(err, errUnexpected) && !isDecode(err)
}

func isDecode(err error) bool {
	var se *json.SyntaxError
	var te *json.UnmarshalTypeError
	return errors.As(err, &se) || errors.As(err, &te)
}
