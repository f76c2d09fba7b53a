// Package todomate is a read-only client for the TodoMate feed API.
package todomate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/todo-relay/internal/domain"
)

var (
	ErrUnauthorized = errors.New("todomate: unauthorized")
	ErrBadResponse  = errors.New("todomate: bad response")
)

// FetchError scopes a failure to one provider user.
type FetchError struct {
	UserID string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch todos for %s: %v", e.UserID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	AuthURL  string
	FeedURL  string
	APIKey   string
	Email    string
	Password string
	Location *time.Location
	HTTP     *http.Client
}

// Client signs in with a password, caches the bearer token and fetches
// pending items per user. It is safe for concurrent use.
type Client struct {
	opts Options
	http *http.Client
	log  *zap.Logger
	now  func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// New creates a Client. A nil HTTP client gets a 30s default.
func New(opts Options, log *zap.Logger) *Client {
	hc := opts.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Client{opts: opts, http: hc, log: log, now: time.Now}
}

// FetchItems returns the pending (not done) items of providerUserID scheduled
// inside w. Items that cannot be decoded are logged and skipped.
func (c *Client) FetchItems(ctx context.Context, providerUserID string, w domain.Window) ([]domain.Item, error) {
	items, err := c.fetch(ctx, providerUserID, w)
	if errors.Is(err, ErrUnauthorized) {
		// The cached token may have been revoked; sign in once more.
		c.dropToken()
		items, err = c.fetch(ctx, providerUserID, w)
	}
	if err != nil {
		return nil, &FetchError{UserID: providerUserID, Err: err}
	}
	return items, nil
}

func (c *Client) fetch(ctx context.Context, providerUserID string, w domain.Window) ([]domain.Item, error) {
	token, err := c.idToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(feedRequest{Data: feedQuery{
		FeedModelID:   providerUserID,
		FeedModelType: "user",
		StartDate:     w.StartMillis(),
		EndDate:       w.EndMillis(),
	}})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.FeedURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://www.todomate.net")
	req.Header.Set("Referer", "https://www.todomate.net/")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: feed status %d", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: feed status %d: %s", ErrBadResponse, resp.StatusCode, snippet(resp.Body))
	}

	var fr feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("%w: decode feed: %v", ErrBadResponse, err)
	}
	if fr.Result == nil || fr.Result.Result == nil {
		c.log.Debug("feed returned no nested result", zap.String("provider_user", providerUserID))
		return []domain.Item{}, nil
	}

	items := make([]domain.Item, 0, len(fr.Result.Result.TodoItems))
	for i, raw := range fr.Result.Result.TodoItems {
		it, err := decodeItem(raw, c.opts.Location)
		if err != nil {
			c.log.Warn("skip malformed todo item",
				zap.String("provider_user", providerUserID),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		if it.Done {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// idToken returns the cached token or signs in for a new one.
func (c *Client) idToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	body, err := json.Marshal(signInRequest{
		Email:             c.opts.Email,
		Password:          c.opts.Password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return "", err
	}

	u, err := url.Parse(c.opts.AuthURL)
	if err != nil {
		return "", fmt.Errorf("auth url: %w", err)
	}
	q := u.Query()
	q.Set("key", c.opts.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sign in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("%w: sign in status %d: %s", ErrUnauthorized, resp.StatusCode, snippet(resp.Body))
	}
	var sr signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("%w: decode sign in: %v", ErrBadResponse, err)
	}
	if sr.IDToken == "" {
		return "", fmt.Errorf("%w: sign in returned no token", ErrBadResponse)
	}

	c.token = sr.IDToken
	c.expires = c.now().Add(sr.lifetime() - time.Minute)
	return c.token, nil
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return string(bytes.TrimSpace(b))
}
