// Package session — клиент к внешнему session-сервису: по bearer-токену
// возвращает пользователя и его права доступа. Сам токен для нас непрозрачен.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cwrk-planet/comments-service/pkg/errs"
)

type Client interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

type Options struct {
	BaseURL string
	Timeout time.Duration
}

type client struct {
	baseURL string
	hc      *http.Client
	timeout time.Duration
}

func New(opts Options) (Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("session client: empty base url")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &client{
		baseURL: opts.BaseURL,
		hc:      &http.Client{Timeout: opts.Timeout},
		timeout: opts.Timeout,
	}, nil
}

func (c *client) Resolve(ctx context.Context, token string) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions/me", nil)
	if err != nil {
		return Identity{}, fmt.Errorf("session client: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.hc.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", errs.ErrUpstream, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return Identity{}, errs.ErrUnauthorized
	default:
		return Identity{}, fmt.Errorf("%w: session service status %d", errs.ErrUpstream, res.StatusCode)
	}

	var id Identity
	if err := json.NewDecoder(res.Body).Decode(&id); err != nil {
		return Identity{}, fmt.Errorf("%w: decode identity: %v", errs.ErrUpstream, err)
	}
	return id, nil
}
