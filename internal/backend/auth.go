package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Login exchanges credentials for a token pair. Any non-2xx answer is
// reported as ErrAuthRejected.
func (c *Client) Login(ctx context.Context, username, password string) (Tokens, error) {
	resp, err := c.doJSON(ctx, "login", http.MethodPost, pathToken, "", credentials{
		Username: username,
		Password: password,
	})
	if err != nil {
		return Tokens{}, err
	}
	if !success(resp.StatusCode) {
		failure(resp)
		return Tokens{}, ErrAuthRejected
	}
	var out Tokens
	if err := decode(resp, "login", &out); err != nil {
		return Tokens{}, err
	}
	if out.Access == "" {
		return Tokens{}, errors.Wrap(ErrAuthRejected, "backend: login response without access token")
	}
	return out, nil
}

// Refresh exchanges a refresh token for a new access token. The returned
// refresh token is the rotated one when the backend rotates, else the input.
func (c *Client) Refresh(ctx context.Context, refresh string) (Tokens, error) {
	if refresh == "" {
		return Tokens{}, ErrUnauthorized
	}
	resp, err := c.doJSON(ctx, "refresh", http.MethodPost, pathTokenRefresh, "", refreshRequest{Refresh: refresh})
	if err != nil {
		return Tokens{}, err
	}
	if !success(resp.StatusCode) {
		failure(resp)
		return Tokens{}, ErrUnauthorized
	}
	var out Tokens
	if err := decode(resp, "refresh", &out); err != nil {
		return Tokens{}, err
	}
	if out.Access == "" {
		return Tokens{}, ErrUnauthorized
	}
	if out.Refresh == "" {
		out.Refresh = refresh
	}
	return out, nil
}

// ExpiresWithin reports whether the JWT access token expires before now+d.
// The signature is not verified; the backend remains the authority.
// Tokens that cannot be parsed or carry no exp are treated as fresh.
func ExpiresWithin(token string, d time.Duration, now time.Time) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Time.Before(now.Add(d))
}

// authorized turns a 401 into ErrUnauthorized and passes every other response through.
func authorized(resp *http.Response, op string) (*http.Response, error) {
	if resp.StatusCode == http.StatusUnauthorized {
		failure(resp)
		return nil, errors.Wrap(ErrUnauthorized, op)
	}
	return resp, nil
}
