// Package graph is a minimal Microsoft Graph client covering the calls the
// license audit needs: subscribedSkus, the paginated users listing with
// sign-in activity, and per-user licenseDetails. Authentication uses the
// OAuth2 client-credentials grant against the tenant's token endpoint.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"m365audit/internal/logging"
)

// RetryObserver is invoked for every throttled request before the client
// sleeps, letting callers persist retry history.
type RetryObserver func(endpoint string, attempt int, delay float64, reason string)

// Client calls the Microsoft Graph API.
type Client struct {
	tenantID     string
	clientID     string
	clientSecret string
	baseURL      string
	authorityURL string
	pageSize     int
	maxRetries   int
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	// OnRetry, when set, observes every throttled attempt.
	OnRetry RetryObserver
}

// Config holds Graph client configuration.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	BaseURL      string
	AuthorityURL string
	PageSize     int
	MaxRetries   int
	Timeout      time.Duration
}

// NewClient creates a Graph client from config, applying defaults for
// anything unset.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.microsoft.com/v1.0"
	}
	if cfg.AuthorityURL == "" {
		cfg.AuthorityURL = "https://login.microsoftonline.com"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 999
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		tenantID:     cfg.TenantID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		authorityURL: strings.TrimRight(cfg.AuthorityURL, "/"),
		pageSize:     cfg.PageSize,
		maxRetries:   cfg.MaxRetries,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Authenticate obtains an access token via the client-credentials grant.
// Safe to call repeatedly; a still-valid cached token is reused.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshTokenLocked(ctx)
}

func (c *Client) refreshTokenLocked(ctx context.Context) error {
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	if c.tenantID == "" || c.clientID == "" || c.clientSecret == "" {
		return fmt.Errorf("graph credentials not configured")
	}

	logging.Graph("Requesting access token for tenant %s", c.tenantID)

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {"https://graph.microsoft.com/.default"},
	}

	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.authorityURL, c.tenantID)
	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return fmt.Errorf("failed to parse token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || tok.AccessToken == "" {
		if tok.Error != "" {
			return fmt.Errorf("authentication failed: %s: %s", tok.Error, tok.ErrorDesc)
		}
		return fmt.Errorf("authentication failed with status %d", resp.StatusCode)
	}

	c.accessToken = tok.AccessToken
	// Refresh a minute early so in-flight requests never carry a stale token.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	logging.Graph("Access token acquired, expires in %ds", tok.ExpiresIn)
	return nil
}

// get performs an authenticated GET with throttle-aware retries. A 429
// response honors Retry-After when present, otherwise backs off 1s, 2s, 4s.
func (c *Client) get(ctx context.Context, fullURL string) (*http.Response, error) {
	var lastErr error

	for i := 0; i <= c.maxRetries; i++ {
		c.mu.Lock()
		if err := c.refreshTokenLocked(ctx); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		token := c.accessToken
		c.mu.Unlock()

		req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			delay := retryDelay("", i)
			logging.Graph("Request to %s failed, attempt %d, waiting %.0fs: %v",
				endpointPath(fullURL), i+1, delay.Seconds(), err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			delay := retryDelay(resp.Header.Get("Retry-After"), i)
			resp.Body.Close()
			lastErr = fmt.Errorf("rate limit exceeded (429)")

			endpoint := endpointPath(fullURL)
			logging.Graph("Throttled on %s, attempt %d, waiting %.0fs", endpoint, i+1, delay.Seconds())
			if c.OnRetry != nil {
				c.OnRetry(endpoint, i+1, delay.Seconds(), "429 Too Many Requests")
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("exhausted %d retries: %w", c.maxRetries, lastErr)
}

// retryDelay prefers the server's Retry-After over exponential backoff.
func retryDelay(retryAfter string, attempt int) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	// 1s, 2s, 4s, ...
	return time.Duration(1<<uint(attempt)) * time.Second
}

func endpointPath(fullURL string) string {
	if u, err := url.Parse(fullURL); err == nil {
		return u.Path
	}
	return fullURL
}

// getJSON issues a GET and decodes the response, surfacing Graph error
// payloads on non-200 statuses.
func (c *Client) getJSON(ctx context.Context, fullURL string, out interface{}) error {
	resp, err := c.get(ctx, fullURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var ge graphError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Code != "" {
			return fmt.Errorf("graph request failed (%d): %s: %s", resp.StatusCode, ge.Error.Code, ge.Error.Message)
		}
		return fmt.Errorf("graph request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// SubscribedSKUs fetches the tenant's license subscriptions.
func (c *Client) SubscribedSKUs(ctx context.Context) ([]SubscribedSKU, error) {
	timer := logging.StartTimer(logging.CategoryGraph, "SubscribedSKUs")
	defer timer.Stop()

	var out subscribedSKUsResponse
	if err := c.getJSON(ctx, c.baseURL+"/subscribedSkus", &out); err != nil {
		return nil, err
	}
	logging.Graph("Fetched %d subscribed SKUs", len(out.Value))
	return out.Value, nil
}

// UsersPage fetches one page of users with sign-in activity. Pass an empty
// nextLink for the first page; subsequent pages follow the returned link
// until it comes back empty.
func (c *Client) UsersPage(ctx context.Context, nextLink string) (*UserPage, error) {
	pageURL := nextLink
	if pageURL == "" {
		pageURL = fmt.Sprintf("%s/users?$select=userPrincipalName,signInActivity&$top=%d", c.baseURL, c.pageSize)
	}

	var out usersResponse
	if err := c.getJSON(ctx, pageURL, &out); err != nil {
		return nil, err
	}
	logging.GraphDebug("Fetched user page: %d users, more=%v", len(out.Value), out.NextLink != "")
	return &UserPage{Users: out.Value, NextLink: out.NextLink}, nil
}

// LicenseDetails fetches the licenses assigned to a user. A 404 (deleted or
// unresolvable principal) returns an empty slice rather than an error.
func (c *Client) LicenseDetails(ctx context.Context, upn string) ([]LicenseDetail, error) {
	detailURL := fmt.Sprintf("%s/users/%s/licenseDetails", c.baseURL, url.PathEscape(upn))

	resp, err := c.get(ctx, detailURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		logging.Graph("User %s not found, skipping license details", upn)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("licenseDetails failed for %s with status %d: %s", upn, resp.StatusCode, string(body))
	}

	var out licenseDetailsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse license details: %w", err)
	}
	return out.Value, nil
}
