package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// PageSize is the largest page the search endpoint accepts.
	PageSize = 100

	historyProperties = "dealstage,amount,closedate"
)

// SearchProperties are requested for every deal in the search call.
var SearchProperties = []string{
	"dealname",
	"amount",
	"dealstage",
	"closedate",
	"createdate",
	"hs_object_id",
	"hs_forecast_amount",
	"hs_forecast_probability",
	"hubspot_owner_id",
	"notes_last_contacted",
	"notes_last_updated",
	"num_notes",
	"hs_lastmodifieddate",
	"num_associated_contacts",
}

type apiClient struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	calls      atomic.Int64
}

// NewAPIClient creates a client for the HubSpot CRM v3 REST API.
func NewAPIClient(cfg Config) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.hubapi.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MinBackoff == 0 {
		cfg.MinBackoff = 4 * time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 60 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}

	return &apiClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

func (c *apiClient) CallCount() int {
	return int(c.calls.Load())
}

func (c *apiClient) SearchDeals(ctx context.Context, after string, limit int) (*SearchResponse, error) {
	if limit <= 0 || limit > PageSize {
		limit = PageSize
	}
	payload := searchRequest{
		FilterGroups: []filterGroup{{
			Filters: []filter{{
				PropertyName: "createdate",
				Operator:     "GTE",
				Value:        strconv.FormatInt(c.cfg.StartDate.UnixMilli(), 10),
			}},
		}},
		Properties: SearchProperties,
		Limit:      limit,
		After:      after,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	log.Info().Int("limit", limit).Str("after", after).Msg("Searching deals")
	data, status, err := c.do(ctx, http.MethodPost, "/crm/v3/objects/deals/search", nil, body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("deal search endpoint not found")
	}

	var result SearchResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	log.Info().Int("count", len(result.Results)).Bool("has_more", result.NextAfter() != "").Msg("Retrieved deals")
	return &result, nil
}

func (c *apiClient) GetDealHistory(ctx context.Context, dealID string) (*DealDTO, error) {
	params := url.Values{}
	params.Set("propertiesWithHistory", historyProperties)

	log.Debug().Str("deal", dealID).Msg("Fetching deal history")
	data, status, err := c.do(ctx, http.MethodGet, "/crm/v3/objects/deals/"+url.PathEscape(dealID), params, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		log.Warn().Str("deal", dealID).Msg("Deal not found")
		return nil, nil
	}

	var deal DealDTO
	if err := json.Unmarshal(data, &deal); err != nil {
		return nil, fmt.Errorf("failed to decode history of deal %s: %w", dealID, err)
	}
	return &deal, nil
}

func (c *apiClient) GetAllDeals(ctx context.Context) ([]DealDTO, error) {
	var all []DealDTO
	after := ""
	page := 1
	for {
		log.Info().Int("page", page).Msg("Fetching deals page")
		resp, err := c.SearchDeals(ctx, after, PageSize)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, resp.Results...)

		after = resp.NextAfter()
		if after == "" {
			break
		}
		page++
	}
	log.Info().Int("deals", len(all)).Int("pages", page).Msg("Fetched all deals")
	return all, nil
}

// do sends one logical request, retrying rate limits, server errors and transport failures.
// A 404 is returned to the caller as a status, not an error.
func (c *apiClient) do(ctx context.Context, method, path string, params url.Values, body []byte) ([]byte, int, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			wait := c.backoff(attempt - 1)
			log.Warn().Err(lastErr).Int("attempt", attempt).Dur("wait", wait).Str("path", path).Msg("Retrying HubSpot request")
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(wait):
			}
		}

		data, status, err := c.once(ctx, method, path, params, body)
		if err == nil {
			return data, status, nil
		}
		if !retryable(err) || ctx.Err() != nil {
			return nil, status, err
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("giving up after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func (c *apiClient) once(ctx context.Context, method, path string, params url.Values, body []byte) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	target := c.cfg.BaseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, err
	}
	c.authenticateRequest(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &transportError{err: err}
	}
	defer resp.Body.Close()
	c.calls.Add(1)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &transportError{err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		log.Error().Msg("HubSpot authentication failed")
		return nil, resp.StatusCode, ErrAuthentication
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resp.StatusCode, ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return nil, resp.StatusCode, nil
	case resp.StatusCode >= 500:
		log.Error().Int("status", resp.StatusCode).Str("body", string(data)).Msg("HubSpot server error")
		return nil, resp.StatusCode, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, resp.StatusCode, fmt.Errorf("HubSpot API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, resp.StatusCode, nil
}

func (c *apiClient) authenticateRequest(req *http.Request) {
	if c.cfg.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *apiClient) backoff(retry int) time.Duration {
	wait := c.cfg.MinBackoff << (retry - 1)
	if wait > c.cfg.MaxBackoff || wait <= 0 {
		wait = c.cfg.MaxBackoff
	}
	return wait
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "hubspot request failed: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var te *transportError
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServer) || errors.As(err, &te)
}
