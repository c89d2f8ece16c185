package hubspot

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAuthentication is returned when HubSpot rejects the access token. It is never retried.
	ErrAuthentication = errors.New("hubspot authentication failed, check HUBSPOT_ACCESS_TOKEN")
	// ErrRateLimited is returned when HubSpot answers 429 on every attempt.
	ErrRateLimited = errors.New("hubspot rate limit exceeded")
	// ErrServer is returned when HubSpot answers with a 5xx status on every attempt.
	ErrServer = errors.New("hubspot server error")
)

// Client is the interface for reading deals and contacts from the HubSpot CRM.
type Client interface {
	SearchDeals(ctx context.Context, after string, limit int) (*SearchResponse, error)
	// GetDealHistory returns nil without error when the deal no longer exists.
	GetDealHistory(ctx context.Context, dealID string) (*DealDTO, error)
	GetAllDeals(ctx context.Context) ([]DealDTO, error)

	SearchContacts(ctx context.Context, after string, limit int) (*ContactSearchResponse, error)
	GetAllContacts(ctx context.Context) ([]ContactDTO, error)
	// GetPrimaryCompany returns the contact's primary company, or its first associated company
	// when none is marked primary. It returns nil without error when the contact has no company.
	GetPrimaryCompany(ctx context.Context, contactID string) (*CompanyDTO, error)

	CallCount() int
}

// Config holds the connection settings for the HubSpot API.
type Config struct {
	BaseURL     string
	AccessToken string

	// Deals created before this instant are not fetched. Contacts are fetched when they were
	// created or entered MQL or SQL at or after it.
	StartDate time.Time

	// ContactSourceProperty names the contact property holding the lead source.
	ContactSourceProperty string

	// Performance Settings
	RequestDelay time.Duration
	MaxRetries   int
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	Timeout      time.Duration
}

// NewClient creates a new HubSpot client based on the provided configuration.
func NewClient(cfg Config) Client {
	return NewAPIClient(cfg)
}
