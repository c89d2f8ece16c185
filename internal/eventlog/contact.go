package eventlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dealflow/internal/hubspot"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// UnknownSource is recorded for contacts without a lead source.
const UnknownSource = "Unbekannt"

// Contact is a lead as fetched once, with the instants it became MQL and SQL.
type Contact struct {
	ContactID      string
	FirstName      string
	LastName       string
	Email          string
	LifecycleStage string
	// MQLDate falls back to the contact's create date when HubSpot has no MQL entry date.
	MQLDate        string
	SQLDate        string
	CompanyID      string
	CompanyName    string
	Source         string
	FetchTimestamp string
}

// Name is the contact's full name.
func (c Contact) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// TransformContact converts a search result and its (optional) primary company into a Contact.
func TransformContact(dto hubspot.ContactDTO, company *hubspot.CompanyDTO, sourceProperty string, fetchedAt time.Time) Contact {
	props := dto.Properties
	mql := props[hubspot.MQLDateProperty]
	if mql == "" {
		mql = props["createdate"]
	}
	source := strings.TrimSpace(props[sourceProperty])
	if source == "" {
		source = UnknownSource
	}

	c := Contact{
		ContactID:      dto.ID,
		FirstName:      props["firstname"],
		LastName:       props["lastname"],
		Email:          props["email"],
		LifecycleStage: props["lifecyclestage"],
		MQLDate:        normalizeTimestamp(mql),
		SQLDate:        normalizeTimestamp(props[hubspot.SQLDateProperty]),
		Source:         source,
		FetchTimestamp: fetchedAt.UTC().Format(time.RFC3339),
	}
	if company != nil {
		c.CompanyID = company.ID
		c.CompanyName = company.Properties["name"]
	}
	return c
}

// ContactProvider fetches contacts and resolves their primary companies.
type ContactProvider struct {
	client         hubspot.Client
	sourceProperty string
	workers        int
	limit          int
}

// NewContactProvider creates a provider resolving companies with up to workers concurrent lookups.
func NewContactProvider(client hubspot.Client, sourceProperty string, workers int) *ContactProvider {
	if sourceProperty == "" {
		sourceProperty = hubspot.DefaultContactSourceProperty
	}
	return &ContactProvider{client: client, sourceProperty: sourceProperty, workers: max(workers, 1)}
}

// WithLimit keeps only the first n contacts; n <= 0 keeps all.
func (p *ContactProvider) WithLimit(n int) *ContactProvider {
	p.limit = n
	return p
}

// Fetch returns every contact in search order. A failed company lookup leaves the contact without
// a company.
func (p *ContactProvider) Fetch(ctx context.Context, fetchedAt time.Time) ([]Contact, error) {
	dtos, err := p.client.GetAllContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("contact fetch failed: %w", err)
	}
	if p.limit > 0 && len(dtos) > p.limit {
		log.Warn().Int("contacts", len(dtos)).Int("limit", p.limit).Msg("Limiting contacts")
		dtos = dtos[:p.limit]
	}
	log.Info().Int("contacts", len(dtos)).Msg("Resolving contact companies")

	out := make([]Contact, len(dtos))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)
	for i, dto := range dtos {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			company, err := p.client.GetPrimaryCompany(ctx, dto.ID)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn().Err(err).Str("contact", dto.ID).Msg("Failed to fetch contact company")
				company = nil
			}
			out[i] = TransformContact(dto, company, p.sourceProperty, fetchedAt)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	log.Info().Int("contacts", len(out)).Int("api_calls", p.client.CallCount()).Msg("Contacts fetched")
	return out, nil
}
