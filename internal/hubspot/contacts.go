package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
)

const (
	// MQLDateProperty and SQLDateProperty hold the instant a contact entered the lifecycle stage.
	MQLDateProperty = "hs_v2_date_entered_marketingqualifiedlead"
	SQLDateProperty = "hs_v2_date_entered_salesqualifiedlead"

	// DefaultContactSourceProperty is HubSpot's original traffic source.
	DefaultContactSourceProperty = "hs_analytics_source"

	// primaryCompanyTypeID is the v4 association type of a contact's primary company.
	primaryCompanyTypeID = 1
)

// ContactProperties are requested for every contact in the search call, besides the source property.
var ContactProperties = []string{
	"firstname",
	"lastname",
	"email",
	"lifecyclestage",
	"createdate",
	MQLDateProperty,
	SQLDateProperty,
}

func (c *apiClient) sourceProperty() string {
	if c.cfg.ContactSourceProperty != "" {
		return c.cfg.ContactSourceProperty
	}
	return DefaultContactSourceProperty
}

func (c *apiClient) SearchContacts(ctx context.Context, after string, limit int) (*ContactSearchResponse, error) {
	if limit <= 0 || limit > PageSize {
		limit = PageSize
	}
	since := strconv.FormatInt(c.cfg.StartDate.UnixMilli(), 10)
	// filter groups are ORed
	var groups []filterGroup
	for _, prop := range []string{"createdate", MQLDateProperty, SQLDateProperty} {
		groups = append(groups, filterGroup{Filters: []filter{{PropertyName: prop, Operator: "GTE", Value: since}}})
	}
	payload := searchRequest{
		FilterGroups: groups,
		Properties:   append(append([]string{}, ContactProperties...), c.sourceProperty()),
		Limit:        limit,
		After:        after,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	log.Info().Int("limit", limit).Str("after", after).Msg("Searching contacts")
	data, status, err := c.do(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", nil, body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("contact search endpoint not found")
	}

	var result ContactSearchResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode contact search response: %w", err)
	}
	log.Info().Int("count", len(result.Results)).Bool("has_more", result.NextAfter() != "").Msg("Retrieved contacts")
	return &result, nil
}

func (c *apiClient) GetAllContacts(ctx context.Context) ([]ContactDTO, error) {
	var all []ContactDTO
	after := ""
	page := 1
	for {
		resp, err := c.SearchContacts(ctx, after, PageSize)
		if err != nil {
			return nil, fmt.Errorf("contacts page %d: %w", page, err)
		}
		all = append(all, resp.Results...)

		after = resp.NextAfter()
		if after == "" {
			break
		}
		page++
	}
	log.Info().Int("contacts", len(all)).Int("pages", page).Msg("Fetched all contacts")
	return all, nil
}

func (c *apiClient) GetPrimaryCompany(ctx context.Context, contactID string) (*CompanyDTO, error) {
	path := "/crm/v4/objects/contacts/" + url.PathEscape(contactID) + "/associations/companies"
	data, status, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var assoc associationsResponse
	if err := json.Unmarshal(data, &assoc); err != nil {
		return nil, fmt.Errorf("failed to decode companies of contact %s: %w", contactID, err)
	}
	companyID := primaryCompany(assoc.Results)
	if companyID == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("properties", "name")
	id := strconv.FormatInt(companyID, 10)
	data, status, err = c.do(ctx, http.MethodGet, "/crm/v3/objects/companies/"+id, params, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		log.Warn().Str("contact", contactID).Str("company", id).Msg("Associated company not found")
		return &CompanyDTO{ID: id}, nil
	}

	var company CompanyDTO
	if err := json.Unmarshal(data, &company); err != nil {
		return nil, fmt.Errorf("failed to decode company %s: %w", id, err)
	}
	return &company, nil
}

// primaryCompany picks the association typed primary, falling back to the first one. 0 means none.
func primaryCompany(assocs []AssociationDTO) int64 {
	for _, a := range assocs {
		for _, t := range a.AssociationTypes {
			if t.TypeID == primaryCompanyTypeID && a.ToObjectID != 0 {
				return a.ToObjectID
			}
		}
	}
	if len(assocs) > 0 {
		return assocs[0].ToObjectID
	}
	return 0
}
