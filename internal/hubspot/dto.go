package hubspot

// SearchResponse is one page of the deal search endpoint.
type SearchResponse struct {
	Total   int        `json:"total"`
	Results []DealDTO  `json:"results"`
	Paging  *PagingDTO `json:"paging,omitempty"`
}

// NextAfter returns the cursor of the next page, or "" on the last page.
func (r *SearchResponse) NextAfter() string {
	if r == nil || r.Paging == nil || r.Paging.Next == nil {
		return ""
	}
	return r.Paging.Next.After
}

type PagingDTO struct {
	Next *struct {
		After string `json:"after"`
		Link  string `json:"link,omitempty"`
	} `json:"next,omitempty"`
}

// DealDTO is a deal as returned by the CRM objects API.
type DealDTO struct {
	ID                    string                      `json:"id"`
	Properties            map[string]string           `json:"properties"`
	PropertiesWithHistory map[string][]HistoryItemDTO `json:"propertiesWithHistory,omitempty"`
	CreatedAt             string                      `json:"createdAt"`
	UpdatedAt             string                      `json:"updatedAt"`
	Archived              bool                        `json:"archived"`
}

// HistoryItemDTO is one entry of a property's change history. HubSpot lists them newest first.
type HistoryItemDTO struct {
	Value      string `json:"value"`
	Timestamp  string `json:"timestamp"`
	SourceType string `json:"sourceType"`
	SourceID   string `json:"sourceId,omitempty"`
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
	After        string        `json:"after,omitempty"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

// ContactSearchResponse is one page of the contact search endpoint.
type ContactSearchResponse struct {
	Total   int          `json:"total"`
	Results []ContactDTO `json:"results"`
	Paging  *PagingDTO   `json:"paging,omitempty"`
}

// NextAfter returns the cursor of the next page, or "" on the last page.
func (r *ContactSearchResponse) NextAfter() string {
	if r == nil || r.Paging == nil || r.Paging.Next == nil {
		return ""
	}
	return r.Paging.Next.After
}

// ContactDTO is a contact as returned by the CRM objects API.
type ContactDTO struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
	CreatedAt  string            `json:"createdAt"`
	UpdatedAt  string            `json:"updatedAt"`
	Archived   bool              `json:"archived"`
}

// CompanyDTO is a company as returned by the CRM objects API.
type CompanyDTO struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// AssociationDTO is one contact-to-company link of the v4 associations API.
type AssociationDTO struct {
	ToObjectID       int64                `json:"toObjectId"`
	AssociationTypes []AssociationTypeDTO `json:"associationTypes"`
}

type AssociationTypeDTO struct {
	Category string `json:"category"`
	TypeID   int    `json:"typeId"`
	Label    string `json:"label,omitempty"`
}

type associationsResponse struct {
	Results []AssociationDTO `json:"results"`
}
