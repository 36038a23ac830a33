// Package marketplace pulls buyer enquiries from the IndiaMART CRM listing API.
package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	commonhttp "sales-crm-workers/internal/common/http"
)

const (
	DefaultBaseURL = "https://mapi.indiamart.com"
	listingPath    = "/wservce/crm/crmListing/v2/"
	dateLayout     = "02-Jan-2006"
	queryTimeFmt   = "2006-01-02 15:04:05"
	codeNoContent  = 204
)

var ist = time.FixedZone("IST", 5*3600+1800)

// Enquiry is one row of the listing response.
type Enquiry struct {
	QueryID         string `json:"UNIQUE_QUERY_ID"`
	SenderName      string `json:"SENDER_NAME"`
	SenderMobile    string `json:"SENDER_MOBILE"`
	SenderMobileAlt string `json:"SENDER_MOBILE_ALT"`
	SenderEmail     string `json:"SENDER_EMAIL"`
	SenderCity      string `json:"SENDER_CITY"`
	QueryCity       string `json:"QUERY_CITY"`
	ProductName     string `json:"QUERY_PRODUCT_NAME"`
	Message         string `json:"QUERY_MESSAGE"`
	QueryTime       string `json:"QUERY_TIME"`
	GeneratedDate   string `json:"GENERATED_DATE"`
}

// Phone is the primary mobile, or the alternate when the primary is blank.
func (e Enquiry) Phone() string {
	if strings.TrimSpace(e.SenderMobile) != "" {
		return e.SenderMobile
	}
	return e.SenderMobileAlt
}

func (e Enquiry) City() string {
	if e.QueryCity != "" {
		return e.QueryCity
	}
	return e.SenderCity
}

// ReceivedAt parses the enquiry time, falling back to fallback.
func (e Enquiry) ReceivedAt(fallback time.Time) time.Time {
	for _, raw := range []string{e.QueryTime, e.GeneratedDate} {
		if raw == "" {
			continue
		}
		if t, err := time.ParseInLocation(queryTimeFmt, raw, ist); err == nil {
			return t.UTC()
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

type listingResponse struct {
	Code         int             `json:"CODE"`
	Status       string          `json:"STATUS"`
	Message      string          `json:"MESSAGE"`
	TotalRecords int             `json:"TOTAL_RECORDS"`
	Response     json.RawMessage `json:"RESPONSE"`
}

// Client calls the pull API with a CRM key.
type Client struct {
	baseURL    string
	crmKey     string
	httpClient *commonhttp.Client
}

func NewClient(baseURL, crmKey string, httpClient *commonhttp.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		crmKey:     crmKey,
		httpClient: httpClient,
	}
}

// Fetch lists enquiries received between start and end.
func (c *Client) Fetch(ctx context.Context, start, end time.Time) ([]Enquiry, error) {
	if c.crmKey == "" {
		return nil, fmt.Errorf("marketplace CRM key is not configured")
	}

	q := url.Values{}
	q.Set("glusr_crm_key", c.crmKey)
	q.Set("start_time", start.In(ist).Format(dateLayout))
	q.Set("end_time", end.In(ist).Format(dateLayout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+listingPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing failed (status %d): %s", resp.StatusCode, string(body))
	}

	var lr listingResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if lr.Code == codeNoContent {
		return nil, nil
	}
	if lr.Code != 0 && lr.Code != http.StatusOK {
		return nil, fmt.Errorf("listing failed (code %d, %s): %s", lr.Code, lr.Status, lr.Message)
	}

	var rows []Enquiry
	if len(lr.Response) == 0 || string(lr.Response) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(lr.Response, &rows); err != nil {
		return nil, fmt.Errorf("unexpected RESPONSE payload: %w", err)
	}
	return rows, nil
}
