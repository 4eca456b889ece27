package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/yosida95/uritemplate/v3"

	"github.com/txn2/helix/pkg/livesync"
)

const tenantPathTemplate = "{+base}/api/customer/tenant/{tenantId}"

// StoreFetcher observes tenants directly from a Store.
type StoreFetcher struct {
	Store Store
}

// Fetch implements livesync.Fetcher.
func (f StoreFetcher) Fetch(ctx context.Context, id string) (livesync.Observation[Permissions], error) {
	t, err := f.Store.Get(ctx, id)
	if err != nil {
		return livesync.Observation[Permissions]{}, fmt.Errorf("loading tenant %s: %w", id, err)
	}
	return livesync.Observation[Permissions]{State: t.Permissions, DisplayName: t.Name}, nil
}

// HTTPFetcher observes tenants through the customer tenant endpoint of a
// helix server.
type HTTPFetcher struct {
	tmpl   *uritemplate.Template
	base   string
	client *http.Client
	token  string
}

// HTTPFetcherConfig configures an HTTPFetcher.
type HTTPFetcherConfig struct {
	// BaseURL of the server, e.g. https://helix.example.com.
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(cfg HTTPFetcherConfig) (*HTTPFetcher, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	tmpl, err := uritemplate.New(tenantPathTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", tenantPathTemplate, err)
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{
		tmpl:   tmpl,
		base:   strings.TrimSuffix(cfg.BaseURL, "/"),
		client: client,
		token:  cfg.Token,
	}, nil
}

// URL returns the endpoint polled for tenant id.
func (f *HTTPFetcher) URL(id string) (string, error) {
	u, err := f.tmpl.Expand(uritemplate.Values{
		"base":     uritemplate.String(f.base),
		"tenantId": uritemplate.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("expanding tenant url: %w", err)
	}
	return u, nil
}

// Fetch implements livesync.Fetcher. Any non-2xx response is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, id string) (livesync.Observation[Permissions], error) {
	var none livesync.Observation[Permissions]

	u, err := f.URL(id)
	if err != nil {
		return none, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return none, fmt.Errorf("creating tenant request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return none, fmt.Errorf("fetching tenant: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return none, fmt.Errorf("failed to fetch tenant data: %d", resp.StatusCode)
	}

	var t Tenant
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return none, fmt.Errorf("parsing tenant response: %w", err)
	}
	return livesync.Observation[Permissions]{State: t.Permissions, DisplayName: t.Name}, nil
}

// Verify interface compliance.
var (
	_ livesync.Fetcher[Permissions] = StoreFetcher{}
	_ livesync.Fetcher[Permissions] = (*HTTPFetcher)(nil)
)
