package opensearch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"dining-concierge/internal/domain"
)

const (
	signingService = "es"
	defaultIndex   = "restaurants"
	defaultField   = "restaurant_type"
)

// searchRequest is the subset of the query DSL used for restaurant lookup.
type searchRequest struct {
	Size   int         `json:"size"`
	Query  searchQuery `json:"query"`
	Source []string    `json:"_source"`
}

type searchQuery struct {
	MultiMatch multiMatch `json:"multi_match"`
}

type multiMatch struct {
	Query  string   `json:"query"`
	Fields []string `json:"fields"`
}

// searchResponse is the minimal response shape returned by _search.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source domain.SearchHit `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// HTTPStatusError captures non-2xx responses from the search domain.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("opensearch: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// requestSigner signs outgoing requests. *v4.Signer satisfies it.
type requestSigner interface {
	SignHTTP(ctx context.Context, credentials aws.Credentials, r *http.Request, payloadHash string, service string, region string, signingTime time.Time, optFns ...func(*v4.SignerOptions)) error
}

// Client queries a restaurant index on an OpenSearch domain.
type Client struct {
	endpoint   string
	index      string
	field      string
	httpClient *http.Client

	signer      requestSigner
	credentials aws.CredentialsProvider
	region      string
	now         func() time.Time
}

type Option func(*Client)

func WithIndex(index string) Option {
	return func(c *Client) {
		if index = strings.TrimSpace(index); index != "" {
			c.index = index
		}
	}
}

func WithField(field string) Option {
	return func(c *Client) {
		if field = strings.TrimSpace(field); field != "" {
			c.field = field
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSigV4 signs every request for the "es" service. Without it requests
// are sent unsigned, which only suits local or open-access domains.
func WithSigV4(credentials aws.CredentialsProvider, region string) Option {
	return func(c *Client) {
		c.signer = v4.NewSigner()
		c.credentials = credentials
		c.region = region
	}
}

// NewClient creates a Client for the domain at endpoint, searching the
// "restaurants" index on "restaurant_type" unless overridden by opts.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("opensearch: endpoint must not be empty")
	}
	c := &Client{
		endpoint:   endpoint,
		index:      defaultIndex,
		field:      defaultField,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.signer != nil && (c.credentials == nil || strings.TrimSpace(c.region) == "") {
		return nil, errors.New("opensearch: signing requires credentials and region")
	}
	return c, nil
}

// resolvedHTTPClient returns the configured HTTP client, or a default with a
// 10s timeout if none was set.
func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func searchURL(endpoint, index string) string {
	return strings.TrimRight(endpoint, "/") + "/" + strings.Trim(index, "/") + "/_search"
}

// SearchRestaurants returns up to size hits for cuisine, in relevance order.
func (c *Client) SearchRestaurants(ctx context.Context, cuisine string, size int) ([]domain.SearchHit, error) {
	cuisine = strings.TrimSpace(cuisine)
	if cuisine == "" {
		return nil, errors.New("opensearch: cuisine must not be empty")
	}
	if size <= 0 {
		return nil, errors.New("opensearch: size must be positive")
	}

	body, err := json.Marshal(searchRequest{
		Size: size,
		Query: searchQuery{MultiMatch: multiMatch{
			Query:  cuisine,
			Fields: []string{c.field},
		}},
		Source: []string{"PK", "SK"},
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch: marshal request: %w", err)
	}

	url := searchURL(c.endpoint, c.index)
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return nil, fmt.Errorf("opensearch: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.sign(ctx, req, body); err != nil {
		return nil, err
	}

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return nil, fmt.Errorf("opensearch: request failed: %w", err)
	}

	var payload searchResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return nil, fmt.Errorf("opensearch: decode response: %w", decErr)
	}

	hits := make([]domain.SearchHit, 0, len(payload.Hits.Hits))
	for i, h := range payload.Hits.Hits {
		if h.Source.PK == "" || h.Source.SK == "" {
			return nil, fmt.Errorf("opensearch: hit %d is missing PK or SK", i)
		}
		hits = append(hits, h.Source)
	}
	return hits, nil
}

func (c *Client) sign(ctx context.Context, req *http.Request, body []byte) error {
	if c.signer == nil {
		return nil
	}
	creds, err := c.credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("opensearch: retrieve credentials: %w", err)
	}
	sum := sha256.Sum256(body)
	if err := c.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), signingService, c.region, c.now()); err != nil {
		return fmt.Errorf("opensearch: sign request: %w", err)
	}
	return nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
