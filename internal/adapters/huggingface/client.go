package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/bnema/hubwatch/internal/domain"
	"github.com/bnema/hubwatch/internal/ports"
)

const (
	defaultBaseURL = "https://huggingface.co"

	// The hub caps a single listing response at ~1000 items regardless of
	// the limit parameter; further pages come from the Link header.
	pageSize = 1000
	maxPages = 50

	maxResponseBytes = 8 << 20
	maxReadmeRunes   = 6000
)

var linkNextRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// Client queries the HuggingFace hub API. The zero value is not usable;
// construct with New.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
}

var (
	_ ports.ListingProvider = (*Client)(nil)
	_ ports.ModelCatalog    = (*Client)(nil)
)

func New(baseURL string, httpClient *http.Client, requestTimeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{baseURL: baseURL, httpClient: httpClient, requestTimeout: requestTimeout}
}

type apiModel struct {
	ModelID      string   `json:"modelId"`
	ID           string   `json:"id"`
	LastModified string   `json:"lastModified"`
	Downloads    int64    `json:"downloads"`
	Likes        int64    `json:"likes"`
	Tags         []string `json:"tags"`
	PipelineTag  string   `json:"pipeline_tag"`
	LibraryName  string   `json:"library_name"`
	Private      bool     `json:"private"`
	Safetensors  *struct {
		Parameters map[string]int64 `json:"parameters"`
	} `json:"safetensors"`
}

func (m apiModel) id() domain.ModelID {
	if m.ModelID != "" {
		return domain.ModelID(m.ModelID)
	}
	return domain.ModelID(m.ID)
}

func (m apiModel) toDomain() domain.Model {
	model := domain.Model{
		ID:           m.id(),
		LastModified: m.LastModified,
		Downloads:    m.Downloads,
		Likes:        m.Likes,
		Tags:         m.Tags,
		PipelineTag:  m.PipelineTag,
		LibraryName:  m.LibraryName,
		Private:      m.Private,
	}
	if m.Safetensors != nil {
		model.Safetensors = m.Safetensors.Parameters
	}

	return model
}

// ListRecent returns every model of the organisation, newest first,
// following Link-header pagination. The native listing order is preserved.
func (c *Client) ListRecent(ctx context.Context, org domain.OrgKey) ([]domain.Model, error) {
	query := url.Values{}
	query.Set("author", string(org))
	query.Set("sort", "lastModified")
	query.Set("direction", "-1")
	query.Set("limit", strconv.Itoa(pageSize))

	items, err := c.paginate(ctx, query)
	if err != nil {
		return nil, err
	}

	models := make([]domain.Model, 0, len(items))
	for _, item := range items {
		if item.id() == "" {
			continue
		}
		models = append(models, item.toDomain())
	}

	return models, nil
}

// ModelCount returns the organisation's total model count.
func (c *Client) ModelCount(ctx context.Context, org domain.OrgKey) (int, error) {
	query := url.Values{}
	query.Set("author", string(org))
	query.Set("limit", strconv.Itoa(pageSize))

	items, err := c.paginate(ctx, query)
	if err != nil {
		return 0, err
	}

	return len(items), nil
}

// ModelInfo returns one model's full descriptor, domain.ErrModelNotFound on 404.
func (c *Client) ModelInfo(ctx context.Context, id domain.ModelID) (domain.Model, error) {
	body, status, err := c.get(ctx, fmt.Sprintf("%s/api/models/%s", c.baseURL, id), nil)
	if err != nil {
		return domain.Model{}, err
	}
	if status == http.StatusNotFound {
		return domain.Model{}, fmt.Errorf("%w: %s", domain.ErrModelNotFound, id)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return domain.Model{}, fmt.Errorf("%w: model info status %d", domain.ErrSourceUnavailable, status)
	}

	var item apiModel
	if err := json.Unmarshal(body, &item); err != nil {
		return domain.Model{}, fmt.Errorf("%w: decode model info: %v", domain.ErrSourceMalformed, err)
	}
	if item.id() == "" {
		return domain.Model{}, fmt.Errorf("%w: model info without identifier", domain.ErrSourceMalformed)
	}

	return item.toDomain(), nil
}

// Readme fetches the raw model card, truncated to a sane length for LLM
// context. Models without a README return an empty string, not an error.
func (c *Client) Readme(ctx context.Context, id domain.ModelID) (string, error) {
	body, status, err := c.get(ctx, fmt.Sprintf("%s/%s/raw/main/README.md", c.baseURL, id), nil)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", nil
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: readme status %d", domain.ErrSourceUnavailable, status)
	}

	text := string(body)
	runes := []rune(text)
	if len(runes) > maxReadmeRunes {
		text = string(runes[:maxReadmeRunes]) + "\n\n[...truncated...]"
	}

	return text, nil
}

func (c *Client) paginate(ctx context.Context, query url.Values) ([]apiModel, error) {
	endpoint := fmt.Sprintf("%s/api/models", c.baseURL)
	items := make([]apiModel, 0, pageSize)

	for page := 0; page < maxPages; page++ {
		body, status, linkHeader, err := c.getWithLink(ctx, endpoint, query)
		if err != nil {
			return nil, err
		}
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("%w: listing status %d", domain.ErrSourceUnavailable, status)
		}

		var batch []apiModel
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, fmt.Errorf("%w: decode listing: %v", domain.ErrSourceMalformed, err)
		}
		if len(batch) == 0 {
			break
		}

		items = append(items, batch...)

		if len(batch) < pageSize {
			break
		}

		match := linkNextRe.FindStringSubmatch(linkHeader)
		if match == nil {
			break
		}

		// The next-page URL already carries every query parameter.
		endpoint = match[1]
		query = nil
	}

	return items, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, int, error) {
	body, status, _, err := c.getWithLink(ctx, endpoint, query)
	return body, status, err
}

func (c *Client) getWithLink(ctx context.Context, endpoint string, query url.Values) ([]byte, int, string, error) {
	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("create hub request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, "", fmt.Errorf("%w: read response: %v", domain.ErrSourceUnavailable, err)
	}

	return body, resp.StatusCode, resp.Header.Get("Link"), nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}
