package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
)

// News API endpoints
const (
	NewsEverything   = "everything"
	NewsTopHeadlines = "top-headlines"
)

// maxResponseBytes bounds third-party API bodies.
const maxResponseBytes = 4 << 20

// apiClient is the shared HTTP plumbing of the external lookup tools.
type apiClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newAPIClient() apiClient {
	return apiClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(2), 5),
	}
}

// getJSON performs a GET and decodes a JSON object body.
func (c apiClient) getJSON(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := out["message"].(string)
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, msg)
	}
	return out, nil
}

// NewsTool searches articles and headlines on newsapi.org.
type NewsTool struct {
	apiClient
	baseURL string
	apiKey  string
}

// NewNewsTool creates the news tool. baseURL ends with the API version, e.g.
// https://newsapi.org/v2/.
func NewNewsTool(baseURL, apiKey string) *NewsTool {
	return &NewsTool{apiClient: newAPIClient(), baseURL: strings.TrimSuffix(baseURL, "/") + "/", apiKey: apiKey}
}

func (t *NewsTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name: "news",
		Description: "Search for news articles or get top headlines. Use 'everything' for general search " +
			"queries (e.g. \"tech news\", \"bitcoin\"). Use 'top-headlines' for breaking news from a specific country.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {
					Type:        genai.TypeString,
					Description: "The topic, keyword, or phrase to search for. Required for 'everything'.",
				},
				"endpoint": {
					Type:        genai.TypeString,
					Enum:        []string{NewsEverything, NewsTopHeadlines},
					Description: "The API endpoint. Defaults to 'everything'.",
				},
				"country": {
					Type:        genai.TypeString,
					Description: "The 2-letter ISO 3166-1 country code (e.g. 'us', 'in'). Defaults to 'us'.",
				},
			},
		},
	}
}

func (t *NewsTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	if t.apiKey == "" {
		return nil, errors.New("news API key not configured")
	}

	endpoint := stringArg(args, "endpoint")
	if endpoint == "" {
		endpoint = NewsEverything
	}
	query := stringArg(args, "query")
	country := strings.ToLower(stringArg(args, "country"))

	params := url.Values{}
	params.Set("apiKey", t.apiKey)

	switch endpoint {
	case NewsEverything:
		if query == "" {
			return nil, errors.New("query is required for the everything endpoint")
		}
		params.Set("q", query)
	case NewsTopHeadlines:
		if query != "" {
			params.Set("q", query)
		}
		if country == "" {
			country = "us"
		}
		params.Set("country", country)
	default:
		return nil, fmt.Errorf("unknown news endpoint %q", endpoint)
	}

	out, err := t.getJSON(ctx, t.baseURL+endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("error fetching news: %w", err)
	}
	return out, nil
}
