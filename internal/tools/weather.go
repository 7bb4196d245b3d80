package tools

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// WeatherTool reads current conditions from OpenWeatherMap.
type WeatherTool struct {
	apiClient
	baseURL string
	apiKey  string
}

// NewWeatherTool creates the weather tool, e.g. baseURL https://api.openweathermap.org/data/2.5.
func NewWeatherTool(baseURL, apiKey string) *WeatherTool {
	return &WeatherTool{apiClient: newAPIClient(), baseURL: strings.TrimSuffix(baseURL, "/"), apiKey: apiKey}
}

func (t *WeatherTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "weather",
		Description: "Fetch current weather information for a given city using the OpenWeatherMap API.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"city": {
					Type:        genai.TypeString,
					Description: "City name, optionally with country code, e.g. 'Karachi' or 'London,uk'.",
				},
			},
			Required: []string{"city"},
		},
	}
}

func (t *WeatherTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	if t.apiKey == "" {
		return nil, errors.New("weather API key not configured")
	}
	city := stringArg(args, "city")
	if city == "" {
		return nil, errors.New("city is required")
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", t.apiKey)
	params.Set("units", "metric")

	out, err := t.getJSON(ctx, t.baseURL+"/weather", params)
	if err != nil {
		return nil, fmt.Errorf("error fetching weather: %w", err)
	}
	return out, nil
}
