package tools

import (
	"lillith/internal/ai"
	"lillith/internal/config"
)

// Default returns the tools offered to the chat model.
func Default(cfg *config.Config, retriever *Retriever) []ai.Tool {
	return []ai.Tool{
		NewNewsTool(cfg.NewsAPIURL, cfg.NewsAPIKey),
		NewWeatherTool(cfg.OpenWeatherAPIURL, cfg.OpenWeatherAPIKey),
		NewIslamicTool(retriever),
	}
}
