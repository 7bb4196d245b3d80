package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"lillith/internal/apperrors"
	"lillith/internal/logger"
	"lillith/internal/telemetry"
	"lillith/models"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	genai "github.com/google/generative-ai-go/genai"
)

// Supported chat models. Unknown names fall back to DefaultChatModel.
const (
	DefaultChatModel = "gemini-2.5-flash"
	FastChatModel    = "gemini-3-flash"
)

const fallbackReply = "I'm experiencing high demand right now. Please try again in a moment."

const systemPrompt = `You are a specialized AI assistant that calls the available tools to fetch Islamic information and answers user queries from what the tools return.

Rules:
0. Focus mostly on Islamic information.
1. Always use the tools to fetch information.
2. Always respond in the same language as the user's query.
3. Be concise and informative.
4. Be friendly and helpful.
5. If the user asks for news, weather or Islamic information, use the matching tool and answer from its result.
6. If the tool data looks corrupted or you are unsure about it, tell the user you are not sure.
7. If required information is missing, ask the user for it before calling a tool.

Available tools:
1. news: search news articles or get top headlines.
2. weather: current weather for a city from OpenWeatherMap.
3. islamicGPT: Islamic passages from the Hadith and Tafseer collections.`

// Tool is a function the chat model may call.
type Tool interface {
	Declaration() *genai.FunctionDeclaration
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

// ChatResult is the final answer of one tool loop.
type ChatResult struct {
	Reply      string
	ToolCalls  []models.ToolCall
	TokensUsed int
	Model      string
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

// ChatOptions configures a ChatClient.
type ChatOptions struct {
	DefaultModel string
	MaxSteps     int
	Tier         string
	Metrics      *telemetry.Metrics
}

// runFunc executes the whole tool loop against one credential.
type runFunc func(ctx context.Context, cred Credential, model string, history []models.ChatMessage) (*ChatResult, error)

// ChatClient runs the Gemini function-calling loop with key rotation, a
// circuit breaker and a client-side rate limiter.
type ChatClient struct {
	pool         *CredentialPool
	tools        map[string]Tool
	declarations []*genai.FunctionDeclaration
	breaker      *gobreaker.CircuitBreaker
	rateLimiter  *rate.Limiter
	clients      *clientCache
	defaultModel string
	maxSteps     int
	metrics      *telemetry.Metrics
	next         atomic.Uint64
	run          runFunc
}

// NewChatClient builds a chat client over the given tools.
func NewChatClient(pool *CredentialPool, tools []Tool, opts ChatOptions) *ChatClient {
	limits := getRateLimits(opts.Tier)

	c := &ChatClient{
		pool:         pool,
		tools:        make(map[string]Tool, len(tools)),
		clients:      newClientCache(),
		defaultModel: opts.DefaultModel,
		maxSteps:     opts.MaxSteps,
		metrics:      opts.Metrics,
		// RPM limit with some buffer, scaled by the number of keys.
		rateLimiter: rate.NewLimiter(rate.Limit(float64(limits.RPM*pool.Len())*0.9/60.0), max(1, limits.RPM/10)),
	}
	if c.defaultModel == "" {
		c.defaultModel = DefaultChatModel
	}
	if c.maxSteps <= 0 {
		c.maxSteps = 5
	}
	for _, t := range tools {
		decl := t.Declaration()
		c.tools[decl.Name] = t
		c.declarations = append(c.declarations, decl)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// Rejected or throttled keys are handled by rotation, not the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || ClassifyProviderError(err) == ClassTransient
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			c.metrics.RecordCircuitBreakerState(name, to.String())
		},
	})
	c.run = c.runGemini
	return c
}

// ResolveModel maps a requested model name onto a supported one.
func (c *ChatClient) ResolveModel(name string) string {
	switch name {
	case DefaultChatModel, FastChatModel:
		return name
	default:
		return c.defaultModel
	}
}

// Chat answers the last user message of history. Transient provider errors
// move on to the next key; when every key fails, ErrCredentialsExhausted is
// returned.
func (c *ChatClient) Chat(ctx context.Context, history []models.ChatMessage, model string) (*ChatResult, error) {
	if len(history) == 0 {
		return nil, errors.New("chat history is empty")
	}
	model = c.ResolveModel(model)

	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", model),
		attribute.Int("gemini.history_len", len(history)),
	)

	start := int(c.next.Add(1) - 1)
	var lastErr error
	for attempt := 0; attempt < c.pool.Len(); attempt++ {
		cred := c.pool.At(start + attempt)

		result, err := c.run(ctx, cred, model, history)
		if err == nil {
			span.SetAttributes(
				attribute.Int("gemini.tokens", result.TokensUsed),
				attribute.Int("gemini.tool_calls", len(result.ToolCalls)),
			)
			c.metrics.RecordTokensUsed(ctx, int64(result.TokensUsed), model)
			return result, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return &ChatResult{Reply: fallbackReply, Model: model}, nil
		}
		if ClassifyProviderError(err) != ClassTransient {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		logger.Warn("Chat request rate limited, rotating key", "credential", cred.String(), "error", err)
		c.metrics.RecordKeyRotation(ctx, "chat")
		lastErr = &apperrors.RateLimitedError{Credential: cred.Index, Err: err}
	}

	span.SetStatus(codes.Error, "credentials exhausted")
	return nil, fmt.Errorf("%w: %w", apperrors.ErrCredentialsExhausted, lastErr)
}

func (c *ChatClient) runGemini(ctx context.Context, cred Credential, model string, history []models.ChatMessage) (*ChatResult, error) {
	client, err := c.clients.get(ctx, cred)
	if err != nil {
		return nil, &apperrors.ProviderError{Provider: providerGemini, Op: "connect", Err: err}
	}

	gm := client.GenerativeModel(model)
	gm.SetTemperature(0.7)
	gm.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	if len(c.declarations) > 0 {
		gm.Tools = []*genai.Tool{{FunctionDeclarations: c.declarations}}
	}

	cs := gm.StartChat()
	cs.History = toContents(history[:len(history)-1])
	parts := []genai.Part{genai.Text(history[len(history)-1].Content)}

	result := &ChatResult{Model: model}
	for step := 0; step < c.maxSteps; step++ {
		resp, err := c.send(ctx, cs, parts)
		if err != nil {
			return nil, err
		}
		if resp.UsageMetadata != nil {
			result.TokensUsed += int(resp.UsageMetadata.TotalTokenCount)
		}
		if len(resp.Candidates) == 0 {
			break
		}

		cand := resp.Candidates[0]
		result.Reply = candidateText(cand)

		calls := cand.FunctionCalls()
		if len(calls) == 0 {
			return result, nil
		}

		parts = make([]genai.Part, 0, len(calls))
		for _, fc := range calls {
			result.ToolCalls = append(result.ToolCalls, models.ToolCall{Name: fc.Name, Args: fc.Args})
			parts = append(parts, genai.FunctionResponse{Name: fc.Name, Response: c.callTool(ctx, fc)})
		}
	}

	if result.Reply == "" {
		result.Reply = "I could not complete that request. Please try rephrasing it."
	}
	return result, nil
}

func (c *ChatClient) send(ctx context.Context, cs *genai.ChatSession, parts []genai.Part) (*genai.GenerateContentResponse, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.breaker.Execute(func() (interface{}, error) {
		return cs.SendMessage(ctx, parts...)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, err
		}
		return nil, &apperrors.ProviderError{Provider: providerGemini, Op: "generate", Err: err}
	}
	return resp.(*genai.GenerateContentResponse), nil
}

// callTool runs a tool and converts failures into a response the model can read.
func (c *ChatClient) callTool(ctx context.Context, fc genai.FunctionCall) map[string]any {
	tool, ok := c.tools[fc.Name]
	if !ok {
		return map[string]any{"error": fmt.Sprintf("unknown tool %q", fc.Name)}
	}

	out, err := tool.Call(ctx, fc.Args)
	if err != nil {
		logger.Warn("Tool call failed", "tool", fc.Name, "error", err)
		return map[string]any{"error": err.Error()}
	}
	return out
}

// Close releases cached clients.
func (c *ChatClient) Close() error {
	return c.clients.close()
}

func toContents(history []models.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return out
}

func candidateText(cand *genai.Candidate) string {
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
