package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-gateway/pkg/errors"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/observability"
	"github.com/ajitpratap0/mcp-gateway/pkg/transport"
)

// DefaultBaseURL is the Gemini REST endpoint
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini calls the Gemini generateContent REST method
type Gemini struct {
	apiKey  string
	baseURL string
	model   string
	fetcher transport.Fetcher
	logger  logging.Logger
	tracer  *observability.TracingProvider
}

// GeminiOption configures a Gemini client
type GeminiOption func(*Gemini)

// WithBaseURL points the client at another endpoint
func WithBaseURL(u string) GeminiOption {
	return func(g *Gemini) {
		if u != "" {
			g.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithModel sets the model used when a request names none
func WithModel(model string) GeminiOption {
	return func(g *Gemini) {
		if model != "" {
			g.model = model
		}
	}
}

// WithFetcher sets the HTTP fetcher
func WithFetcher(f transport.Fetcher) GeminiOption {
	return func(g *Gemini) {
		if f != nil {
			g.fetcher = f
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) GeminiOption {
	return func(g *Gemini) {
		g.logger = logging.OrNop(l)
	}
}

// WithTracing wraps every call in a span
func WithTracing(tp *observability.TracingProvider) GeminiOption {
	return func(g *Gemini) {
		g.tracer = tp
	}
}

// NewGemini creates a Gemini client. The API key is required.
func NewGemini(apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, mcperrors.ConfigurationMissing("oracle.api_key")
	}
	g := &Gemini{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.fetcher == nil {
		g.fetcher = transport.NewHTTPFetcher(
			transport.WithTimeout(2*time.Minute),
			transport.WithLogger(g.logger),
		)
	}
	return g, nil
}

type geminiRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []geminiTool      `json:"tools,omitempty"`
	ToolConfig        *geminiToolConfig `json:"toolConfig,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

type geminiToolConfig struct {
	FunctionCallingConfig *ToolConfig `json:"functionCallingConfig"`
}

type generationConfig struct {
	ResponseMIMEType string                 `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]interface{} `json:"responseSchema,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Generate sends req and returns the first candidate
func (g *Gemini) Generate(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	ctx, span := g.tracer.StartSpan(ctx, "oracle.generate")
	defer span.End()

	user := Content{Role: RoleUser, Parts: req.Query}
	body := geminiRequest{Contents: append(req.History.Clone(), user)}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &Content{Role: RoleModel, Parts: []Part{TextPart(req.SystemInstruction)}}
	}
	if len(req.Functions) > 0 {
		body.Tools = []geminiTool{{FunctionDeclarations: req.Functions}}
	}
	if req.ToolConfig != nil {
		body.ToolConfig = &geminiToolConfig{FunctionCallingConfig: req.ToolConfig}
	}
	if req.ResponseMIMEType != "" || req.ResponseSchema != nil {
		body.GenerationConfig = &generationConfig{
			ResponseMIMEType: req.ResponseMIMEType,
			ResponseSchema:   req.ResponseSchema,
		}
	}

	call, err := transport.PostJSON(fmt.Sprintf("%s/%s:generateContent", g.baseURL, model), body, "generateContent")
	if err != nil {
		return nil, mcperrors.OracleFailed("generate", err)
	}
	call.Header.Set("x-goog-api-key", g.apiKey)

	reply := g.fetcher.FetchAll(ctx, []transport.Call{call})[0]
	if reply.Err != nil {
		observability.RecordError(ctx, reply.Err)
		return nil, mcperrors.OracleFailed("generate", reply.Err)
	}

	var out geminiResponse
	if err := json.Unmarshal(reply.Body, &out); err != nil {
		return nil, mcperrors.OracleFailed("generate", fmt.Errorf("HTTP %d: decode response: %w", reply.StatusCode, err))
	}
	if out.Error != nil {
		return nil, mcperrors.OracleFailed("generate", fmt.Errorf("%s (%d): %s", out.Error.Status, out.Error.Code, out.Error.Message))
	}
	if reply.StatusCode != http.StatusOK {
		return nil, mcperrors.OracleFailed("generate", fmt.Errorf("HTTP %d", reply.StatusCode))
	}
	if len(out.Candidates) == 0 {
		reason := "no candidates"
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			reason = "blocked: " + out.PromptFeedback.BlockReason
		}
		return nil, mcperrors.OracleFailed("generate", fmt.Errorf("%s", reason))
	}

	modelTurn := out.Candidates[0].Content
	if modelTurn.Role == "" {
		modelTurn.Role = RoleModel
	}
	resp := &Response{History: body.Contents}
	resp.History = append(resp.History, modelTurn)

	var texts []string
	for _, p := range modelTurn.Parts {
		if p.FunctionCall != nil && resp.FunctionCall == nil {
			resp.FunctionCall = p.FunctionCall
		}
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	resp.Text = strings.Join(texts, "")

	g.logger.Debug("model answered",
		logging.String("model", model),
		logging.String("finish_reason", out.Candidates[0].FinishReason),
		logging.Bool("function_call", resp.FunctionCall != nil))
	return resp, nil
}
