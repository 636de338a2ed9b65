package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	livenessPrompt = `You are a face verification AI for the CivicLens governance platform. Analyze the provided webcam selfie for:
1. LIVENESS CHECK: Is this a real live person (not a photo of a photo, not a screen, not a mask)?
2. FACE DETECTION: Is there exactly one clear human face visible?
3. FACE QUALITY: Is the face well-lit, not blurry, and suitable for identification?
4. IDENTITY MATCH: If a profile photo is attached, do the two images appear to be the same person?
Respond with JSON: { "isLive": boolean, "faceDetected": boolean, "qualityGood": boolean, "identityMatch": boolean, "confidence": number (0-100), "reason": string }`

	analysisPrompt = `You are CivicLens AI, analyzing citizen reports on government infrastructure projects.
Evaluate the report and provide:
1. A credibility score (0-100) based on detail, specificity, and consistency
2. A brief analysis (2-3 sentences) of the report's validity
3. Whether it should be flagged for review
4. Key findings
Respond with a JSON object: { "credibilityScore": number, "analysis": string, "shouldFlag": boolean, "findings": string[] }`
)

// Client calls the AI gateway behind both oracles. The gateway speaks the
// OpenAI chat-completions dialect; a forced tool call pins the response to
// the structured schema each oracle contract requires.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger
}

// Config configures the oracle client.
type Config struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key"`
	Model   string        `json:"model"`
	Timeout time.Duration `json:"timeout"`
}

// NewClient creates an oracle client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "google/gemini-2.5-flash"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		logger:     logger,
	}
}

// VerifyFace asks the liveness oracle to judge a webcam selfie. A malformed
// or missing tool response yields the inconclusive fallback result, not an
// error; transport and gateway failures return ErrUnavailable (or its rate
// limit / quota variants).
func (c *Client) VerifyFace(ctx context.Context, req LivenessRequest) (*LivenessResult, error) {
	content := []map[string]any{
		{"type": "text", "text": livenessPrompt},
		{"type": "image_url", "image_url": map[string]string{"url": req.FaceImageBase64}},
	}
	if req.ProfileImageBase64 != "" {
		content = append(content, map[string]any{
			"type": "image_url", "image_url": map[string]string{"url": req.ProfileImageBase64},
		})
	}

	args, err := c.invoke(ctx, "verify_face", "Return face verification results", map[string]any{
		"isLive":        map[string]any{"type": "boolean"},
		"faceDetected":  map[string]any{"type": "boolean"},
		"qualityGood":   map[string]any{"type": "boolean"},
		"identityMatch": map[string]any{"type": "boolean"},
		"confidence":    map[string]any{"type": "number"},
		"reason":        map[string]any{"type": "string"},
	}, []chatMessage{
		{Role: "system", Content: "You are a face verification system. Always respond with valid JSON only."},
		{Role: "user", Content: content},
	})
	if err != nil {
		return nil, err
	}

	result := FallbackLivenessResult()
	if args != nil {
		if err := json.Unmarshal(args, &result); err != nil {
			c.logger.Warn("Malformed liveness oracle response, using fallback", zap.Error(err))
			result = FallbackLivenessResult()
		}
	}
	return &result, nil
}

// AnalyzeReport asks the report-analysis oracle to score a citizen report.
// A malformed or missing tool response yields the conservative fallback
// analysis, not an error.
func (c *Client) AnalyzeReport(ctx context.Context, req AnalysisRequest) (*ReportAnalysis, error) {
	text := fmt.Sprintf("Project: %s\nSeverity: %s\nReport: %s\n\nAnalyze this citizen report for credibility and validity.",
		req.ProjectName, req.Severity, req.Description)

	var userContent any = text
	if req.ImageBase64 != "" {
		userContent = []map[string]any{
			{"type": "text", "text": text + " Consider the attached evidence photo."},
			{"type": "image_url", "image_url": map[string]string{"url": req.ImageBase64}},
		}
	}

	args, err := c.invoke(ctx, "analyze_report", "Return structured analysis of a citizen report", map[string]any{
		"credibilityScore": map[string]any{"type": "number"},
		"analysis":         map[string]any{"type": "string"},
		"shouldFlag":       map[string]any{"type": "boolean"},
		"findings":         map[string]any{"type": "array", "items": map[string]string{"type": "string"}},
	}, []chatMessage{
		{Role: "system", Content: analysisPrompt},
		{Role: "user", Content: userContent},
	})
	if err != nil {
		return nil, err
	}

	result := FallbackReportAnalysis()
	if args != nil {
		if err := json.Unmarshal(args, &result); err != nil {
			c.logger.Warn("Malformed analysis oracle response, using fallback", zap.Error(err))
			result = FallbackReportAnalysis()
		}
	}
	return &result, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			ToolCalls []struct {
				Function struct {
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// invoke posts a chat completion with a forced tool call and returns the raw
// tool arguments, or nil when the model produced no tool call.
func (c *Client) invoke(ctx context.Context, toolName, toolDescription string, properties map[string]any, messages []chatMessage) (json.RawMessage, error) {
	required := make([]string, 0, len(properties))
	for name := range properties {
		required = append(required, name)
	}

	payload := map[string]any{
		"model":    c.model,
		"messages": messages,
		"tools": []map[string]any{{
			"type": "function",
			"function": map[string]any{
				"name":        toolName,
				"description": toolDescription,
				"parameters": map[string]any{
					"type":                 "object",
					"properties":           properties,
					"required":             required,
					"additionalProperties": false,
				},
			},
		}},
		"tool_choice": map[string]any{
			"type":     "function",
			"function": map[string]string{"name": toolName},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal oracle request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build oracle request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("Oracle call failed", zap.String("tool", toolName), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusPaymentRequired:
		return nil, ErrQuotaExhausted
	default:
		c.logger.Warn("Oracle gateway error", zap.String("tool", toolName), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: gateway returned %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(parsed.Choices) == 0 || len(parsed.Choices[0].Message.ToolCalls) == 0 {
		return nil, nil
	}
	return json.RawMessage(parsed.Choices[0].Message.ToolCalls[0].Function.Arguments), nil
}
