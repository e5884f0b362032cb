package transcribe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultGeminiModel    = "gemini-1.5-flash"
	geminiTextPath        = "candidates.0.content.parts.0.text"

	defaultGeminiPrompt = "Transcribe the following audio recording exactly as spoken. " +
		"Return ONLY the transcribed text, without any markdown formatting, preamble, timestamps, or commentary. " +
		"Keep the original language."
)

// Gemini sends the artifact inline to :generateContent.
type Gemini struct {
	name     string
	key      string
	endpoint string
	model    string
	prompt   string
	timeout  time.Duration
	client   *http.Client
}

// GeminiConfig configures a Gemini provider. Empty fields use defaults.
type GeminiConfig struct {
	Name         string
	APIKey       string
	Endpoint     string
	Model        string
	Prompt       string
	Language     string
	SpeakerCount int
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// NewGemini builds a Gemini provider.
func NewGemini(c GeminiConfig) *Gemini {
	g := &Gemini{
		name:     c.Name,
		key:      c.APIKey,
		endpoint: strings.TrimRight(c.Endpoint, "/"),
		model:    c.Model,
		prompt:   buildPrompt(defaultGeminiPrompt, c.Prompt, c.Language, c.SpeakerCount),
		timeout:  c.Timeout,
		client:   c.HTTPClient,
	}
	if g.name == "" {
		g.name = "Gemini"
	}
	if g.endpoint == "" {
		g.endpoint = defaultGeminiEndpoint
	}
	if g.model == "" {
		g.model = defaultGeminiModel
	}
	if g.timeout <= 0 {
		g.timeout = 30 * time.Second
	}
	if g.client == nil {
		g.client = http.DefaultClient
	}
	return g
}

func (g *Gemini) Name() string { return g.name }

func (g *Gemini) Transcribe(ctx context.Context, artifactPath string, onProgress ProgressFunc) (string, error) {
	if err := checkKey(g.key); err != nil {
		return "", err
	}
	data, err := readArtifact(artifactPath)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(map[string]any{
		"contents": []any{
			map[string]any{
				"role": "user",
				"parts": []any{
					map[string]any{"text": g.prompt},
					map[string]any{"inlineData": map[string]any{
						"mimeType": MIMEType(artifactPath),
						"data":     base64.StdEncoding.EncodeToString(data),
					}},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature":     0.0,
			"maxOutputTokens": 2048,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", g.endpoint, g.model, url.QueryEscape(g.key))
	status, resp, err := postJSON(ctx, g.client, g.timeout, endpoint, nil, body, onProgress)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusBadRequest:
		return "", &RemoteError{StatusCode: status, Detail: "Bad Request. API key might be invalid or malformed."}
	case status == http.StatusTooManyRequests:
		return "", &RemoteError{StatusCode: status, Detail: "Rate limit exceeded or insufficient quota."}
	case status != http.StatusOK:
		return "", &RemoteError{StatusCode: status, Detail: fmt.Sprintf("Gemini error: %d", status)}
	}

	text := gjson.GetBytes(resp, geminiTextPath)
	if text.Type != gjson.String {
		return "", ErrUnparsableResponse
	}
	return finishText(text.String())
}

// buildPrompt returns custom, or base when custom is empty, with language
// and speaker hints appended.
func buildPrompt(base, custom, language string, speakers int) string {
	prompt := base
	if custom != "" {
		prompt = custom
	}
	if language != "" {
		prompt += fmt.Sprintf(" The spoken language is %s.", language)
	}
	if speakers > 1 {
		prompt += fmt.Sprintf(" There are %d speakers.", speakers)
	}
	return prompt
}
