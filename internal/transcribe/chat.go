package transcribe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	defaultOpenRouterEndpoint = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel    = "openai/gpt-4o-audio-preview"
	chatTextPath              = "choices.0.message.content"

	defaultChatPrompt = "Transcribe the following audio recording. " +
		"Return ONLY the transcribed text, without any additional commentary, labels, or formatting. " +
		"If the audio is in a non-English language, transcribe it in the original language."
)

// Chat sends the artifact as input_audio to an OpenAI-compatible
// chat/completions endpoint. It serves OpenRouter and custom gateways.
type Chat struct {
	name       string
	key        string
	url        string
	model      string
	prompt     string
	textPath   string
	extra      map[string]any
	openRouter bool
	timeout    time.Duration
	client     *http.Client
}

// ChatConfig configures a chat-completions provider.
type ChatConfig struct {
	Name         string
	APIKey       string
	Endpoint     string
	Model        string
	Prompt       string
	Language     string
	SpeakerCount int
	TextPath     string         // gjson path of the text; defaults to choices.0.message.content
	Extra        map[string]any // merged into the request body
	OpenRouter   bool
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// NewChat builds a chat-completions provider.
func NewChat(c ChatConfig) *Chat {
	ch := &Chat{
		name:       c.Name,
		key:        c.APIKey,
		model:      c.Model,
		prompt:     buildPrompt(defaultChatPrompt, c.Prompt, c.Language, c.SpeakerCount),
		textPath:   c.TextPath,
		extra:      c.Extra,
		openRouter: c.OpenRouter,
		timeout:    c.Timeout,
		client:     c.HTTPClient,
	}
	endpoint := c.Endpoint
	if endpoint == "" && c.OpenRouter {
		endpoint = defaultOpenRouterEndpoint
	}
	ch.url = ChatCompletionsURL(endpoint)
	if ch.model == "" && c.OpenRouter {
		ch.model = defaultOpenRouterModel
	}
	if ch.name == "" {
		ch.name = "Custom"
		if c.OpenRouter {
			ch.name = "OpenRouter"
		}
	}
	if ch.textPath == "" {
		ch.textPath = chatTextPath
	}
	if ch.timeout <= 0 {
		ch.timeout = 30 * time.Second
	}
	if ch.client == nil {
		ch.client = http.DefaultClient
	}
	return ch
}

// ChatCompletionsURL appends /chat/completions to a base URL unless it is
// already present.
func ChatCompletionsURL(base string) string {
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return strings.TrimRight(base, "/") + "/chat/completions"
}

// chatBaseURL is the inverse of ChatCompletionsURL.
func chatBaseURL(endpoint string) string {
	return strings.TrimRight(strings.TrimSuffix(endpoint, "/chat/completions"), "/")
}

func (c *Chat) Name() string { return c.name }

func (c *Chat) Transcribe(ctx context.Context, artifactPath string, onProgress ProgressFunc) (string, error) {
	if err := checkKey(c.key); err != nil {
		return "", err
	}
	data, err := readArtifact(artifactPath)
	if err != nil {
		return "", err
	}

	body, err := c.requestBody(artifactPath, data)
	if err != nil {
		return "", err
	}

	headers := map[string]string{"Authorization": "Bearer " + c.key}
	if c.openRouter {
		headers["HTTP-Referer"] = "https://github.com/remberq/simple-voice-transcribe"
		headers["X-Title"] = "dictate"
	}

	status, resp, err := postJSON(ctx, c.client, c.timeout, c.url, headers, body, onProgress)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusUnauthorized:
		if c.openRouter {
			return "", &RemoteError{StatusCode: status, Detail: "Unauthorized. Check your OpenRouter API key."}
		}
		return "", &RemoteError{StatusCode: status, Detail: "Unauthorized. Check your API key."}
	case status == http.StatusPaymentRequired:
		return "", &RemoteError{StatusCode: status, Detail: "Insufficient credits on OpenRouter account."}
	case status == http.StatusTooManyRequests:
		return "", &RemoteError{StatusCode: status, Detail: "Rate limit exceeded or insufficient quota."}
	case status != http.StatusOK:
		return "", &RemoteError{StatusCode: status, Detail: fmt.Sprintf("Server returned HTTP %d: %s", status, truncate(resp))}
	}

	text := gjson.GetBytes(resp, c.textPath)
	if text.Type != gjson.String {
		return "", ErrUnparsableResponse
	}
	return finishText(text.String())
}

func (c *Chat) requestBody(artifactPath string, data []byte) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": c.prompt},
					map[string]any{
						"type": "input_audio",
						"input_audio": map[string]any{
							"data":   base64.StdEncoding.EncodeToString(data),
							"format": AudioFormat(artifactPath),
						},
					},
				},
			},
		},
		"max_tokens":  4096,
		"temperature": 0,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	// Sorted so that nested paths apply after their parents.
	keys := make([]string, 0, len(c.extra))
	for k := range c.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		body, err = sjson.SetBytes(body, k, c.extra[k])
		if err != nil {
			return nil, fmt.Errorf("merge extra field %q: %w", k, err)
		}
	}
	return body, nil
}
