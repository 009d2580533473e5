package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 120 * time.Second

type Client struct {
	baseURL    string
	genModel   string
	httpClient *http.Client
}

func New(baseURL, genModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (c *Client) Model() string {
	return c.genModel
}

// Generator is the raw text-in/text-out model call. It asks the server for
// JSON output but does not interpret the response.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := g.client.generateJSON(ctx, prompt)
	if err != nil {
		return "", markUnavailable("ollama generate", err)
	}
	return text, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
