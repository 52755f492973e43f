package embedding

import (
	"fmt"
	"net/http"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// APIKeyEnv is the environment variable holding the OpenAI API key.
const APIKeyEnv = "OPENAI_API_KEY"

// ClientOptions configures the OpenAI client.
type ClientOptions struct {
	APIKey     string       // Falls back to OPENAI_API_KEY
	BaseURL    string       // Optional, for compatible endpoints and tests
	HTTPClient *http.Client // Optional
}

// NewClient creates an OpenAI client shared by embedding and metadata generation.
// It returns an error if no API key is available.
func NewClient(opts ClientOptions) (*openai.Client, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", APIKeyEnv)
	}

	// Retries are handled by our own backoff so 429s are retried uniformly.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	client := openai.NewClient(reqOpts...)
	return &client, nil
}
