package github

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// TokenEnv is the environment variable holding an optional GitHub token.
const TokenEnv = "GITHUB_TOKEN"

// Client wraps the GitHub API client with rate limiting support
type Client struct {
	*github.Client
}

// ClientOptions configures the GitHub client.
type ClientOptions struct {
	Token   string // Falls back to GITHUB_TOKEN
	BaseURL string // API base URL override, for GitHub Enterprise and tests
}

// NewClient creates a new GitHub client with optional authentication and rate limiting.
// Without a token the client is unauthenticated (60 requests per hour).
func NewClient(opts ClientOptions) (*Client, error) {
	// Handles primary and secondary rate limits with automatic waiting.
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(rateLimiter)

	token := opts.Token
	if token == "" {
		token = os.Getenv(TokenEnv)
	}
	if token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", opts.BaseURL, err)
		}
		ghClient.BaseURL = u
	}

	return &Client{Client: ghClient}, nil
}
