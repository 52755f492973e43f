package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/bull/doc-ingest/internal/storage"
)

// PineconeEnv holds Pinecone credentials read from the environment.
type PineconeEnv struct {
	APIKey      string
	Host        string
	Environment string // Legacy pod environment, informational only
	Cloud       string
	Region      string
}

// LoadEnvironment loads a dotenv file. The name is tried as given, lower-cased and
// upper-cased, relative to the working directory and then to baseDir.
// Variables already set in the process environment are not overridden.
// It returns the path that was loaded.
func LoadEnvironment(envFile, baseDir string) (string, error) {
	candidates := envFileCandidates(envFile, baseDir)
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return "", fmt.Errorf("load env file %s: %w", p, err)
		}
		return p, nil
	}
	return "", fmt.Errorf("%w: could not find env file among: %s",
		ErrMissingCredentials, strings.Join(candidates, ", "))
}

func envFileCandidates(envFile, baseDir string) []string {
	names := []string{envFile}
	for _, variant := range []string{strings.ToLower(envFile), strings.ToUpper(envFile)} {
		if !slices.Contains(names, variant) {
			names = append(names, variant)
		}
	}

	var candidates []string
	add := func(p string) {
		if !slices.Contains(candidates, p) {
			candidates = append(candidates, p)
		}
	}
	for _, name := range names {
		add(name)
		if baseDir != "" && !filepath.IsAbs(name) {
			add(filepath.Join(baseDir, name))
		}
	}
	return candidates
}

// Getenv returns the first non-empty value among the named variables.
func Getenv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// PineconeCredentials reads Pinecone settings, accepting common variable name variants.
func PineconeCredentials() (*PineconeEnv, error) {
	env := &PineconeEnv{
		APIKey:      Getenv("PINECONE_API_KEY", "PINECONE_APIKEY", "PINECONE_KEY"),
		Host:        Getenv("PINECONE_HOST"),
		Environment: Getenv("PINECONE_ENVIRONMENT", "PINECONE_ENV"),
		Cloud:       Getenv("PINECONE_CLOUD"),
		Region:      Getenv("PINECONE_REGION"),
	}
	if env.APIKey == "" {
		return nil, fmt.Errorf("%w: PINECONE_API_KEY is not set", ErrMissingCredentials)
	}
	if env.Cloud == "" {
		env.Cloud = storage.DefaultCloud
	}
	if env.Region == "" {
		env.Region = storage.DefaultRegion
	}
	return env, nil
}

// QdrantSettings returns the configured Qdrant connection with
// QDRANT_HOST, QDRANT_PORT and QDRANT_API_KEY applied as overrides.
func (c *Config) QdrantSettings() (QdrantConfig, error) {
	q := c.Qdrant
	if host := Getenv("QDRANT_HOST"); host != "" {
		q.Host = host
	}
	if port := Getenv("QDRANT_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return q, fmt.Errorf("%w: QDRANT_PORT %q is not a number", ErrInvalidConfig, port)
		}
		q.Port = p
	}
	if key := Getenv("QDRANT_API_KEY"); key != "" {
		q.APIKey = key
	}
	return q, nil
}
