package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/bull/doc-ingest/internal/chunker"
	"github.com/bull/doc-ingest/internal/embedding"
	"github.com/bull/doc-ingest/internal/storage"
)

// Vector store backends.
const (
	StorePinecone = "pinecone"
	StoreQdrant   = "qdrant"
	StoreMemory   = "memory"
)

// Default Qdrant gRPC endpoint.
const (
	DefaultQdrantHost = "localhost"
	DefaultQdrantPort = 6334
)

// Config is the ingestion run configuration.
type Config struct {
	EmbeddingModel string          `yaml:"embedding_model" toml:"embedding_model" validate:"required"`
	VectorStore    string          `yaml:"vector_store" toml:"vector_store" validate:"oneof=pinecone qdrant memory"`
	PineconeIndex  string          `yaml:"pinecone_index" toml:"pinecone_index" validate:"required"`
	Dimension      int             `yaml:"dimension" toml:"dimension" validate:"gte=0"`
	Metric         string          `yaml:"metric" toml:"metric" validate:"oneof=cosine euclidean dotproduct"`
	Namespace      string          `yaml:"namespace" toml:"namespace"`
	ChunkSize      int             `yaml:"chunk_size" toml:"chunk_size" validate:"gt=0"`
	ChunkOverlap   int             `yaml:"chunk_overlap" toml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	InputStreams   []InputStream   `yaml:"input_streams" toml:"input_streams" validate:"required,min=1,dive"`
	Metadata       map[string]any  `yaml:"metadata" toml:"metadata"`
	EnvFile        string          `yaml:"env_file" toml:"env_file"`
	Summarize      bool            `yaml:"summarize" toml:"summarize"`
	Embedding      EmbeddingConfig `yaml:"embedding" toml:"embedding"`
	Qdrant         QdrantConfig    `yaml:"qdrant" toml:"qdrant"`

	// Dir is the directory of the loaded file, used to resolve env_file.
	Dir string `yaml:"-" toml:"-"`
}

// InputStream is either a local folder or a GitHub repository directory.
type InputStream struct {
	Path         string        `yaml:"path" toml:"path" validate:"required_without=GitHub,excluded_with=GitHub"`
	GitHub       *GitHubSource `yaml:"github" toml:"github" validate:"omitempty"`
	ContentTypes []string      `yaml:"content_types" toml:"content_types"`
}

// GitHubSource names a directory of a GitHub repository.
type GitHubSource struct {
	Owner string `yaml:"owner" toml:"owner" validate:"required"`
	Repo  string `yaml:"repo" toml:"repo" validate:"required"`
	Path  string `yaml:"path" toml:"path"`
	Ref   string `yaml:"ref" toml:"ref"`
}

// EmbeddingConfig tunes the embedding backends.
type EmbeddingConfig struct {
	BatchSize         int    `yaml:"batch_size" toml:"batch_size" validate:"gte=0"`
	RequestsPerMinute int    `yaml:"requests_per_minute" toml:"requests_per_minute" validate:"gte=0"`
	LocalURL          string `yaml:"local_url" toml:"local_url" validate:"omitempty,url"`
}

// QdrantConfig holds the Qdrant connection used when vector_store is qdrant.
type QdrantConfig struct {
	Host   string `yaml:"host" toml:"host"`
	Port   int    `yaml:"port" toml:"port" validate:"gte=0,lte=65535"`
	APIKey string `yaml:"api_key" toml:"api_key"`
	UseTLS bool   `yaml:"use_tls" toml:"use_tls"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their configuration key.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads a YAML or TOML configuration file, applies defaults and validates it.
// Environment variables referenced as ${VAR} are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes configuration data in the format named by ext (".toml", otherwise YAML).
func Parse(data []byte, ext string) (*Config, error) {
	expanded := expandEnv(data)

	cfg := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("%w: parse TOML: %v", ErrInvalidConfig, err)
		}
	default:
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("%w: parse YAML: %v", ErrInvalidConfig, err)
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envRef matches ${VAR}; a bare $ is literal.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		return []byte(os.Getenv(string(envRef.FindSubmatch(ref)[1])))
	})
}

// Default returns a configuration with every optional key at its default value.
// Files are decoded on top of it, so keys absent from a file keep these values.
func Default() Config {
	return Config{
		VectorStore:  StorePinecone,
		Metric:       storage.MetricCosine,
		Namespace:    storage.DefaultNamespace,
		ChunkSize:    chunker.DefaultSize,
		ChunkOverlap: chunker.DefaultOverlap,
		Qdrant: QdrantConfig{
			Host: DefaultQdrantHost,
			Port: DefaultQdrantPort,
		},
	}
}

// normalize lower-cases enumerations and restores defaults blanked by a file.
func (c *Config) normalize() {
	c.EmbeddingModel = strings.TrimSpace(c.EmbeddingModel)
	c.VectorStore = strings.ToLower(strings.TrimSpace(c.VectorStore))
	if c.VectorStore == "" {
		c.VectorStore = StorePinecone
	}
	c.Metric = strings.ToLower(strings.TrimSpace(c.Metric))
	if c.Metric == "" {
		c.Metric = storage.MetricCosine
	}
	if c.Namespace == "" {
		c.Namespace = storage.DefaultNamespace
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = DefaultQdrantHost
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = DefaultQdrantPort
	}
}

// Validate checks field constraints, the embedding model key and the dimension.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return describeValidation(err)
	}

	spec, err := embedding.LookupModel(c.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("%w: embedding_model: %w", ErrInvalidConfig, err)
	}
	if c.Dimension != 0 && c.Dimension != spec.Dimension {
		return fmt.Errorf("%w: dimension: %d does not match embedding_model %q (%d)",
			ErrInvalidConfig, c.Dimension, c.EmbeddingModel, spec.Dimension)
	}
	return nil
}

// ResolvedDimension returns the index dimension: the configured one, else the model's.
func (c *Config) ResolvedDimension() int {
	if c.Dimension != 0 {
		return c.Dimension
	}
	spec, err := embedding.LookupModel(c.EmbeddingModel)
	if err != nil {
		return 0
	}
	return spec.Dimension
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		msg := fmt.Sprintf("%s: failed %q", key, fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s: failed %q (%s)", key, fe.Tag(), fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
