package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearPineconeEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PINECONE_API_KEY", "PINECONE_APIKEY", "PINECONE_KEY", "PINECONE_HOST",
		"PINECONE_ENVIRONMENT", "PINECONE_ENV", "PINECONE_CLOUD", "PINECONE_REGION",
	} {
		// Register restoration, then unset: dotenv never overrides a set variable.
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadEnvironment_UpperCaseVariantInBaseDir(t *testing.T) {
	clearPineconeEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ENV.RESEARCH"), []byte("PINECONE_APIKEY=pk-test\n"), 0o644))

	loaded, err := LoadEnvironment(".env.research", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".ENV.RESEARCH"), loaded)

	creds, err := PineconeCredentials()
	require.NoError(t, err)
	assert.Equal(t, "pk-test", creds.APIKey)
	assert.Equal(t, "aws", creds.Cloud)
	assert.Equal(t, "us-east-1", creds.Region)
}

func TestLoadEnvironment_DoesNotOverride(t *testing.T) {
	clearPineconeEnv(t)
	t.Setenv("PINECONE_API_KEY", "from-process")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "creds.env"), []byte("PINECONE_API_KEY=from-file\n"), 0o644))

	_, err := LoadEnvironment("creds.env", dir)
	require.NoError(t, err)

	creds, err := PineconeCredentials()
	require.NoError(t, err)
	assert.Equal(t, "from-process", creds.APIKey)
}

func TestLoadEnvironment_Missing(t *testing.T) {
	_, err := LoadEnvironment(".env.nowhere", t.TempDir())
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.Contains(t, err.Error(), ".ENV.NOWHERE")
}

func TestEnvFileCandidates(t *testing.T) {
	got := envFileCandidates(".env.Mixed", "/cfg")
	assert.Equal(t, []string{
		".env.Mixed", filepath.Join("/cfg", ".env.Mixed"),
		".env.mixed", filepath.Join("/cfg", ".env.mixed"),
		".ENV.MIXED", filepath.Join("/cfg", ".ENV.MIXED"),
	}, got)
}

func TestPineconeCredentials(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		clearPineconeEnv(t)
		_, err := PineconeCredentials()
		assert.ErrorIs(t, err, ErrMissingCredentials)
	})

	t.Run("aliases and overrides", func(t *testing.T) {
		clearPineconeEnv(t)
		t.Setenv("PINECONE_KEY", "pk-alias")
		t.Setenv("PINECONE_ENV", "us-west1-gcp")
		t.Setenv("PINECONE_HOST", "docs-abc.svc.pinecone.io")
		t.Setenv("PINECONE_REGION", "eu-west-1")

		creds, err := PineconeCredentials()
		require.NoError(t, err)
		assert.Equal(t, "pk-alias", creds.APIKey)
		assert.Equal(t, "us-west1-gcp", creds.Environment)
		assert.Equal(t, "docs-abc.svc.pinecone.io", creds.Host)
		assert.Equal(t, "eu-west-1", creds.Region)
	})
}

func TestQdrantSettings(t *testing.T) {
	cfg := Default()
	t.Setenv("QDRANT_HOST", "")
	t.Setenv("QDRANT_PORT", "")
	t.Setenv("QDRANT_API_KEY", "")

	q, err := cfg.QdrantSettings()
	require.NoError(t, err)
	assert.Equal(t, DefaultQdrantHost, q.Host)
	assert.Equal(t, DefaultQdrantPort, q.Port)

	t.Setenv("QDRANT_HOST", "db")
	t.Setenv("QDRANT_PORT", "7000")
	q, err = cfg.QdrantSettings()
	require.NoError(t, err)
	assert.Equal(t, "db", q.Host)
	assert.Equal(t, 7000, q.Port)

	t.Setenv("QDRANT_PORT", "seventy")
	_, err = cfg.QdrantSettings()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
