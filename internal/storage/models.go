package storage

// Record is the unit persisted to the vector store.
type Record struct {
	ID       string         // {sanitized source}_{ordinal:04d}
	Vector   []float32      // Embedding of the chunk
	Metadata map[string]any // Run and document metadata plus "text"
}

// Match is a record returned by a similarity query.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Text returns the stored chunk text of the match.
func (m Match) Text() string {
	text, _ := m.Metadata[MetaText].(string)
	return text
}

// IndexSpec describes an index to create.
type IndexSpec struct {
	Name      string
	Dimension int
	Metric    string // cosine, euclidean or dotproduct
	Cloud     string // Placement, for serverless backends
	Region    string
}

// IndexInfo describes an existing index.
type IndexInfo struct {
	Name      string
	Dimension int // 0 when the backend does not report it
	Metric    string
	Host      string
}

// Similarity metrics.
const (
	MetricCosine     = "cosine"
	MetricEuclidean  = "euclidean"
	MetricDotProduct = "dotproduct"
)

// Metadata keys owned by the writer.
const (
	MetaText      = "text"
	MetaNamespace = "namespace"
	MetaTitle     = "title"
	MetaFilename  = "filename"
)

// MaxTextChars caps the chunk text stored in record metadata.
const MaxTextChars = 8000
