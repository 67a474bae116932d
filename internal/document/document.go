// Package document defines the unit of content that flows through the
// ingestion pipeline: loaders and scrapers produce Documents, the splitter
// cuts them into chunk-sized Documents, and the vector store indexes them.
package document

// SourceType values stored in Metadata.Type.
const (
	TypeWebPage = "web_page"
	TypeFile    = "file"
)

type Metadata struct {
	Source  string `json:"source"`
	Title   string `json:"title,omitempty"`
	Page    int    `json:"page,omitempty"`
	Domain  string `json:"domain,omitempty"`
	Type    string `json:"type,omitempty"`
	Scraper string `json:"scraper,omitempty"`
}

// Document is immutable once created; pipeline stages only ever append
// metadata on freshly built copies.
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

func New(content string, meta Metadata) Document {
	return Document{Content: content, Metadata: meta}
}
