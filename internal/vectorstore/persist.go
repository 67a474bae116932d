package vectorstore

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"docseek/apps/backend/internal/document"
)

// indexPayload is the gob-encoded binary artifact: vectors plus the id of
// each row, position-aligned.
type indexPayload struct {
	Dim     int
	IDs     []int64
	Vectors [][]float32
}

// docstorePayload is the JSON artifact: the reverse id→chunk map and the
// id counter, so allocation stays monotonic across restarts.
type docstorePayload struct {
	NextID    int64                       `json:"next_id"`
	Documents map[int64]document.Document `json:"documents"`
}

// persist writes both artifacts via temp-file-then-rename so a crash
// mid-write never leaves a truncated index behind. Callers hold m.mu.
func (m *Manager) persist() error {
	dim := 0
	payload := indexPayload{
		IDs:     make([]int64, 0, len(m.entries)),
		Vectors: make([][]float32, 0, len(m.entries)),
	}
	docs := docstorePayload{
		NextID:    m.nextID,
		Documents: make(map[int64]document.Document, len(m.entries)),
	}
	for _, e := range m.entries {
		dim = len(e.vector)
		payload.IDs = append(payload.IDs, e.id)
		payload.Vectors = append(payload.Vectors, e.vector)
		docs.Documents[e.id] = e.doc
	}
	payload.Dim = dim

	if err := writeAtomic(filepath.Join(m.path, indexFile), func(f *os.File) error {
		return gob.NewEncoder(f).Encode(&payload)
	}); err != nil {
		return fmt.Errorf("writing %s: %w", indexFile, err)
	}

	if err := writeAtomic(filepath.Join(m.path, docstoreFile), func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(&docs)
	}); err != nil {
		return fmt.Errorf("writing %s: %w", docstoreFile, err)
	}
	return nil
}

// load reads both artifacts. Both must exist and agree; any inconsistency
// is an error the caller downgrades to "no existing index".
func (m *Manager) load() error {
	idxFile, err := os.Open(filepath.Join(m.path, indexFile))
	if err != nil {
		return err
	}
	defer idxFile.Close()

	var payload indexPayload
	if err := gob.NewDecoder(idxFile).Decode(&payload); err != nil {
		return fmt.Errorf("decoding %s: %w", indexFile, err)
	}

	docData, err := os.ReadFile(filepath.Join(m.path, docstoreFile))
	if err != nil {
		return err
	}
	var docs docstorePayload
	if err := json.Unmarshal(docData, &docs); err != nil {
		return fmt.Errorf("decoding %s: %w", docstoreFile, err)
	}

	if len(payload.IDs) != len(payload.Vectors) {
		return fmt.Errorf("index corrupt: %d ids vs %d vectors", len(payload.IDs), len(payload.Vectors))
	}

	entries := make([]entry, 0, len(payload.IDs))
	for i, id := range payload.IDs {
		doc, ok := docs.Documents[id]
		if !ok {
			return fmt.Errorf("index corrupt: id %d missing from docstore", id)
		}
		entries = append(entries, entry{id: id, vector: payload.Vectors[i], doc: doc})
	}

	m.entries = entries
	m.created = true
	m.nextID = docs.NextID
	return nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
