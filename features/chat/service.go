// Package chat answers questions over the indexed knowledge base with
// retrieval-augmented generation and keeps per-session conversation history
// in memory.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"docseek/apps/backend/internal/document"
)

const systemPreamble = `You are a helpful assistant. Answer the user's question using the provided context when it is relevant. If the context does not contain the answer, say so and answer from general knowledge, noting that the knowledge base did not cover it. Be concise.`

// historyLimit bounds how many prior exchanges are replayed into the prompt.
const historyLimit = 6

type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]document.Document, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type exchange struct {
	question string
	answer   string
}

type Answer struct {
	Answer    string   `json:"answer"`
	SessionID string   `json:"session_id"`
	Sources   []string `json:"sources"`
}

type Service struct {
	searcher  Searcher
	generator Generator
	k         int

	mu       sync.Mutex
	sessions map[string][]exchange
}

func NewService(searcher Searcher, generator Generator, k int) *Service {
	return &Service{
		searcher:  searcher,
		generator: generator,
		k:         k,
		sessions:  make(map[string][]exchange),
	}
}

// Ask retrieves context for the message, assembles the prompt with the
// session's recent history and generates an answer. An empty index is not
// an error; the model simply answers without retrieved context.
func (s *Service) Ask(ctx context.Context, message, sessionID string) (*Answer, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	docs, err := s.searcher.Search(ctx, message, s.k)
	if err != nil {
		slog.WarnContext(ctx, "retrieval failed, answering without context", "error", err)
		docs = nil
	}

	prompt := s.buildPrompt(message, sessionID, docs)
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	s.remember(sessionID, message, answer)

	return &Answer{
		Answer:    answer,
		SessionID: sessionID,
		Sources:   sourceList(docs),
	}, nil
}

// ClearSession drops one session's history. Clearing an unknown session is
// a no-op.
func (s *Service) ClearSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Service) buildPrompt(message, sessionID string, docs []document.Document) string {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\n")

	if len(docs) > 0 {
		b.WriteString("Context:\n")
		for i, d := range docs {
			fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, d.Metadata.Source, d.Content)
		}
	}

	s.mu.Lock()
	history := s.sessions[sessionID]
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	s.mu.Unlock()

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, ex := range history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", ex.question, ex.answer)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s", message)
	return b.String()
}

func (s *Service) remember(sessionID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], exchange{question: question, answer: answer})
}

// sourceList deduplicates retrieved chunk sources, preserving rank order.
func sourceList(docs []document.Document) []string {
	sources := []string{}
	seen := make(map[string]struct{})
	for _, d := range docs {
		src := d.Metadata.Source
		if src == "" {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	return sources
}
