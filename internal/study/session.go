package study

import (
	"errors"
	"sync"
	"time"

	"study-assistant/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// Session holds one uploaded document. Chunks are fixed at ingest; embeddings
// and the last generated MCQs change on explicit actions.
type Session struct {
	ID        string
	Filename  string
	Path      string
	Chunks    []models.Chunk
	CreatedAt time.Time

	mu         sync.RWMutex
	embeddings [][]float32
	mcqs       []models.MCQ
}

func (s *Session) Embeddings() [][]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddings
}

func (s *Session) HasEmbeddings() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.embeddings) > 0
}

func (s *Session) setEmbeddings(vectors [][]float32) {
	s.mu.Lock()
	s.embeddings = vectors
	s.mu.Unlock()
}

// MCQs returns the questions from the most recent generation.
func (s *Session) MCQs() []models.MCQ {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mcqs
}

func (s *Session) setMCQs(mcqs []models.MCQ) {
	s.mu.Lock()
	s.mcqs = mcqs
	s.mu.Unlock()
}

// Store keeps sessions in memory for the life of the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func (st *Store) Put(s *Session) {
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
