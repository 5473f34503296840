package study

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"study-assistant/internal/chromemdb"
	"study-assistant/internal/config"
	"study-assistant/internal/db"
	"study-assistant/internal/embedding"
	"study-assistant/internal/export"
	"study-assistant/internal/helper"
	"study-assistant/internal/inference"
	"study-assistant/internal/models"
	"study-assistant/internal/parser"
	"study-assistant/internal/rag"
)

// Summary bounds for the summaries view and for flashcard backs.
const (
	SummaryMaxLength   = 120
	SummaryMinLength   = 40
	FlashcardMaxLength = 60
	FlashcardMinLength = 20
)

var (
	ErrExtraction      = errors.New("text extraction failed")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrEmptyQuery      = errors.New("query is empty")
	ErrNoMCQs          = errors.New("no MCQs have been generated")
	ErrNoDatabase      = errors.New("database is disabled")
)

// ChunkError records an MCQ failure for one chunk. The remaining chunks are
// still processed.
type ChunkError struct {
	ChunkID int
	Err     error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("MCQ generation failed for chunk %d: %v", e.ChunkID, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

type MCQReport struct {
	MCQs     []models.MCQ
	Failures []*ChunkError
}

// Service runs the study pipeline over sessions. Every operation is
// synchronous and walks chunks in order.
type Service struct {
	cfg      *config.Config
	registry *inference.Registry
	rag      *rag.RAG
	db       *bun.DB
}

// NewService builds a service. db may be nil when the database is disabled.
func NewService(cfg *config.Config, registry *inference.Registry, bunDB *bun.DB) *Service {
	return &Service{
		cfg:      cfg,
		registry: registry,
		rag:      rag.NewRAG(registry, cfg.RAG.TopK),
		db:       bunDB,
	}
}

// Ingest writes the upload into the uploads directory unchanged, then
// extracts, cleans and chunks it.
func (svc *Service) Ingest(ctx context.Context, filename string, r io.Reader) (*Session, error) {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	if !parser.SupportedExtension(name) {
		return nil, fmt.Errorf("%w: %s", parser.ErrUnsupportedFormat, filepath.Ext(name))
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(svc.cfg.Study.UploadsDir, id)
	if err := helper.CreateFolder(dir); err != nil {
		return nil, fmt.Errorf("create upload folder: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := writeUpload(path, r); err != nil {
		discardUpload(dir)
		return nil, err
	}

	text, err := parser.Extract(path)
	if err != nil {
		discardUpload(dir)
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	chunks, err := parser.ChunkText(parser.Clean(text), svc.cfg.RAG.WordsPerChunk)
	if err != nil {
		discardUpload(dir)
		return nil, err
	}

	s := &Session{
		ID:        id,
		Filename:  name,
		Path:      path,
		Chunks:    chunks,
		CreatedAt: time.Now(),
	}
	if svc.db != nil {
		if err := db.StoreDocument(ctx, svc.db, id, name, len(chunks)); err != nil {
			log.Warn().Err(err).Str("document", id).Msg("Error storing document")
		}
	}
	log.Info().Str("session", id).Str("file", name).Int("chunks", len(chunks)).Msg("Document ingested")
	return s, nil
}

// IngestFile ingests a file that is already on disk.
func (svc *Service) IngestFile(ctx context.Context, path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	defer f.Close()
	return svc.Ingest(ctx, path, f)
}

func writeUpload(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("save upload: %w", err)
	}
	return f.Close()
}

// discardUpload removes the folder of an upload that never became a session.
func discardUpload(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Error removing failed upload")
	}
}

// Summaries summarizes every chunk. Failures show up inline in the summary
// text.
func (svc *Service) Summaries(ctx context.Context, s *Session) ([]models.Summary, error) {
	sum, err := svc.registry.Summarizer()
	if err != nil {
		return nil, err
	}
	out := make([]models.Summary, 0, len(s.Chunks))
	for _, c := range s.Chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, models.Summary{
			ID:      c.ID,
			Summary: sum.Summarize(ctx, c.Text, SummaryMaxLength, SummaryMinLength),
		})
	}
	return out, nil
}

// MCQs generates questions for the first QuickChunks chunks in quick mode,
// or for every chunk otherwise. The result replaces the session's MCQs.
func (svc *Service) MCQs(ctx context.Context, s *Session, quick bool) (*MCQReport, error) {
	pipeline, err := svc.registry.Pipeline()
	if err != nil {
		return nil, err
	}

	chunks := s.Chunks
	if quick && len(chunks) > svc.cfg.Study.QuickChunks {
		chunks = chunks[:svc.cfg.Study.QuickChunks]
	}

	report := &MCQReport{MCQs: []models.MCQ{}}
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mcqs, err := pipeline.Generate(ctx, c.Text, svc.cfg.Questions.NumQuestions)
		if err != nil {
			log.Warn().Err(err).Int("chunk", c.ID).Msg("MCQ generation failed")
			report.Failures = append(report.Failures, &ChunkError{ChunkID: c.ID, Err: err})
			continue
		}
		report.MCQs = append(report.MCQs, mcqs...)
	}
	s.setMCQs(report.MCQs)

	log.Info().Str("session", s.ID).Int("mcqs", len(report.MCQs)).Int("failures", len(report.Failures)).Msg("Generated MCQs")
	return report, nil
}

// Flashcards builds a card for each of the first FlashcardChunks chunks.
func (svc *Service) Flashcards(ctx context.Context, s *Session) ([]models.Flashcard, error) {
	sum, err := svc.registry.Summarizer()
	if err != nil {
		return nil, err
	}
	chunks := s.Chunks
	if len(chunks) > svc.cfg.Study.FlashcardChunks {
		chunks = chunks[:svc.cfg.Study.FlashcardChunks]
	}
	cards := make([]models.Flashcard, 0, len(chunks))
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cards = append(cards, models.Flashcard{
			Front: fmt.Sprintf(models.FlashcardFront, c.ID),
			Back:  sum.Summarize(ctx, c.Text, FlashcardMaxLength, FlashcardMinLength),
		})
	}
	return cards, nil
}

// Embed computes an embedding for every chunk and keeps them on the session.
func (svc *Service) Embed(ctx context.Context, s *Session) (int, error) {
	embedder, err := svc.registry.Embedder()
	if err != nil {
		return 0, err
	}
	vectors, err := embedding.Embed(ctx, embedder, chunkTexts(s.Chunks))
	if err != nil {
		return 0, err
	}
	s.setEmbeddings(vectors)
	log.Info().Str("session", s.ID).Int("embeddings", len(vectors)).Msg("Embeddings ready")
	return len(vectors), nil
}

// Ask runs a semantic search. Result text is cut to PreviewChars.
func (svc *Service) Ask(ctx context.Context, s *Session, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	results, err := svc.rag.Search(ctx, s.Chunks, s.Embeddings(), query)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Text = Preview(results[i].Text, svc.cfg.Study.PreviewChars)
	}
	return results, nil
}

// Chat answers query with the generation model, grounded in the top chunks.
func (svc *Service) Chat(ctx context.Context, s *Session, query string) (*models.PromptResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	resp, err := svc.rag.Query(ctx, s.Chunks, s.Embeddings(), query)
	if err != nil {
		return nil, err
	}
	for i := range resp.Sources {
		resp.Sources[i].Text = Preview(resp.Sources[i].Text, svc.cfg.Study.PreviewChars)
	}
	return resp, nil
}

// SaveMCQs writes the session's MCQs to mcqs.csv and mcqs.xlsx in the data
// directory and, when enabled, to the database. It returns the CSV path.
func (svc *Service) SaveMCQs(ctx context.Context, s *Session) (string, error) {
	mcqs := s.MCQs()
	if len(mcqs) == 0 {
		return "", ErrNoMCQs
	}
	path, err := export.SaveMCQsCSV(mcqs, filepath.Join(svc.cfg.Study.DataDir, "mcqs.csv"))
	if err != nil {
		return "", err
	}
	if _, err := export.SaveMCQsXLSX(mcqs, filepath.Join(svc.cfg.Study.DataDir, "mcqs.xlsx")); err != nil {
		return "", err
	}
	if svc.db != nil {
		if err := db.StoreMCQs(ctx, svc.db, s.ID, mcqs); err != nil {
			return "", fmt.Errorf("store mcqs: %w", err)
		}
	}
	return path, nil
}

// StoredMCQs returns the questions last saved to the database for s.
func (svc *Service) StoredMCQs(ctx context.Context, s *Session) ([]models.MCQ, error) {
	if svc.db == nil {
		return nil, ErrNoDatabase
	}
	return db.ListMCQs(ctx, svc.db, s.ID)
}

// SaveChunks writes the session's chunks to chunks.csv in the data directory.
func (svc *Service) SaveChunks(s *Session) (string, error) {
	return export.SaveChunksCSV(s.Chunks, filepath.Join(svc.cfg.Study.DataDir, "chunks.csv"))
}

// SaveFlashcards renders cards to flashcards.pdf in the data directory.
func (svc *Service) SaveFlashcards(s *Session, cards []models.Flashcard) (string, error) {
	return export.SaveFlashcardsPDF(cards, s.Filename, filepath.Join(svc.cfg.Study.DataDir, "flashcards.pdf"))
}

// SaveEmbeddings exports the session's chunks and vectors as a chromem
// collection.
func (svc *Service) SaveEmbeddings(ctx context.Context, s *Session) (string, error) {
	vectors := s.Embeddings()
	if len(vectors) == 0 {
		return "", rag.ErrNoEmbeddings
	}
	path := filepath.Join(svc.cfg.Study.DataDir, s.ID+"_embeddings.gob")
	return chromemdb.SaveEmbeddings(ctx, path, s.Chunks, vectors, svc.cfg.RAG.Compress, svc.cfg.RAG.EncryptionKey)
}

// LoadEmbeddings restores vectors written by SaveEmbeddings onto s. The
// stored chunks must match the session's.
func (svc *Service) LoadEmbeddings(ctx context.Context, s *Session, path string) error {
	chunks, vectors, err := chromemdb.LoadEmbeddings(ctx, path, svc.cfg.RAG.EncryptionKey)
	if err != nil {
		return err
	}
	if len(chunks) != len(s.Chunks) {
		return fmt.Errorf("embeddings cover %d chunks, session has %d", len(chunks), len(s.Chunks))
	}
	s.setEmbeddings(vectors)
	return nil
}

// Preview cuts text to n characters, marking the cut with "...".
func Preview(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}

func chunkTexts(chunks []models.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}
