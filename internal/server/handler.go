package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"study-assistant/internal/parser"
	"study-assistant/internal/rag"
	"study-assistant/internal/study"
)

// Handler serves the per-document study views.
type Handler struct {
	svc   *study.Service
	store *study.Store
}

func NewHandler(svc *study.Service, store *study.Store) *Handler {
	return &Handler{svc: svc, store: store}
}

// Register sets up document routes.
func (h *Handler) Register(router fiber.Router) {
	router.Post("/documents", h.Upload)
	router.Get("/documents/:id", h.Get)
	router.Delete("/documents/:id", h.Delete)
	router.Get("/documents/:id/summaries", h.Summaries)
	router.Get("/documents/:id/mcqs", h.MCQs)
	router.Post("/documents/:id/mcqs/save", h.SaveMCQs)
	router.Get("/documents/:id/mcqs/saved", h.StoredMCQs)
	router.Get("/documents/:id/flashcards", h.Flashcards)
	router.Post("/documents/:id/embeddings", h.Embed)
	router.Post("/documents/:id/ask", h.Ask)
	router.Post("/documents/:id/chat", h.Chat)
}

// Upload ingests the multipart "file" field into a new session.
func (h *Handler) Upload(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing file"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable upload"})
	}
	defer f.Close()

	s, err := h.svc.Ingest(c.Context(), fh.Filename, f)
	if err != nil {
		return fail(c, err)
	}
	h.store.Put(s)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       s.ID,
		"filename": s.Filename,
		"chunks":   len(s.Chunks),
	})
}

func (h *Handler) Get(c fiber.Ctx) error {
	s, err := h.store.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"id":         s.ID,
		"filename":   s.Filename,
		"chunks":     s.Chunks,
		"embeddings": s.HasEmbeddings(),
		"mcqs":       len(s.MCQs()),
		"created_at": s.CreatedAt,
	})
}

func (h *Handler) Delete(c fiber.Ctx) error {
	if _, err := h.store.Get(c.Params("id")); err != nil {
		return fail(c, err)
	}
	h.store.Delete(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Summaries(c fiber.Ctx) error {
	s, err := h.store.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	summaries, err := h.svc.Summaries(c.Context(), s)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"summaries": summaries})
}

// MCQs generates questions; mode is "quick" (default) or "full".
func (h *Handler) MCQs(c fiber.Ctx) error {
	s, err := h.store.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	mode := c.Query("mode", "quick")
	if mode != "quick" && mode != "full" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mode must be quick or full"})
	}

	report, err := h.svc.MCQs(c.Context(), s, mode == "quick")
	if err != nil {
		return fail(c, err)
	}
	failures := make([]fiber.Map, len(report.Failures))
	for i, f := range report.Failures {
		failures[i] = fiber.Map{"chunk_id": f.ChunkID, "error": f.Error()}
	}
	return c.JSON(fiber.Map{
		"mode":     mode,
		"mcqs":     report.MCQs,
		"failures": failures,
	})
}

func (h *Handler) SaveMCQs(c fiber.Ctx) error {
	s, err := h.store.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	path, err := h.svc.SaveMCQs(c.Context(), s)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"path": path, "count": len(s.MCQs())})
}

// StoredMCQs lists the questions saved to the database.
func (h *Handler) StoredMCQs(c fiber.Ctx) error {
	s, err := h.store.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	mcqs, err := h.svc.StoredMCQs(c.Context(), s)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"mcqs": mcqs})
}

func (h *Handler) Flashcards(c fiber.Ctx) error {
	s, err := h.store.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	cards, err := h.svc.Flashcards(c.Context(), s)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"flashcards": cards})
}

func (h *Handler) Embed(c fiber.Ctx) error {
	s, err := h.store.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	n, err := h.svc.Embed(c.Context(), s)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"embeddings": n})
}

type queryRequest struct {
	Query string `json:"query"`
}

func (h *Handler) Ask(c fiber.Ctx) error {
	s, err := h.store.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	var body queryRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	results, err := h.svc.Ask(c.Context(), s, body.Query)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"query": strings.TrimSpace(body.Query), "results": results})
}

// Chat answers with the generation model over the top chunks.
func (h *Handler) Chat(c fiber.Ctx) error {
	s, err := h.store.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	var body queryRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	resp, err := h.svc.Chat(c.Context(), s, body.Query)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(resp)
}

func fail(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, study.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, rag.ErrNoEmbeddings),
		errors.Is(err, study.ErrNoMCQs),
		errors.Is(err, study.ErrNoDatabase):
		return fiber.StatusConflict
	case errors.Is(err, study.ErrExtraction):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, parser.ErrUnsupportedFormat),
		errors.Is(err, study.ErrInvalidFilename),
		errors.Is(err, study.ErrEmptyQuery):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
