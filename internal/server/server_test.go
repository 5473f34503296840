package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-assistant/internal/config"
	"study-assistant/internal/embedding/embedtest"
	"study-assistant/internal/inference"
	"study-assistant/internal/llmservice/llmtest"
	"study-assistant/internal/study"
)

// MCQ generation tags every chunk, which can outlast the default one second.
var testConfig = fiber.TestConfig{Timeout: 30 * time.Second, FailOnTimeout: true}

const document = "Osmosis moves water across the cell membrane. The nucleus stores DNA in every cell."

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Study.UploadsDir = filepath.Join(dir, "uploads")
	cfg.Study.DataDir = filepath.Join(dir, "data")
	cfg.RAG.WordsPerChunk = 5
	cfg.Questions.Seed = 3

	llm := &llmtest.FakeLLM{Respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Summarize the document"):
			return "Summary.", nil
		case strings.Contains(prompt, "distinct questions"):
			return "What moves water?\nWhere is DNA?", nil
		case strings.Contains(prompt, "<context>"):
			return "the nucleus", nil
		default:
			return "In the nucleus.", nil
		}
	}}
	embedder := embedtest.BagOfWords{Vocabulary: []string{"osmosis", "water", "cell", "nucleus", "dna"}}
	registry := inference.NewStaticRegistry(cfg, llm, embedder)

	h := NewHandler(study.NewService(cfg, registry, nil), study.NewStore())
	return New(cfg, h)
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, testConfig)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &out), string(body))
	}
	return resp.StatusCode, out
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func upload(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := do(t, app, uploadRequest(t, "biology.txt", document))
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "biology.txt", body["filename"])
	assert.EqualValues(t, 3, body["chunks"])
	return body["id"].(string)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestUploadErrors(t *testing.T) {
	app := newTestApp(t)

	status, _ := do(t, app, uploadRequest(t, "image.png", "data"))
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := do(t, app, uploadRequest(t, "empty.txt", "   "))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["error"], "extraction")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	status, _ = do(t, app, req)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUnknownSession(t *testing.T) {
	app := newTestApp(t)
	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/documents/nope/summaries", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "session not found", body["error"])
}

func TestStudyFlow(t *testing.T) {
	app := newTestApp(t)
	id := upload(t, app)
	base := "/api/v1/documents/" + id

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, base+"/summaries", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["summaries"], 3)

	status, body = do(t, app, httptest.NewRequest(http.MethodGet, base+"/flashcards", nil))
	require.Equal(t, http.StatusOK, status)
	cards := body["flashcards"].([]any)
	require.Len(t, cards, 3)
	assert.Equal(t, "Chunk 1 - key idea?", cards[0].(map[string]any)["front"])

	status, _ = do(t, app, httptest.NewRequest(http.MethodPost, base+"/mcqs/save", nil))
	assert.Equal(t, http.StatusConflict, status)

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, base+"/mcqs?mode=partial", nil))
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, app, httptest.NewRequest(http.MethodGet, base+"/mcqs?mode=full", nil))
	require.Equal(t, http.StatusOK, status)
	mcqs := body["mcqs"].([]any)
	assert.Len(t, mcqs, 6)
	assert.Empty(t, body["failures"])
	first := mcqs[0].(map[string]any)
	assert.Len(t, first["options"], 4)
	assert.Contains(t, first["options"], first["answer"])

	status, body = do(t, app, httptest.NewRequest(http.MethodPost, base+"/mcqs/save", nil))
	require.Equal(t, http.StatusOK, status)
	assert.FileExists(t, body["path"].(string))

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, base+"/mcqs/saved", nil))
	assert.Equal(t, http.StatusConflict, status)
}

func TestAskFlow(t *testing.T) {
	app := newTestApp(t)
	id := upload(t, app)
	base := "/api/v1/documents/" + id

	status, _ := do(t, app, jsonRequest(http.MethodPost, base+"/ask", `{"query":"where is dna"}`))
	assert.Equal(t, http.StatusConflict, status)

	status, body := do(t, app, httptest.NewRequest(http.MethodPost, base+"/embeddings", nil))
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["embeddings"])

	status, body = do(t, app, jsonRequest(http.MethodPost, base+"/ask", `{"query":"where is dna"}`))
	require.Equal(t, http.StatusOK, status)
	results := body["results"].([]any)
	require.Len(t, results, 3)
	top := results[0].(map[string]any)
	assert.EqualValues(t, 3, top["id"])

	status, _ = do(t, app, jsonRequest(http.MethodPost, base+"/ask", `{"query":"  "}`))
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, app, jsonRequest(http.MethodPost, base+"/chat", `{"query":"where is dna"}`))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "In the nucleus.", body["content"])
}

func TestDeleteSession(t *testing.T) {
	app := newTestApp(t)
	id := upload(t, app)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+id, nil), testConfig)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	status, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+id, nil))
	assert.Equal(t, http.StatusNotFound, status)
}
