package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"study-assistant/internal/models"
)

func sampleMCQs() []models.MCQ {
	return []models.MCQ{
		{Question: "What powers the cell?", Options: []string{"ribosomes", "the mitochondria", "DNA", "the nucleus"}, Answer: "the mitochondria"},
		{Question: "Qu'est-ce que l'osmose, \"vraiment\"?", Options: []string{"Option A", "diffusion, of water", "Option C", "Option D"}, Answer: "diffusion, of water"},
	}
}

func TestChunksRoundTrip(t *testing.T) {
	chunks := []models.Chunk{
		{ID: 1, Text: "first chunk"},
		{ID: 2, Text: "second, with a comma"},
		{ID: 3, Text: "third \"quoted\""},
		{ID: 4, Text: "fourth — ünïcode"},
		{ID: 5, Text: "fifth"},
	}
	path := filepath.Join(t.TempDir(), "data", "chunks.csv")

	saved, err := SaveChunksCSV(chunks, path)
	require.NoError(t, err)
	assert.Equal(t, path, saved)

	loaded, err := LoadChunksCSV(path)
	require.NoError(t, err)
	assert.Equal(t, chunks, loaded)
}

func TestSaveMCQsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcqs.csv")
	_, err := SaveMCQsCSV(sampleMCQs(), path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	firstLine := strings.SplitN(string(data), "\n", 2)[0]
	assert.Equal(t, "Question,Option A,Option B,Option C,Option D,Answer", firstLine)

	loaded, err := LoadMCQsCSV(path)
	require.NoError(t, err)
	assert.Equal(t, sampleMCQs(), loaded)
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcqs.csv")
	_, err := SaveMCQsCSV(sampleMCQs(), path)
	require.NoError(t, err)
	_, err = SaveMCQsCSV(sampleMCQs()[:1], path)
	require.NoError(t, err)

	loaded, err := LoadMCQsCSV(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestLoadChunksRejectsWrongHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.csv")
	require.NoError(t, os.WriteFile(path, []byte("chunk,body\n1,x\n"), 0o644))
	_, err := LoadChunksCSV(path)
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "summary.json")
	data := map[string]any{"title": "Zellbiologie <intro>", "ids": []int{1, 2}}

	_, err := SaveJSON(data, path)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Zellbiologie <intro>")
	assert.Contains(t, string(raw), "\n  \"ids\"")

	var back map[string]any
	require.NoError(t, LoadJSON(path, &back))
	assert.Equal(t, "Zellbiologie <intro>", back["title"])
}

func TestSaveMCQsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcqs.xlsx")
	_, err := SaveMCQsXLSX(sampleMCQs(), path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(mcqSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, MCQHeader, rows[0])
	assert.Equal(t, "the mitochondria", rows[1][5])
}

func TestSaveFlashcardsPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.pdf")
	cards := []models.Flashcard{
		{Front: "Chunk 1 - key idea?", Back: "Cells are the basic unit of life."},
		{Front: "Chunk 2 - key idea?", Back: "Enzymes lower activation energy."},
	}
	_, err := SaveFlashcardsPDF(cards, "Biology", path)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "%PDF"))
}
