// Package export writes study material to disk. Every save fully overwrites
// its target.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"study-assistant/internal/helper"
	"study-assistant/internal/models"
)

var (
	ChunkHeader = []string{"id", "text"}
	MCQHeader   = []string{"Question", "Option A", "Option B", "Option C", "Option D", "Answer"}
)

var ErrBadHeader = errors.New("unexpected csv header")

const mcqSheet = "MCQs"

// SaveChunksCSV writes chunks with an id,text header.
func SaveChunksCSV(chunks []models.Chunk, path string) (string, error) {
	rows := make([][]string, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, []string{strconv.Itoa(c.ID), c.Text})
	}
	if err := writeCSV(path, ChunkHeader, rows); err != nil {
		return "", err
	}
	log.Info().Int("chunks", len(chunks)).Str("path", path).Msg("Saved chunks")
	return path, nil
}

// LoadChunksCSV reads a file written by SaveChunksCSV.
func LoadChunksCSV(path string) ([]models.Chunk, error) {
	rows, err := readCSV(path, ChunkHeader)
	if err != nil {
		return nil, err
	}
	chunks := make([]models.Chunk, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid id %q: %w", i+2, row[0], err)
		}
		chunks = append(chunks, models.Chunk{ID: id, Text: row[1]})
	}
	return chunks, nil
}

// SaveMCQsCSV writes one row per question with four lettered option columns.
func SaveMCQsCSV(mcqs []models.MCQ, path string) (string, error) {
	rows := make([][]string, 0, len(mcqs))
	for _, m := range mcqs {
		rows = append(rows, mcqRow(m))
	}
	if err := writeCSV(path, MCQHeader, rows); err != nil {
		return "", err
	}
	log.Info().Int("mcqs", len(mcqs)).Str("path", path).Msg("Saved MCQs")
	return path, nil
}

// LoadMCQsCSV reads a file written by SaveMCQsCSV.
func LoadMCQsCSV(path string) ([]models.MCQ, error) {
	rows, err := readCSV(path, MCQHeader)
	if err != nil {
		return nil, err
	}
	mcqs := make([]models.MCQ, 0, len(rows))
	for _, row := range rows {
		mcqs = append(mcqs, models.MCQ{
			Question: row[0],
			Options:  append([]string(nil), row[1:5]...),
			Answer:   row[5],
		})
	}
	return mcqs, nil
}

// SaveMCQsXLSX writes the MCQ table as a single-sheet workbook.
func SaveMCQsXLSX(mcqs []models.MCQ, path string) (string, error) {
	if err := helper.CreateParent(path); err != nil {
		return "", err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", mcqSheet); err != nil {
		return "", err
	}
	if err := setRow(f, 1, MCQHeader); err != nil {
		return "", err
	}
	for i, m := range mcqs {
		if err := setRow(f, i+2, mcqRow(m)); err != nil {
			return "", err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	log.Info().Int("mcqs", len(mcqs)).Str("path", path).Msg("Saved MCQ workbook")
	return path, nil
}

// SaveFlashcardsPDF lays the cards out one after another, question above answer.
func SaveFlashcardsPDF(cards []models.Flashcard, title, path string) (string, error) {
	if err := helper.CreateParent(path); err != nil {
		return "", err
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	for _, card := range cards {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.MultiCell(0, 6, tr("Q: "+card.Front), "", "L", false)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr("A: "+card.Back), "", "L", false)
		pdf.Ln(4)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	log.Info().Int("cards", len(cards)).Str("path", path).Msg("Saved flashcards")
	return path, nil
}

// SaveJSON writes data indented by two spaces with non-ASCII text kept as is.
func SaveJSON(data any, path string) (string, error) {
	if err := helper.CreateParent(path); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return path, f.Close()
}

func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func mcqRow(m models.MCQ) []string {
	row := make([]string, 0, len(MCQHeader))
	row = append(row, m.Question)
	for i := 0; i < 4; i++ {
		if i < len(m.Options) {
			row = append(row, m.Options[i])
		} else {
			row = append(row, "")
		}
	}
	return append(row, m.Answer)
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(mcqSheet, cell, &cells)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := helper.CreateParent(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}

func readCSV(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrBadHeader
	}
	for i, h := range header {
		if records[0][i] != h {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i+1, records[0][i], h)
		}
	}
	return records[1:], nil
}
