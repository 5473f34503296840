package models

// Chunk is a contiguous slice of a document's words
type Chunk struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type Summary struct {
	ID      int    `json:"id"`
	Summary string `json:"summary"`
}

// MCQ is a multiple-choice question. Answer is always one of Options.
type MCQ struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type SearchResult struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// PromptResponse is a generated answer and the chunks it was grounded on.
type PromptResponse struct {
	Query   string         `json:"query"`
	Sources []SearchResult `json:"sources"`
	Content string         `json:"content"`
}
