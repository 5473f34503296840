package models

const (
	SummaryErrorPrefix = "[Summarization Error]"
	FlashcardFront     = "Chunk %d - key idea?"
	OptionLetters      = "ABCD"
	ContextSeparator   = "\n---\n"
)

// FallbackDistractors replace mined candidates when too few exist.
var FallbackDistractors = []string{"Option A", "Option B", "Option C", "Option D"}

var (
	SummaryPromptTemplate = `<document>
%s
</document>
Summarize the document above in plain prose between %d and %d tokens long. Answer only with the summary and nothing else.
`

	QuestionPromptTemplate = `<document>
%s
</document>
Write exactly %d distinct questions that can be answered from the document above. Each question must be at most %d tokens long. Put one question per line and answer only with the questions.
`

	ChatSystemPrompt = "You are a helpful study assistant. Use only the provided context to answer the question."

	ChatPromptTemplate = `Context:
%s
Question: %s
`

	AnswerPromptTemplate = `<context>
%s
</context>
Question: %s
Answer with the shortest span copied verbatim from the context that answers the question. Answer only with the span and nothing else.
`
)
