package questions

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-assistant/internal/config"
	"study-assistant/internal/llmservice/llmtest"
	"study-assistant/internal/models"
)

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func TestDistractorsSamplesCandidates(t *testing.T) {
	candidates := []string{"the nucleus", "mitochondria", "ribosomes", "the cell wall", "Mitochondria"}
	got := Distractors(candidates, "mitochondria", 3, MaxOptionWords, seeded())

	require.Len(t, got, 3)
	seen := map[string]bool{}
	for _, d := range got {
		assert.NotEqual(t, "mitochondria", strings.ToLower(d))
		assert.Contains(t, candidates, d)
		assert.False(t, seen[d], "duplicate %q", d)
		seen[d] = true
	}
}

func TestDistractorsFallbackNeverMixes(t *testing.T) {
	got := Distractors([]string{"photosynthesis", "chlorophyll"}, "sunlight", 3, MaxOptionWords, seeded())

	require.Len(t, got, 3)
	for _, d := range got {
		assert.Contains(t, models.FallbackDistractors, d)
	}
}

func TestDistractorsFallbackSkipsAnswer(t *testing.T) {
	got := Distractors(nil, "Option B", 3, MaxOptionWords, seeded())
	require.Len(t, got, 3)
	assert.NotContains(t, got, "Option B")
}

func TestDistractorsClipsLongPhrases(t *testing.T) {
	long := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen"
	got := Distractors([]string{long, "alpha", "beta"}, "gamma", 3, MaxOptionWords, seeded())
	require.Len(t, got, 3)
	for _, d := range got {
		assert.LessOrEqual(t, len(strings.Fields(d)), MaxOptionWords)
	}
}

func TestDistractorsDeterministicWithSeed(t *testing.T) {
	candidates := []string{"a", "b", "c", "d", "e", "f"}
	assert.Equal(t,
		Distractors(candidates, "z", 3, MaxOptionWords, seeded()),
		Distractors(candidates, "z", 3, MaxOptionWords, seeded()))
}

func TestDistractorsClipToGivenLength(t *testing.T) {
	candidates := []string{"the outer cell membrane", "a long protein chain", "the rough endoplasmic reticulum"}
	got := Distractors(candidates, "answer", 3, 2, seeded())
	require.Len(t, got, 3)
	for _, d := range got {
		assert.Len(t, strings.Fields(d), 2)
	}
}

func TestClipWords(t *testing.T) {
	assert.Equal(t, "a b", ClipWords("a b c", 2))
	assert.Equal(t, "short", ClipWords("short", 12))
}

type fakeQuestions struct {
	questions []string
	err       error
}

func (f fakeQuestions) Generate(context.Context, string, int) ([]string, error) {
	return f.questions, f.err
}

type fakeAnswers map[string]string

func (f fakeAnswers) Answer(_ context.Context, question, _ string) (string, error) {
	a, ok := f[question]
	if !ok {
		return "", ErrNoAnswer
	}
	return a, nil
}

type fakePhrases []string

func (f fakePhrases) Phrases(string) ([]string, error) { return f, nil }

func TestPipelineGenerate(t *testing.T) {
	p := NewPipeline(
		fakeQuestions{questions: []string{"What powers the cell?", "Where is DNA stored?"}},
		fakeAnswers{
			"What powers the cell?": "the mitochondria",
			"Where is DNA stored?":  "in the nucleus of every eukaryotic cell that has been observed by scientists so far",
		},
		fakePhrases{"the mitochondria", "the nucleus", "ribosomes", "the membrane", "DNA"},
		config.QuestionConfig{Seed: 42},
	)

	mcqs, err := p.Generate(context.Background(), "passage", 2)
	require.NoError(t, err)
	require.Len(t, mcqs, 2)

	for _, m := range mcqs {
		require.Len(t, m.Options, 4)
		assert.Contains(t, m.Options, m.Answer)
		assert.LessOrEqual(t, len(strings.Fields(m.Answer)), MaxOptionWords)
		seen := map[string]bool{}
		for _, o := range m.Options {
			assert.False(t, seen[o], "duplicate option %q", o)
			seen[o] = true
		}
	}
	assert.Equal(t, "in the nucleus of every eukaryotic cell that has been observed by", mcqs[1].Answer)
}

func TestPipelineSeedReproducible(t *testing.T) {
	build := func() *Pipeline {
		return NewPipeline(
			fakeQuestions{questions: []string{"Q?"}},
			fakeAnswers{"Q?": "answer"},
			fakePhrases{"a", "b", "c", "d", "e"},
			config.QuestionConfig{Seed: 99},
		)
	}
	first, err := build().Generate(context.Background(), "t", 1)
	require.NoError(t, err)
	second, err := build().Generate(context.Background(), "t", 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPipelineFallbackOptions(t *testing.T) {
	p := NewPipeline(
		fakeQuestions{questions: []string{"Q?"}},
		fakeAnswers{"Q?": "answer"},
		fakePhrases{"one", "two"},
		config.QuestionConfig{Seed: 1},
	)
	mcqs, err := p.Generate(context.Background(), "t", 1)
	require.NoError(t, err)
	require.Len(t, mcqs, 1)
	require.Len(t, mcqs[0].Options, 4)
	for _, o := range mcqs[0].Options {
		if o != "answer" {
			assert.Contains(t, models.FallbackDistractors, o)
		}
	}
}

func TestPipelineAlwaysFourOptions(t *testing.T) {
	phrases := fakePhrases{"alpha beta gamma delta", "beta", "gamma", "delta", "epsilon", "zeta", "eta"}
	for _, cfg := range []config.QuestionConfig{
		{Seed: 5},
		{Seed: 5, MaxWords: 2},
		{Seed: 5, MaxWords: 30},
	} {
		p := NewPipeline(
			fakeQuestions{questions: []string{"Q?"}},
			fakeAnswers{"Q?": "the answer to everything here"},
			phrases,
			cfg,
		)
		mcqs, err := p.Generate(context.Background(), "t", 1)
		require.NoError(t, err)
		require.Len(t, mcqs, 1)
		require.Len(t, mcqs[0].Options, len(models.OptionLetters))

		maxWords := cfg.MaxWords
		if maxWords == 0 {
			maxWords = MaxOptionWords
		}
		for _, o := range mcqs[0].Options {
			assert.LessOrEqual(t, len(strings.Fields(o)), maxWords, "option %q", o)
		}
	}
}

func TestPipelineErrors(t *testing.T) {
	boom := errors.New("generation failed")
	p := NewPipeline(fakeQuestions{err: boom}, fakeAnswers{}, fakePhrases{}, config.QuestionConfig{Seed: 1})
	_, err := p.Generate(context.Background(), "t", 2)
	assert.ErrorIs(t, err, boom)

	p = NewPipeline(fakeQuestions{questions: []string{"unknown?"}}, fakeAnswers{}, fakePhrases{}, config.QuestionConfig{Seed: 1})
	_, err = p.Generate(context.Background(), "t", 1)
	assert.ErrorIs(t, err, ErrNoAnswer)
}

func TestGeneratorParsesQuestions(t *testing.T) {
	llm := llmtest.Reply("1. What is osmosis?\n\n2) Why do cells divide?\n3. Extra question?")
	g := NewGenerator(llm, config.QuestionConfig{MaxLength: 64, MaxInputWords: 400})

	got, err := g.Generate(context.Background(), "Cells divide. Water moves by osmosis.", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"What is osmosis?", "Why do cells divide?"}, got)
	assert.Contains(t, llm.LastPrompt(), "exactly 2 distinct questions")
}

func TestGeneratorTooFew(t *testing.T) {
	g := NewGenerator(llmtest.Reply("- Only one?"), config.QuestionConfig{MaxLength: 64, MaxInputWords: 400})
	_, err := g.Generate(context.Background(), "text", 3)
	assert.ErrorIs(t, err, ErrTooFewQuestions)
}

func TestAnswerExtractor(t *testing.T) {
	passage := "Water crosses the Cell Membrane by osmosis."

	got, err := NewAnswerExtractor(llmtest.Reply(`"cell membrane"`)).Answer(context.Background(), "What does water cross?", passage)
	require.NoError(t, err)
	assert.Equal(t, "Cell Membrane", got)

	got, err = NewAnswerExtractor(llmtest.Reply("by diffusion")).Answer(context.Background(), "How?", passage)
	require.NoError(t, err)
	assert.Equal(t, "by diffusion", got)

	_, err = NewAnswerExtractor(llmtest.Reply("  ")).Answer(context.Background(), "How?", passage)
	assert.ErrorIs(t, err, ErrNoAnswer)
}

func TestPhraseExtractorReusesModel(t *testing.T) {
	e := NewPhraseExtractor()
	require.NotNil(t, e.model)
	model := e.model

	for _, text := range []string{"Cells divide by mitosis.", "Plants make sugar in London."} {
		_, err := e.Phrases(text)
		require.NoError(t, err)
	}
	assert.Same(t, model, e.model)
}

func TestPhraseExtractor(t *testing.T) {
	phrases, err := NewPhraseExtractor().Phrases("The quick brown fox jumped over the lazy dog in London.")
	require.NoError(t, err)
	require.NotEmpty(t, phrases)

	joined := strings.Join(phrases, "|")
	assert.Contains(t, joined, "fox")
	assert.Contains(t, joined, "dog")
	assert.Len(t, phrases, len(uniqueTrimmed(phrases)))
}
