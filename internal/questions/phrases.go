package questions

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
	"github.com/rs/zerolog/log"
)

// nounChunkTags may appear inside a noun phrase; a phrase must end on a noun.
var nounChunkTags = map[string]bool{
	"DT": true, "PRP$": true, "CD": true,
	"JJ": true, "JJR": true, "JJS": true,
	"NN": true, "NNS": true, "NNP": true, "NNPS": true,
}

// PhraseExtractor tags text locally and returns its noun phrases and named
// entities. The tagger and entity models are decoded once and shared by
// every call.
type PhraseExtractor struct {
	model *prose.Model
}

func NewPhraseExtractor() *PhraseExtractor {
	doc, err := prose.NewDocument("")
	if err != nil {
		log.Warn().Err(err).Msg("Tagger warm-up failed, loading per call")
		return &PhraseExtractor{}
	}
	return &PhraseExtractor{model: doc.Model}
}

// Phrases returns noun phrases followed by entities, trimmed and de-duplicated
// in first-seen order.
func (e *PhraseExtractor) Phrases(text string) ([]string, error) {
	var opts []prose.DocOpt
	if e.model != nil {
		opts = append(opts, prose.UsingModel(e.model))
	}
	doc, err := prose.NewDocument(text, opts...)
	if err != nil {
		return nil, fmt.Errorf("tag text: %w", err)
	}

	var candidates []string
	var run []prose.Token
	flush := func() {
		last := -1
		for i, tok := range run {
			if strings.HasPrefix(tok.Tag, "NN") {
				last = i
			}
		}
		if last >= 0 {
			parts := make([]string, 0, last+1)
			for _, tok := range run[:last+1] {
				parts = append(parts, tok.Text)
			}
			candidates = append(candidates, strings.Join(parts, " "))
		}
		run = run[:0]
	}
	for _, tok := range doc.Tokens() {
		if nounChunkTags[tok.Tag] {
			run = append(run, tok)
			continue
		}
		flush()
	}
	flush()

	for _, ent := range doc.Entities() {
		candidates = append(candidates, ent.Text)
	}
	return uniqueTrimmed(candidates), nil
}

func uniqueTrimmed(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
