// Package promise catches responses that defer an action the agent can
// perform right now ("vou criar seu plano...") and replaces them with
// the result of actually performing it.
package promise

import "strings"

// Pair is an action word that marks a message as actionable when it
// co-occurs with any of its domain keywords.
type Pair struct {
	Action   string
	Keywords []string
}

// Lists holds the deferred-phrase and actionable-context vocabularies.
// Both are configurable; zero-value fields fall back to the defaults.
type Lists struct {
	Phrases []string
	Pairs   []Pair
}

// DefaultLists returns the built-in detection vocabularies.
func DefaultLists() Lists {
	return Lists{
		Phrases: []string{
			"vou criar",
			"vou elaborar",
			"vou desenvolver",
			"vou preparar",
			"vou fazer",
			"vou montar",
			"vou gerar",
			"irei criar",
			"irei elaborar",
			"criarei um",
			"elaborarei um",
			"farei um",
			"montarei um",
			"let me create",
			"i will create",
			"i'll create",
			"i will prepare",
			"i'll prepare",
		},
		Pairs: []Pair{
			{Action: "plano", Keywords: []string{"treino", "exercicio", "exercício", "musculação", "workout", "training"}},
			{Action: "plano", Keywords: []string{"alimentar", "nutricao", "nutrição", "meal", "nutrition", "dieta"}},
			{Action: "criar", Keywords: []string{"treino", "exercicio", "exercício", "workout", "training"}},
			{Action: "criar", Keywords: []string{"alimentar", "nutricao", "nutrição", "meal", "nutrition", "dieta"}},
			{Action: "montar", Keywords: []string{"treino", "exercicio", "exercício", "workout"}},
			{Action: "elaborar", Keywords: []string{"treino", "exercicio", "exercício", "workout"}},
			{Action: "create", Keywords: []string{"treino", "workout", "training"}},
			{Action: "create", Keywords: []string{"meal", "nutrition", "dieta"}},
			{Action: "check", Keywords: []string{"plano", "status", "progresso"}},
		},
	}
}

// Detector scans responses for deferred-action language.
type Detector struct {
	lists Lists
}

// NewDetector builds a detector. Empty list fields keep the defaults so
// config can override one vocabulary without restating the other.
func NewDetector(lists Lists) *Detector {
	defaults := DefaultLists()
	if len(lists.Phrases) == 0 {
		lists.Phrases = defaults.Phrases
	}
	if len(lists.Pairs) == 0 {
		lists.Pairs = defaults.Pairs
	}
	return &Detector{lists: lists}
}

// Detect reports whether responseText promises a future action that the
// sourceMessage shows is actionable now. A deferred phrase alone is not
// enough; the user message must pair an action word with a domain
// keyword, so generic chit-chat never trips the corrector.
func (d *Detector) Detect(responseText, sourceMessage string) bool {
	if responseText == "" {
		return false
	}
	response := strings.ToLower(responseText)
	message := strings.ToLower(sourceMessage)

	var promised bool
	for _, phrase := range d.lists.Phrases {
		if strings.Contains(response, phrase) {
			promised = true
			break
		}
	}
	if !promised {
		return false
	}

	for _, pair := range d.lists.Pairs {
		if !strings.Contains(message, pair.Action) {
			continue
		}
		for _, keyword := range pair.Keywords {
			if strings.Contains(message, keyword) {
				return true
			}
		}
	}
	return false
}
