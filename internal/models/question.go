package models

// Question is a single trivia question. Immutable once selected into a round.
// The ID is unique within the set of available questions; when the content
// pool is smaller than demand, repeated base questions are re-keyed per round
// (e.g. "r3-<base id>") so identity stays unambiguous across rounds.
type Question struct {
	ID       string            `json:"id"`
	Category string            `json:"category"`
	Text     map[string]string `json:"text"`   // keyed by language code
	Answer   map[string]string `json:"answer"` // keyed by language code
}

// TextIn returns the question text for the given language, falling back to
// any available translation when the requested one is missing.
func (q Question) TextIn(lang string) string {
	if t, ok := q.Text[lang]; ok {
		return t
	}
	for _, t := range q.Text {
		return t
	}
	return ""
}

// AnswerIn returns the answer for the given language, with the same fallback
// behavior as TextIn.
func (q Question) AnswerIn(lang string) string {
	if a, ok := q.Answer[lang]; ok {
		return a
	}
	for _, a := range q.Answer {
		return a
	}
	return ""
}
