package domain

import "strings"

// TechnicalDocument is a reference document the assistant answers from
type TechnicalDocument struct {
	DocID    string   `bson:"docId" json:"id"`
	Title    string   `bson:"title" json:"title"`
	Category string   `bson:"category" json:"category"`
	Version  string   `bson:"version,omitempty" json:"version,omitempty"`
	Keywords []string `bson:"keywords" json:"keywords"`
	Content  string   `bson:"content" json:"content"`
}

// Score counts the document keywords found in a lower-cased question.
// A title contained in the question counts as an extra hit.
func (d *TechnicalDocument) Score(question string) int {
	score := 0
	for _, kw := range d.Keywords {
		if kw != "" && strings.Contains(question, strings.ToLower(kw)) {
			score++
		}
	}
	if d.Title != "" && strings.Contains(question, strings.ToLower(d.Title)) {
		score++
	}
	return score
}

// Reference renders the title with its revision
func (d *TechnicalDocument) Reference() string {
	if d.Version == "" {
		return d.Title
	}
	return d.Title + " " + d.Version
}
