package model

// Answer is a question-answering collaborator's reply.
type Answer struct {
	Text       string  `json:"answer"`
	Confidence float64 `json:"score"`
}

// Entity is one span reported by the named-entity collaborator.
// Tag carries the BIO label, e.g. "B-PER" or "I-ORG".
type Entity struct {
	Word  string  `json:"word"`
	Tag   string  `json:"entity"`
	Score float64 `json:"score"`
}
