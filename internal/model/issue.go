package model

// Issue is an externally owned ticket record. It is read-only to the engine.
type Issue struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Comments    []string `json:"comments,omitempty" yaml:"comments,omitempty"`
	Status      string   `json:"status,omitempty" yaml:"status,omitempty"`
	Project     string   `json:"project,omitempty" yaml:"project,omitempty"`
	Component   string   `json:"component,omitempty" yaml:"component,omitempty"`
	Type        string   `json:"type,omitempty" yaml:"type,omitempty"`
	Resolution  string   `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	Created     string   `json:"created,omitempty" yaml:"created,omitempty"`
	Updated     string   `json:"updated,omitempty" yaml:"updated,omitempty"`
}
