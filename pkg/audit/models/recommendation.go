package models

import (
	"encoding/json"
	"fmt"
)

// StructuredRecommendation is the rich recommendation variant produced
// by analyzers that classify their advice.
type StructuredRecommendation struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Suggestion  string `json:"suggestion,omitempty"`
}

// Recommendation is a two-variant union: plain text or a structured
// record. JSON keeps the original shape (string vs object) so the json
// report format preserves structure, while the prose report formats all
// go through DisplayText.
type Recommendation struct {
	Text       string
	Structured *StructuredRecommendation
}

func PlainRecommendation(text string) Recommendation {
	return Recommendation{Text: text}
}

func (r Recommendation) IsStructured() bool {
	return r.Structured != nil
}

// DisplayText is the single normalization rule shared by the pdf, html
// and markdown renderers: plain text verbatim; structured records as
// "{description} - {suggestion}"; a JSON-like dump when a structured
// record has neither field.
func (r Recommendation) DisplayText() string {
	if r.Structured == nil {
		return r.Text
	}

	s := r.Structured
	if s.Description != "" {
		if s.Suggestion != "" {
			return fmt.Sprintf("%s - %s", s.Description, s.Suggestion)
		}
		return s.Description
	}
	if s.Suggestion != "" {
		return s.Suggestion
	}

	dump, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("%+v", *s)
	}
	return string(dump)
}

func (r Recommendation) MarshalJSON() ([]byte, error) {
	if r.Structured != nil {
		return json.Marshal(r.Structured)
	}
	return json.Marshal(r.Text)
}

func (r *Recommendation) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*r = Recommendation{Text: text}
		return nil
	}

	var structured StructuredRecommendation
	if err := json.Unmarshal(data, &structured); err != nil {
		return fmt.Errorf("recommendation is neither string nor object: %s", err)
	}
	*r = Recommendation{Structured: &structured}
	return nil
}
