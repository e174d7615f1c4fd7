package model

import (
	"fmt"
	"time"
)

// Report is the AI-produced behavioral analysis for a session. Content is
// the serialized ReportContent and stays null unless the report is ready.
// Storage allows several rows per session; the most recently created one
// is the current report.
type Report struct {
	ID        string       `db:"id" json:"id"`
	SessionID string       `db:"session_id" json:"sessionId"`
	Status    ReportStatus `db:"status" json:"status"`
	Content   *string      `db:"content" json:"-"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
}

type PatternConfidence string

const (
	ConfidenceHigh   PatternConfidence = "high"
	ConfidenceMedium PatternConfidence = "medium"
	ConfidenceLow    PatternConfidence = "low"
)

type PatternType string

const (
	PatternPositive PatternType = "positive"
	PatternNegative PatternType = "negative"
	PatternNeutral  PatternType = "neutral"
)

type ReportPattern struct {
	Name        string            `json:"name"`
	Confidence  PatternConfidence `json:"confidence"`
	Type        PatternType       `json:"type"`
	Description string            `json:"description"`
	Evidence    []string          `json:"evidence"`
}

type ReportSuggestion struct {
	Text           string `json:"text"`
	RelatedPattern string `json:"relatedPattern"`
}

// ReportContent is the structured payload expected from the text-generation
// capability. Any structural violation is a generation failure, never
// silently coerced.
type ReportContent struct {
	Verdict     string             `json:"verdict"`
	Patterns    []ReportPattern    `json:"patterns"`
	Suggestions []ReportSuggestion `json:"suggestions"`
}

func (c *ReportContent) Validate() error {
	if c.Verdict == "" {
		return fmt.Errorf("missing verdict")
	}
	if c.Patterns == nil {
		return fmt.Errorf("missing patterns")
	}
	if c.Suggestions == nil {
		return fmt.Errorf("missing suggestions")
	}
	names := make(map[string]bool, len(c.Patterns))
	for i, p := range c.Patterns {
		if p.Name == "" {
			return fmt.Errorf("pattern %d: missing name", i)
		}
		switch p.Confidence {
		case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		default:
			return fmt.Errorf("pattern %q: invalid confidence %q", p.Name, p.Confidence)
		}
		switch p.Type {
		case PatternPositive, PatternNegative, PatternNeutral:
		default:
			return fmt.Errorf("pattern %q: invalid type %q", p.Name, p.Type)
		}
		if p.Description == "" {
			return fmt.Errorf("pattern %q: missing description", p.Name)
		}
		if p.Evidence == nil {
			return fmt.Errorf("pattern %q: missing evidence", p.Name)
		}
		names[p.Name] = true
	}
	for i, s := range c.Suggestions {
		if s.Text == "" {
			return fmt.Errorf("suggestion %d: missing text", i)
		}
		if !names[s.RelatedPattern] {
			return fmt.Errorf("suggestion %d: unknown pattern reference %q", i, s.RelatedPattern)
		}
	}
	return nil
}
