package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/driftwatch/trackerd/internal/activetime"
	apperrors "github.com/driftwatch/trackerd/internal/errors"
	"github.com/driftwatch/trackerd/internal/model"
)

const reportSchemaExample = `{
  "verdict": "one-paragraph assessment of how the session went against the stated intent",
  "patterns": [
    {
      "name": "short pattern name",
      "confidence": "high|medium|low",
      "type": "positive|negative|neutral",
      "description": "what happened and when",
      "evidence": ["window titles or feelings that support this pattern"]
    }
  ],
  "suggestions": [
    {
      "text": "one concrete suggestion",
      "relatedPattern": "name of the pattern it addresses"
    }
  ]
}`

func buildReportPrompt(session *model.Session, breakdown activetime.Breakdown, spans []ActivitySpan, feelings []model.Feeling) string {
	var b strings.Builder

	b.WriteString("You analyze a single work session from a personal focus tracker.\n")
	b.WriteString("Compare what the user actually did against what they set out to do,\n")
	b.WriteString("then identify behavioral patterns and concrete suggestions.\n\n")

	fmt.Fprintf(&b, "Stated intent: %s\n", session.DisplayIntent())
	fmt.Fprintf(&b, "Time: %.1f minutes active, %.1f paused, %.1f total.\n\n",
		breakdown.ActiveMinutes, breakdown.PausedMinutes, breakdown.TotalMinutes)

	b.WriteString("Window activity (consecutive identical windows collapsed):\n")
	if len(spans) == 0 {
		b.WriteString("  (no window activity was captured)\n")
	}
	for _, span := range spans {
		fmt.Fprintf(&b, "  %s - %s [%s] %.1f min\n",
			span.StartedAt.Format("15:04:05"), span.AppName, span.WindowTitle, span.DurationMinutes)
	}

	if len(feelings) > 0 {
		b.WriteString("\nFeelings the user recorded during the session:\n")
		for _, f := range feelings {
			fmt.Fprintf(&b, "  %s - %s\n", f.CreatedAt.Format("15:04:05"), f.Text)
		}
	}

	b.WriteString("\nRespond with a single JSON object and nothing else, in this shape:\n")
	b.WriteString(reportSchemaExample)
	b.WriteString("\nEvery suggestion's relatedPattern must name one of your patterns.\n")
	return b.String()
}

// parseReportContent extracts and validates the JSON object from a model
// response. Providers occasionally wrap the object in prose or code
// fences; anything outside the outermost braces is discarded.
func parseReportContent(raw string) (*model.ReportContent, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, apperrors.ValidationError("response contains no JSON object")
	}

	var content model.ReportContent
	if err := json.Unmarshal([]byte(raw[start:end+1]), &content); err != nil {
		return nil, apperrors.ValidationError(fmt.Sprintf("malformed report JSON: %v", err))
	}
	if err := content.Validate(); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}
	return &content, nil
}
