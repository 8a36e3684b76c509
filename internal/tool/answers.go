package tool

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/dossier/internal/model"
)

// MetadataRecordAnswer describes the record_answer tool.
var MetadataRecordAnswer = &mcp.Tool{
	Name: "record_answer",
	Description: "Record the applicant's answers. Answers always win over extracted values. " +
		"An empty value clears the answer so the question is asked again. " +
		"When several answers are given, none is stored unless all are valid.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"application_id", "answers"},
		"properties": map[string]interface{}{
			"application_id": applicationIDProp,
			"answers": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": map[string]interface{}{"type": "string"},
				"description":          "Answers keyed by fact id, e.g. {\"identity.full_name\": \"Jane Doe\"}",
			},
		},
	},
}

// InputRecordAnswer is the input for the RecordAnswer tool.
type InputRecordAnswer struct {
	ApplicationID string            `json:"application_id"`
	Answers       map[string]string `json:"answers"`
}

// OutputRecordAnswer is the output for the RecordAnswer tool.
type OutputRecordAnswer struct {
	Recorded []model.Answer `json:"recorded"`
	// Remaining is the number of questions left after the answers
	Remaining int `json:"remaining"`
}

// RecordAnswer stores answers and reports how many questions remain
func (t *Tools) RecordAnswer(ctx context.Context, _ *mcp.CallToolRequest, input InputRecordAnswer) (*mcp.CallToolResult, OutputRecordAnswer, error) {
	if input.ApplicationID == "" {
		return nil, OutputRecordAnswer{}, fmt.Errorf("application_id is required")
	}
	if len(input.Answers) == 0 {
		return nil, OutputRecordAnswer{}, fmt.Errorf("answers is required")
	}

	recorded, err := t.pipeline.AnswerBatch(ctx, input.ApplicationID, input.Answers)
	if err != nil {
		return nil, OutputRecordAnswer{}, err
	}

	report, err := t.pipeline.Questionnaire(ctx, input.ApplicationID, nil)
	if err != nil {
		return nil, OutputRecordAnswer{}, fmt.Errorf("answers recorded but analysis failed: %w", err)
	}

	return nil, OutputRecordAnswer{
		Recorded:  sortedAnswers(recorded),
		Remaining: len(report.Questionnaire.Questions),
	}, nil
}

// MetadataListAnswers describes the list_answers tool.
var MetadataListAnswers = &mcp.Tool{
	Name:        "list_answers",
	Description: "List the answers currently on file for an application.",
	InputSchema: map[string]interface{}{
		"type":       "object",
		"required":   []string{"application_id"},
		"properties": map[string]interface{}{"application_id": applicationIDProp},
	},
}

// InputListAnswers is the input for the ListAnswers tool.
type InputListAnswers struct {
	ApplicationID string `json:"application_id"`
}

// OutputListAnswers is the output for the ListAnswers tool.
type OutputListAnswers struct {
	Answers []model.Answer `json:"answers"`
}

// ListAnswers returns the current answers ordered by fact id
func (t *Tools) ListAnswers(ctx context.Context, _ *mcp.CallToolRequest, input InputListAnswers) (*mcp.CallToolResult, OutputListAnswers, error) {
	if input.ApplicationID == "" {
		return nil, OutputListAnswers{}, fmt.Errorf("application_id is required")
	}
	answers, err := t.pipeline.Answers(ctx, input.ApplicationID)
	if err != nil {
		return nil, OutputListAnswers{}, err
	}
	return nil, OutputListAnswers{Answers: sortedAnswers(answers)}, nil
}

func sortedAnswers(m map[string]model.Answer) []model.Answer {
	out := make([]model.Answer, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FactID < out[j].FactID })
	return out
}
