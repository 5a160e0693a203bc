// Package ai scores finished interviews with an OpenAI chat model.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/models"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	// NoAnswer stands in for questions the candidate did not answer.
	NoAnswer = "No answer"
	// MaxTokens bounds the evaluation response.
	MaxTokens = 1024
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxSummaryLength is the maximum number of characters in the summary. Zero means unbounded.
	MaxSummaryLength int
}

type Evaluator struct {
	client           *openai.Client
	model            string
	maxSummaryLength int
	schema           *jsonschema.Definition
	logger           *slog.Logger
}

// EvaluationError is returned when the model call fails or its answer is not a valid evaluation.
type EvaluationError struct {
	// StatusCode is the upstream HTTP status when the API rejected the request.
	StatusCode int
	Message    string
	Err        error
}

func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("evaluate interview: %s: %v", e.Message, e.Err)
	}
	return "evaluate interview: " + e.Message
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

func NewEvaluator(cfg Config, logger *slog.Logger) (*Evaluator, error) {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	schema, err := jsonschema.GenerateSchemaForType(models.Evaluation{})
	if err != nil {
		return nil, errors.Wrap(err, "generate evaluation schema")
	}
	return &Evaluator{
		client:           openai.NewClientWithConfig(config),
		model:            cfg.Model,
		maxSummaryLength: cfg.MaxSummaryLength,
		schema:           schema,
		logger:           logger.With(slog.String("source", "evaluator")),
	}, nil
}

// Prompt pairs every question with the candidate's answer in question order.
func Prompt(questions []string, answers []models.Answer) string {
	pairs := make([]string, len(questions))
	for i, q := range questions {
		answer := NoAnswer
		if i < len(answers) && strings.TrimSpace(answers[i].Text) != "" {
			answer = answers[i].Text
		}
		pairs[i] = fmt.Sprintf("Q: %s\nA: %s", q, answer)
	}
	return "Evaluate the following interview and assign scores (0–10) for each category:\n\n" +
		strings.Join(pairs, "\n\n")
}

func (e *Evaluator) systemPrompt() string {
	prompt := "You are an experienced technical interviewer. Score the candidate on communication, " +
		"problem solving, technical depth, culture fit and clarity/brevity. Every score is a number from 0 to 10."
	if e.maxSummaryLength > 0 {
		prompt += fmt.Sprintf(" Keep the summary under %d characters.", e.maxSummaryLength)
	}
	return prompt
}

// Evaluate scores the interview. Any failure is an [*EvaluationError].
func (e *Evaluator) Evaluate(ctx context.Context, questions []string, answers []models.Answer) (models.Evaluation, error) {
	if len(questions) == 0 {
		return models.Evaluation{}, &EvaluationError{Message: "no questions to evaluate"}
	}
	start := time.Now()
	completion, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{ //nolint:exhaustruct // readability
		Model:     e.model,
		MaxTokens: MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: e.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: Prompt(questions, answers)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "interview_evaluation",
				Schema: e.schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		evalErr := &EvaluationError{Message: "create chat completion", Err: err}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			evalErr.StatusCode = apiErr.HTTPStatusCode
			evalErr.Message = apiErr.Message
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			evalErr.StatusCode = reqErr.HTTPStatusCode
		}
		return models.Evaluation{}, evalErr
	}
	if len(completion.Choices) == 0 {
		return models.Evaluation{}, &EvaluationError{Message: "completion without choices"}
	}

	content := completion.Choices[0].Message.Content
	var evaluation models.Evaluation
	decoder := json.NewDecoder(strings.NewReader(content))
	decoder.DisallowUnknownFields()
	if err = decoder.Decode(&evaluation); err != nil {
		return models.Evaluation{}, &EvaluationError{Message: "decode evaluation", Err: err}
	}
	if err = evaluation.Validate(e.maxSummaryLength); err != nil {
		e.logger.LogAttrs(ctx, slog.LevelWarn, "rejected evaluation", slog.String("content", content),
			errors.SlogError(err))
		return models.Evaluation{}, &EvaluationError{Message: "validate evaluation", Err: err}
	}

	e.logger.LogAttrs(ctx, slog.LevelInfo, "evaluated interview",
		slog.Int("questions", len(questions)),
		slog.Int("answers", len(answers)),
		slog.Duration("duration", time.Since(start)),
		slog.Int("total_tokens", completion.Usage.TotalTokens))
	return evaluation, nil
}
