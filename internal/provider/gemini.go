package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/swipehq/interview-backend/internal/model"
)

const defaultTopic = "full stack (React/Node)"

// Gemini calls the Google Generative AI API to produce questions and
// score answers.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	log    zerolog.Logger
}

func NewGemini(ctx context.Context, apiKey, modelName string, log zerolog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, &Error{Op: "gemini.new", Retryable: false, Err: ErrMissingAPIKey}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	m := client.GenerativeModel(modelName)
	m.SetTemperature(0.2)
	m.SetMaxOutputTokens(2048)

	return &Gemini{
		client: client,
		model:  m,
		log:    log.With().Str("component", "gemini").Logger(),
	}, nil
}

func (g *Gemini) Close() {
	g.client.Close()
}

func (g *Gemini) GenerateQuestion(ctx context.Context, difficulty model.Difficulty, topic string) (string, error) {
	if topic == "" {
		topic = defaultTopic
	}

	prompt := fmt.Sprintf("Generate one %s %s interview question. Return only the question text.",
		model.NormalizeDifficulty(string(difficulty)), topic)

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return "", classify("gemini.generate_question", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", classify("gemini.generate_question", ErrEmptyResponse)
	}

	return text, nil
}

func (g *Gemini) GenerateQuestions(ctx context.Context, difficulties []model.Difficulty, topic string) ([]model.Question, error) {
	if topic == "" {
		topic = defaultTopic
	}

	prompt := buildQuestionsPrompt(difficulties, topic)

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, classify("gemini.generate_questions", err)
	}

	type questionJSON struct {
		Text       string `json:"text"`
		Difficulty string `json:"difficulty"`
	}

	var raw []questionJSON
	if err := decodeJSONArray(text, &raw); err != nil {
		g.log.Warn().Err(err).Msg("question generation returned unparseable payload")
		return nil, classify("gemini.generate_questions", err)
	}

	questions := make([]model.Question, 0, len(difficulties))
	for i, d := range difficulties {
		q := model.Question{Difficulty: d}
		if i < len(raw) {
			q.Text = strings.TrimSpace(raw[i].Text)
		}
		if q.Text == "" {
			return nil, classify("gemini.generate_questions", ErrEmptyResponse)
		}
		questions = append(questions, q)
	}

	return questions, nil
}

func (g *Gemini) EvaluateAnswers(ctx context.Context, questions []model.Question) (*model.Evaluation, error) {
	prompt := buildEvaluationPrompt(questions)

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, classify("gemini.evaluate", err)
	}

	var parsed struct {
		Evaluations []struct {
			Score    float64 `json:"score"`
			Feedback string  `json:"feedback"`
		} `json:"evaluations"`
		OverallSummary string   `json:"overallSummary"`
		OverallScore   *float64 `json:"overallScore"`
	}
	if err := decodeJSONObject(text, &parsed); err != nil {
		g.log.Warn().Err(err).Msg("evaluation returned unparseable payload")
		return nil, classify("gemini.evaluate", err)
	}
	if len(parsed.Evaluations) == 0 {
		return nil, classify("gemini.evaluate", ErrEmptyResponse)
	}

	eval := &model.Evaluation{
		OverallSummary: parsed.OverallSummary,
		OverallScore:   parsed.OverallScore,
	}

	total := 0.0
	for i, e := range parsed.Evaluations {
		if i >= len(questions) {
			break
		}
		score := clampScore(e.Score)
		total += score
		eval.Evaluations = append(eval.Evaluations, model.QuestionEvaluation{
			Score:    score,
			Feedback: strings.TrimSpace(e.Feedback),
		})
	}
	eval.TotalScore = &total

	return eval, nil
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return extractText(resp), nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return s
}

func buildQuestionsPrompt(difficulties []model.Difficulty, topic string) string {
	var b strings.Builder

	b.WriteString("You are an expert technical interviewer. Generate interview questions on the topic below.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Topic: %s\n", topic))
	b.WriteString(fmt.Sprintf("Generate exactly %d questions with these difficulties, in this order:\n", len(difficulties)))
	for i, d := range difficulties {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, d))
	}
	b.WriteString(`
Easy = direct recall of fundamentals. Medium = applying concepts to a concrete scenario. Hard = design, trade-offs, or debugging under constraints.

JSON schema per question:
{"text": "string", "difficulty": "Easy"|"Medium"|"Hard"}
`)

	return b.String()
}

func buildEvaluationPrompt(questions []model.Question) string {
	var b strings.Builder

	b.WriteString("You are an expert technical interviewer grading a completed interview.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")
	b.WriteString("Score each answer from 0 to 10. An empty answer scores 0. Give one or two sentences of feedback per answer, then an overall summary of the candidate's performance and an overall score from 0 to 100.\n\n")
	b.WriteString(`JSON schema:
{"evaluations": [{"score": number, "feedback": "string"}], "overallSummary": "string", "overallScore": number}

The evaluations array must have exactly one entry per question, in order.
`)

	for i, q := range questions {
		answer := ""
		if q.Answer != nil {
			answer = q.Answer.Text
		}
		b.WriteString(fmt.Sprintf("\nQuestion %d (%s): %s\nAnswer %d: %s\n", i+1, q.Difficulty, q.Text, i+1, answer))
	}

	return b.String()
}
