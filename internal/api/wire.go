package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"weekly-trivia/internal/domain"
)

type roundPayload struct {
	QID           string   `json:"qid"`
	RoundToken    string   `json:"round_token"`
	QuestionType  string   `json:"question_type"`
	TimeLimitSec  int      `json:"time_limit_sec"`
	Stem          string   `json:"stem"`
	Choices       []string `json:"choices,omitempty"`
	MaxAnswers    int      `json:"max_answers,omitempty"`
	ImageFilename string   `json:"image_filename,omitempty"`
}

func (p roundPayload) toRound() (domain.Round, error) {
	round := domain.Round{
		QID:          p.QID,
		Token:        p.RoundToken,
		Stem:         p.Stem,
		TimeLimitSec: p.TimeLimitSec,
	}

	qt := domain.QuestionType(p.QuestionType)
	// Older backends only served multiple choice and left the type out.
	if qt == "" && len(p.Choices) > 0 {
		qt = domain.MultipleChoice
	}

	switch qt {
	case domain.MultipleChoice:
		if len(p.Choices) == 0 {
			return domain.Round{}, fmt.Errorf("round %s: multiple choice without choices", p.QID)
		}
		round.Question = domain.MultipleChoiceQuestion{Choices: p.Choices}
	case domain.FillBlankSingle:
		round.Question = domain.FillBlankSingleQuestion{}
	case domain.FillBlankMultiple:
		if p.MaxAnswers <= 0 {
			return domain.Round{}, fmt.Errorf("round %s: max_answers must be positive, got %d", p.QID, p.MaxAnswers)
		}
		round.Question = domain.FillBlankMultipleQuestion{MaxAnswers: p.MaxAnswers}
	case domain.ImageIdentify:
		round.Question = domain.ImageIdentifyQuestion{ImageFilename: p.ImageFilename}
	default:
		return domain.Round{}, fmt.Errorf("%w: %q", domain.ErrUnknownQuestionType, p.QuestionType)
	}
	return round, nil
}

func fromRound(r domain.Round) roundPayload {
	p := roundPayload{
		QID:          r.QID,
		RoundToken:   r.Token,
		QuestionType: string(r.Type()),
		TimeLimitSec: r.TimeLimitSec,
		Stem:         r.Stem,
	}
	switch q := r.Question.(type) {
	case domain.MultipleChoiceQuestion:
		p.Choices = q.Choices
	case domain.FillBlankMultipleQuestion:
		p.MaxAnswers = q.MaxAnswers
	case domain.ImageIdentifyQuestion:
		p.ImageFilename = q.ImageFilename
	}
	return p
}

// MarshalRound encodes a round in the backend's wire shape.
func MarshalRound(r domain.Round) ([]byte, error) {
	return json.Marshal(fromRound(r))
}

// UnmarshalRound decodes a round from the backend's wire shape.
func UnmarshalRound(data []byte) (domain.Round, error) {
	var p roundPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Round{}, err
	}
	return p.toRound()
}

type submitPayload struct {
	IsIntermediate bool            `json:"is_intermediate"`
	Correct        bool            `json:"correct"`
	Points         int             `json:"points"`
	ResponseMS     int             `json:"response_ms"`
	CorrectAnswer  json.RawMessage `json:"correct_answer,omitempty"`
	SubmittedCount int             `json:"submitted_count"`
	TotalAnswers   int             `json:"total_answers"`
}

func (p submitPayload) toOutcome() domain.Outcome {
	if p.IsIntermediate {
		return domain.Outcome{Intermediate: &domain.Intermediate{
			Correct:        p.Correct,
			SubmittedCount: p.SubmittedCount,
			TotalAnswers:   p.TotalAnswers,
		}}
	}
	res := p.toResult()
	return domain.Outcome{Result: &res}
}

func (p submitPayload) toResult() domain.Result {
	return domain.Result{
		Correct:       p.Correct,
		Points:        p.Points,
		ResponseMS:    p.ResponseMS,
		CorrectAnswer: decodeCorrectAnswer(p.CorrectAnswer),
	}
}

// decodeCorrectAnswer accepts a string, a list of strings, or anything else
// JSON can carry, and renders it for display.
func decodeCorrectAnswer(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return strings.Trim(string(raw), `"`)
}

type authReply struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
	Message  string `json:"message,omitempty"`
}

type finalizeRequest struct {
	QID string `json:"qid"`
}

type guestNameRequest struct {
	DisplayName string `json:"display_name"`
}

type errorReply struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}
