package app

import (
	"fmt"
	"strings"

	"weekly-trivia/internal/domain"
)

// expiryAction is what the countdown does at zero for a question type.
type expiryAction int

const (
	expirySubmit expiryAction = iota
	expiryFinalize
)

// buildSubmission is the one dispatch point over question variants for the
// submit payload. Multiple choice with nothing selected falls back to index 0.
func buildSubmission(s State) (domain.Submission, error) {
	if s.Round == nil {
		return domain.Submission{}, domain.ErrNoActiveRound
	}
	sub := domain.Submission{QID: s.Round.QID, RoundToken: s.Round.Token}

	switch s.Round.Question.(type) {
	case domain.MultipleChoiceQuestion:
		idx := s.Selected
		if idx == NoSelection {
			idx = 0
		}
		sub.SelectedIndex = &idx
	case domain.FillBlankSingleQuestion, domain.ImageIdentifyQuestion:
		text := strings.TrimSpace(s.Draft)
		sub.TextAnswer = &text
	case domain.FillBlankMultipleQuestion:
		// each answer counts against max_answers, so blanks are not sent
		text := strings.TrimSpace(s.Draft)
		if text == "" {
			return domain.Submission{}, domain.ErrEmptyAnswer
		}
		sub.TextAnswer = &text
	default:
		return domain.Submission{}, fmt.Errorf("%w: %T", domain.ErrUnknownQuestionType, s.Round.Question)
	}
	return sub, nil
}

func expiryFor(q domain.Question) expiryAction {
	switch q.(type) {
	case domain.FillBlankMultipleQuestion:
		return expiryFinalize
	default:
		return expirySubmit
	}
}

// acceptsIntermediate reports whether a submit may leave the round open.
func acceptsIntermediate(q domain.Question) bool {
	_, ok := q.(domain.FillBlankMultipleQuestion)
	return ok
}

// submitBlocked explains why SubmissionSent did not apply to s.
func submitBlocked(s State, token string) error {
	switch {
	case !s.Authenticated:
		return domain.ErrUnauthorized
	case s.Round == nil:
		return domain.ErrNoActiveRound
	case s.Round.Token != token:
		return domain.ErrStaleRound
	case s.Phase != PhasePlaying:
		return domain.ErrRoundNotPlaying
	case s.Pending:
		return domain.ErrSubmissionPending
	case s.InputDisabled:
		return domain.ErrInputDisabled
	}
	return domain.ErrRoundNotPlaying
}

func journalEntry(round domain.Round, submitted []string, draft string, selected int, res domain.Result) domain.JournalEntry {
	entry := domain.JournalEntry{
		QID:          round.QID,
		QuestionType: round.Type(),
		Correct:      res.Correct,
		Points:       res.Points,
		ResponseMS:   res.ResponseMS,
	}
	switch q := round.Question.(type) {
	case domain.MultipleChoiceQuestion:
		if selected == NoSelection {
			selected = 0
		}
		if selected < len(q.Choices) {
			entry.Answers = []string{q.Choices[selected]}
		}
	case domain.FillBlankMultipleQuestion:
		entry.Answers = append([]string(nil), submitted...)
	default:
		if draft = strings.TrimSpace(draft); draft != "" {
			entry.Answers = []string{draft}
		}
	}
	return entry
}
