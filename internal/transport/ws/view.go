package ws

import (
	"weekly-trivia/internal/app"
	"weekly-trivia/internal/domain"
)

// roundView flattens the question variant into the wire shape the backend
// itself uses.
type roundView struct {
	QID           string              `json:"qid"`
	Type          domain.QuestionType `json:"question_type"`
	Stem          string              `json:"stem"`
	TimeLimitSec  int                 `json:"time_limit_sec"`
	Choices       []string            `json:"choices,omitempty"`
	MaxAnswers    int                 `json:"max_answers,omitempty"`
	ImageFilename string              `json:"image_filename,omitempty"`
}

type stateView struct {
	app.State
	Round *roundView `json:"round,omitempty"`
}

func newStateView(s app.State) stateView {
	view := stateView{State: s}
	if s.Round == nil {
		return view
	}
	r := &roundView{
		QID:          s.Round.QID,
		Type:         s.Round.Type(),
		Stem:         s.Round.Stem,
		TimeLimitSec: s.Round.TimeLimitSec,
	}
	switch q := s.Round.Question.(type) {
	case domain.MultipleChoiceQuestion:
		r.Choices = q.Choices
	case domain.FillBlankMultipleQuestion:
		r.MaxAnswers = q.MaxAnswers
	case domain.ImageIdentifyQuestion:
		r.ImageFilename = q.ImageFilename
	}
	view.Round = r
	return view
}
