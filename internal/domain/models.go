package domain

import (
	"strings"
	"time"
)

// QuestionType is the wire name of a question variant.
type QuestionType string

const (
	MultipleChoice    QuestionType = "multiple_choice"
	FillBlankSingle   QuestionType = "fill_blank_single"
	FillBlankMultiple QuestionType = "fill_blank_multiple"
	ImageIdentify     QuestionType = "image_identify"
)

// Question is the type-specific part of a round. Exactly one of the four
// variants below implements it.
type Question interface {
	Type() QuestionType
	isQuestion()
}

// MultipleChoiceQuestion is answered with an index into Choices.
type MultipleChoiceQuestion struct {
	Choices []string `json:"choices"`
}

// FillBlankSingleQuestion is answered with one free-text answer.
type FillBlankSingleQuestion struct{}

// FillBlankMultipleQuestion accepts up to MaxAnswers text answers.
type FillBlankMultipleQuestion struct {
	MaxAnswers int `json:"max_answers"`
}

// ImageIdentifyQuestion asks the player to name what ImageFilename shows.
type ImageIdentifyQuestion struct {
	ImageFilename string `json:"image_filename"`
}

func (MultipleChoiceQuestion) Type() QuestionType    { return MultipleChoice }
func (FillBlankSingleQuestion) Type() QuestionType   { return FillBlankSingle }
func (FillBlankMultipleQuestion) Type() QuestionType { return FillBlankMultiple }
func (ImageIdentifyQuestion) Type() QuestionType     { return ImageIdentify }

func (MultipleChoiceQuestion) isQuestion()    {}
func (FillBlankSingleQuestion) isQuestion()   {}
func (FillBlankMultipleQuestion) isQuestion() {}
func (ImageIdentifyQuestion) isQuestion()     {}

// Round is one active question instance bound to a server-issued token.
type Round struct {
	QID          string   `json:"qid"`
	Token        string   `json:"round_token"`
	Stem         string   `json:"stem"`
	TimeLimitSec int      `json:"time_limit_sec"`
	Question     Question `json:"-"`
}

// Type returns the question type of the round, or "" when it carries none.
func (r Round) Type() QuestionType {
	if r.Question == nil {
		return ""
	}
	return r.Question.Type()
}

// Submission is the body of a submit call. Exactly one of SelectedIndex and
// TextAnswer is set.
type Submission struct {
	QID           string  `json:"qid"`
	RoundToken    string  `json:"round_token"`
	SelectedIndex *int    `json:"selected_index,omitempty"`
	TextAnswer    *string `json:"text_answer,omitempty"`
}

// Result is the terminal outcome of a round.
type Result struct {
	Correct       bool   `json:"correct"`
	Points        int    `json:"points"`
	ResponseMS    int    `json:"response_ms"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// Intermediate is the acceptance record for one answer of a multi-answer
// round that is still open.
type Intermediate struct {
	Correct        bool `json:"correct"`
	SubmittedCount int  `json:"submitted_count"`
	TotalAnswers   int  `json:"total_answers"`
}

// Outcome is what a submit call returns: a terminal Result or, for
// multi-answer rounds, an Intermediate record. Exactly one is non-nil.
type Outcome struct {
	Result       *Result
	Intermediate *Intermediate
}

// LeaderboardEntry is one ranked row; rank is its position in the slice.
type LeaderboardEntry struct {
	Username      string `json:"username,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	TotalPoints   int    `json:"total_points"`
	GID           string `json:"gid,omitempty"`
	CorrectCount  int    `json:"correct_count,omitempty"`
	AvgResponseMS int    `json:"avg_response_ms,omitempty"`
}

// Name prefers the account username and falls back to the guest display name.
func (e LeaderboardEntry) Name() string {
	if e.Username != "" {
		return e.Username
	}
	return e.DisplayName
}

// Stats summarizes the current player's progress for the week.
type Stats struct {
	Answered       int    `json:"answered"`
	TotalAvailable int    `json:"total_available"`
	TotalPoints    int    `json:"total_points"`
	DisplayName    string `json:"display_name,omitempty"`
}

// Panels is the pair of side panels refreshed after each round.
type Panels struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Stats       *Stats             `json:"stats,omitempty"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// AuthStatus is the reply of the session check.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username"`
}

// Credentials is a username and numeric PIN pair.
type Credentials struct {
	Username string `json:"username" validate:"required,trivia_username"`
	PIN      string `json:"pin" validate:"required,trivia_pin"`
}

// JournalEntry is a finished round as recorded in the local history.
type JournalEntry struct {
	QID          string       `json:"qid"`
	QuestionType QuestionType `json:"question_type"`
	Correct      bool         `json:"correct"`
	Points       int          `json:"points"`
	ResponseMS   int          `json:"response_ms"`
	Answers      []string     `json:"answers,omitempty"`
	FinishedAt   time.Time    `json:"finished_at"`
}

// Summary renders the answers of an entry for display.
func (e JournalEntry) Summary() string {
	return strings.Join(e.Answers, ", ")
}
