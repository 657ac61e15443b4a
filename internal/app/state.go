package app

import "weekly-trivia/internal/domain"

// Phase is the round lifecycle position.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePlaying Phase = "playing"
	PhaseResult  Phase = "result"
)

// NoSelection marks a multiple choice round where no option was picked yet.
const NoSelection = -1

// State is the whole client view in one value. Slices and pointers are shared
// between snapshots and must be treated as read-only; Reduce never mutates
// them in place.
type State struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	// Epoch changes on every session change so that replies started under
	// an earlier session can be recognized.
	Epoch int `json:"epoch"`

	Phase         Phase          `json:"phase"`
	Round         *domain.Round  `json:"-"`
	Result        *domain.Result `json:"result,omitempty"`
	Submitted     []string       `json:"submitted,omitempty"`
	Selected      int            `json:"selected"`
	Draft         string         `json:"draft"`
	Remaining     int            `json:"remaining"`
	InputDisabled bool           `json:"inputDisabled"`
	Pending       bool           `json:"pending"`
	Notice        string         `json:"notice,omitempty"`

	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	Stats       *domain.Stats             `json:"stats,omitempty"`
}

func initialState() State {
	return State{Phase: PhaseIdle, Selected: NoSelection, Leaderboard: []domain.LeaderboardEntry{}}
}

// Token returns the current round token or "".
func (s State) Token() string {
	if s.Round == nil {
		return ""
	}
	return s.Round.Token
}

func (s State) playing(token string) bool {
	return s.Phase == PhasePlaying && s.Round != nil && s.Round.Token == token
}

// Event is an input to Reduce.
type Event interface{ isEvent() }

type (
	// SessionEstablished marks a successful login, auth check or guest identity.
	SessionEstablished struct{ Username string }
	// SessionInvalidated collapses to the unauthenticated view.
	SessionInvalidated struct{}
	// DisplayNameChanged renames the current identity without resetting play.
	DisplayNameChanged struct{ Name string }
	// RoundRequested marks a round-start request in flight.
	RoundRequested struct{}
	// RoundStarted enters playing with a fresh round.
	RoundStarted struct {
		Epoch int
		Round domain.Round
	}
	// RoundStartFailed leaves the phase unchanged and raises a notice.
	RoundStartFailed struct {
		Epoch  int
		Notice string
	}
	OptionSelected struct {
		Token string
		Index int
	}
	DraftChanged struct {
		Token string
		Text  string
	}
	TimerTicked struct{ Token string }
	// SubmissionSent marks a submit (or, with Finalize, a finalize) in flight.
	SubmissionSent struct {
		Token    string
		Finalize bool
	}
	SubmissionFailed struct {
		Token  string
		Notice string
	}
	// AnswerAccepted records an intermediate reply of a multi-answer round.
	AnswerAccepted struct {
		Token  string
		Answer string
		Record domain.Intermediate
	}
	RoundFinished struct {
		Token  string
		Result domain.Result
	}
	// PanelsRefreshed replaces whichever panel is non-nil.
	PanelsRefreshed struct {
		Epoch       int
		Leaderboard []domain.LeaderboardEntry
		Stats       *domain.Stats
	}
	NoticeCleared struct{}
)

func (SessionEstablished) isEvent() {}
func (SessionInvalidated) isEvent() {}
func (DisplayNameChanged) isEvent() {}
func (RoundRequested) isEvent()     {}
func (RoundStarted) isEvent()       {}
func (RoundStartFailed) isEvent()   {}
func (OptionSelected) isEvent()     {}
func (DraftChanged) isEvent()       {}
func (TimerTicked) isEvent()        {}
func (SubmissionSent) isEvent()     {}
func (SubmissionFailed) isEvent()   {}
func (AnswerAccepted) isEvent()     {}
func (RoundFinished) isEvent()      {}
func (PanelsRefreshed) isEvent()    {}
func (NoticeCleared) isEvent()      {}

// Reduce is the single transition function of the client. Events that do not
// apply to the current state (stale round token, wrong phase, old epoch)
// return s unchanged.
func Reduce(s State, e Event) State {
	switch e := e.(type) {
	case SessionEstablished:
		if s.Authenticated && s.Username == e.Username {
			return s
		}
		next := initialState()
		next.Authenticated = true
		next.Username = e.Username
		next.Epoch = s.Epoch + 1
		return next

	case SessionInvalidated:
		next := initialState()
		next.Epoch = s.Epoch + 1
		return next

	case DisplayNameChanged:
		if !s.Authenticated {
			return s
		}
		s.Username = e.Name
		return s

	case RoundRequested:
		if !s.Authenticated || s.Pending || s.Phase == PhasePlaying {
			return s
		}
		s.Pending = true
		s.Notice = ""
		return s

	case RoundStarted:
		if !s.Authenticated || e.Epoch != s.Epoch || !s.Pending || s.Phase == PhasePlaying {
			return s
		}
		round := e.Round
		s.Phase = PhasePlaying
		s.Round = &round
		s.Result = nil
		s.Submitted = nil
		s.Selected = NoSelection
		s.Draft = ""
		s.Remaining = round.TimeLimitSec
		s.InputDisabled = false
		s.Pending = false
		s.Notice = ""
		return s

	case RoundStartFailed:
		if e.Epoch != s.Epoch || !s.Pending || s.Phase == PhasePlaying {
			return s
		}
		s.Pending = false
		s.Notice = e.Notice
		return s

	case OptionSelected:
		if !s.playing(e.Token) || s.Pending {
			return s
		}
		mc, ok := s.Round.Question.(domain.MultipleChoiceQuestion)
		if !ok || e.Index < 0 || e.Index >= len(mc.Choices) {
			return s
		}
		s.Selected = e.Index
		return s

	case DraftChanged:
		if !s.playing(e.Token) || s.InputDisabled {
			return s
		}
		s.Draft = e.Text
		return s

	case TimerTicked:
		if !s.playing(e.Token) || s.Remaining <= 0 {
			return s
		}
		s.Remaining--
		return s

	case SubmissionSent:
		if !s.playing(e.Token) || s.Pending {
			return s
		}
		if s.InputDisabled && !e.Finalize {
			return s
		}
		s.Pending = true
		s.Notice = ""
		return s

	case SubmissionFailed:
		if !s.playing(e.Token) || !s.Pending {
			return s
		}
		s.Pending = false
		s.Notice = e.Notice
		return s

	case AnswerAccepted:
		if !s.playing(e.Token) {
			return s
		}
		total := e.Record.TotalAnswers
		if mq, ok := s.Round.Question.(domain.FillBlankMultipleQuestion); ok && (total <= 0 || total > mq.MaxAnswers) {
			total = mq.MaxAnswers
		}
		submitted := s.Submitted
		if len(submitted) < total {
			submitted = append(append([]string(nil), s.Submitted...), e.Answer)
		}
		s.Submitted = submitted
		s.Draft = ""
		s.Pending = false
		if len(submitted) >= total || e.Record.SubmittedCount >= total {
			s.InputDisabled = true
		}
		return s

	case RoundFinished:
		if !s.playing(e.Token) {
			return s
		}
		res := e.Result
		s.Phase = PhaseResult
		s.Result = &res
		s.Pending = false
		s.InputDisabled = true
		s.Notice = ""
		return s

	case PanelsRefreshed:
		if !s.Authenticated || e.Epoch != s.Epoch {
			return s
		}
		if e.Leaderboard != nil {
			s.Leaderboard = e.Leaderboard
		}
		if e.Stats != nil {
			s.Stats = e.Stats
		}
		return s

	case NoticeCleared:
		s.Notice = ""
		return s
	}
	return s
}
