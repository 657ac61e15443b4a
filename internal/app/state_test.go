package app

import (
	"testing"

	"weekly-trivia/internal/domain"

	"github.com/stretchr/testify/require"
)

func playingState(q domain.Question, limit int) State {
	s := Reduce(initialState(), SessionEstablished{Username: "alice"})
	s = Reduce(s, RoundRequested{})
	return Reduce(s, RoundStarted{Epoch: s.Epoch, Round: domain.Round{
		QID:          "q1",
		Token:        "tok-1",
		Stem:         "stem",
		TimeLimitSec: limit,
		Question:     q,
	}})
}

func TestReduceRoundStartEntersPlaying(t *testing.T) {
	s := playingState(domain.MultipleChoiceQuestion{Choices: []string{"a", "b", "c", "d"}}, 10)

	require.Equal(t, PhasePlaying, s.Phase)
	require.Equal(t, 10, s.Remaining)
	require.Equal(t, NoSelection, s.Selected)
	require.False(t, s.Pending)
}

func TestReduceRoundStartIgnoredWithoutRequest(t *testing.T) {
	s := Reduce(initialState(), SessionEstablished{Username: "alice"})
	next := Reduce(s, RoundStarted{Epoch: s.Epoch, Round: domain.Round{Token: "tok"}})
	require.Equal(t, PhaseIdle, next.Phase)
}

func TestReduceIgnoresStaleRoundToken(t *testing.T) {
	s := playingState(domain.FillBlankSingleQuestion{}, 10)

	for _, e := range []Event{
		TimerTicked{Token: "old"},
		DraftChanged{Token: "old", Text: "x"},
		SubmissionSent{Token: "old"},
		RoundFinished{Token: "old", Result: domain.Result{Correct: true}},
	} {
		require.Equal(t, s, Reduce(s, e), "%T should not apply to another round", e)
	}
}

func TestReduceTimerStopsAtZero(t *testing.T) {
	s := playingState(domain.FillBlankSingleQuestion{}, 2)
	for i := 0; i < 5; i++ {
		s = Reduce(s, TimerTicked{Token: "tok-1"})
	}
	require.Equal(t, 0, s.Remaining)
	require.Equal(t, PhasePlaying, s.Phase)
}

func TestReduceSelectionBounds(t *testing.T) {
	s := playingState(domain.MultipleChoiceQuestion{Choices: []string{"a", "b"}}, 10)

	require.Equal(t, NoSelection, Reduce(s, OptionSelected{Token: "tok-1", Index: 2}).Selected)
	require.Equal(t, 1, Reduce(s, OptionSelected{Token: "tok-1", Index: 1}).Selected)
}

func TestReduceAnswerAcceptedNeverExceedsMax(t *testing.T) {
	s := playingState(domain.FillBlankMultipleQuestion{MaxAnswers: 2}, 30)

	for i, answer := range []string{"red", "green", "blue"} {
		s = Reduce(s, SubmissionSent{Token: "tok-1"})
		s = Reduce(s, AnswerAccepted{Token: "tok-1", Answer: answer, Record: domain.Intermediate{
			Correct:        true,
			SubmittedCount: i + 1,
			TotalAnswers:   2,
		}})
	}
	require.Equal(t, []string{"red", "green"}, s.Submitted)
	require.True(t, s.InputDisabled)

	require.Equal(t, s, Reduce(s, SubmissionSent{Token: "tok-1"}), "plain submit is blocked once input is disabled")
	require.True(t, Reduce(s, SubmissionSent{Token: "tok-1", Finalize: true}).Pending)
}

func TestReduceRecordTotalCannotRaiseMax(t *testing.T) {
	s := playingState(domain.FillBlankMultipleQuestion{MaxAnswers: 1}, 30)
	s = Reduce(s, SubmissionSent{Token: "tok-1"})
	s = Reduce(s, AnswerAccepted{Token: "tok-1", Answer: "only", Record: domain.Intermediate{SubmittedCount: 1, TotalAnswers: 5}})
	require.True(t, s.InputDisabled)
}

func TestReduceRoundFinishedIsTerminal(t *testing.T) {
	s := playingState(domain.ImageIdentifyQuestion{ImageFilename: "cat.png"}, 10)
	s = Reduce(s, SubmissionSent{Token: "tok-1"})
	s = Reduce(s, RoundFinished{Token: "tok-1", Result: domain.Result{Correct: true, Points: 120}})

	require.Equal(t, PhaseResult, s.Phase)
	require.Equal(t, 120, s.Result.Points)

	again := Reduce(s, RoundFinished{Token: "tok-1", Result: domain.Result{Points: 1}})
	require.Equal(t, 120, again.Result.Points, "a round yields one terminal result")
}

func TestReduceSessionInvalidatedClearsEverything(t *testing.T) {
	s := playingState(domain.MultipleChoiceQuestion{Choices: []string{"a"}}, 10)
	s = Reduce(s, PanelsRefreshed{Epoch: s.Epoch, Leaderboard: []domain.LeaderboardEntry{{Username: "alice", TotalPoints: 10}}, Stats: &domain.Stats{Answered: 1}})

	next := Reduce(s, SessionInvalidated{})
	require.False(t, next.Authenticated)
	require.Equal(t, PhaseIdle, next.Phase)
	require.Nil(t, next.Round)
	require.Nil(t, next.Result)
	require.Nil(t, next.Stats)
	require.Empty(t, next.Leaderboard)
	require.NotEqual(t, s.Epoch, next.Epoch)
}

func TestReducePanelsFromOldEpochIgnored(t *testing.T) {
	s := Reduce(initialState(), SessionEstablished{Username: "alice"})
	old := s.Epoch
	s = Reduce(s, SessionInvalidated{})
	s = Reduce(s, SessionEstablished{Username: "bob"})

	next := Reduce(s, PanelsRefreshed{Epoch: old, Stats: &domain.Stats{Answered: 9}})
	require.Nil(t, next.Stats)
}

func TestReduceStartFailureKeepsPhase(t *testing.T) {
	s := Reduce(initialState(), SessionEstablished{Username: "alice"})
	s = Reduce(s, RoundRequested{})
	s = Reduce(s, RoundStartFailed{Epoch: s.Epoch, Notice: "try again"})

	require.Equal(t, PhaseIdle, s.Phase)
	require.False(t, s.Pending)
	require.Equal(t, "try again", s.Notice)
}
