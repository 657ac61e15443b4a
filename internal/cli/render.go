package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"weekly-trivia/internal/app"
	"weekly-trivia/internal/domain"
)

func renderRound(w io.Writer, r domain.Round) {
	fmt.Fprintf(w, "\n[%s] %s  (%ds)\n", r.Type(), r.Stem, r.TimeLimitSec)
	switch q := r.Question.(type) {
	case domain.MultipleChoiceQuestion:
		for i, choice := range q.Choices {
			fmt.Fprintf(w, "  %d) %s\n", i+1, choice)
		}
		fmt.Fprintln(w, "Pick a number.")
	case domain.FillBlankMultipleQuestion:
		fmt.Fprintf(w, "Enter up to %d answers, one per line. An empty line finishes.\n", q.MaxAnswers)
	case domain.ImageIdentifyQuestion:
		fmt.Fprintf(w, "Image: %s\nWhat is shown?\n", q.ImageFilename)
	default:
		fmt.Fprintln(w, "Type your answer.")
	}
}

func renderIntermediate(w io.Writer, s app.State, rec domain.Intermediate) {
	mark := "✗"
	if rec.Correct {
		mark = "✓"
	}
	fmt.Fprintf(w, "  %s %d/%d submitted\n", mark, rec.SubmittedCount, rec.TotalAnswers)
	if s.InputDisabled {
		fmt.Fprintln(w, "  All answers in.")
	}
}

func renderResult(w io.Writer, res domain.Result) {
	verdict := "Wrong"
	if res.Correct {
		verdict = "Correct"
	}
	fmt.Fprintf(w, "\n%s! +%d points in %.1fs\n", verdict, res.Points, float64(res.ResponseMS)/1000)
	if res.CorrectAnswer != "" {
		fmt.Fprintf(w, "Answer: %s\n", res.CorrectAnswer)
	}
	fmt.Fprintln(w, "Press Enter for the next question, or q to quit.")
}

func renderLeaderboard(w io.Writer, entries []domain.LeaderboardEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No scores yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tPOINTS\tCORRECT\tAVG")
	for i, e := range entries {
		avg := "-"
		if e.AvgResponseMS > 0 {
			avg = fmt.Sprintf("%.1fs", float64(e.AvgResponseMS)/1000)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", i+1, e.Name(), e.TotalPoints, e.CorrectCount, avg)
	}
	_ = tw.Flush()
}

func renderStats(w io.Writer, st *domain.Stats) {
	if st == nil {
		fmt.Fprintln(w, "No stats yet.")
		return
	}
	if st.DisplayName != "" {
		fmt.Fprintf(w, "%s: ", st.DisplayName)
	}
	fmt.Fprintf(w, "%d/%d answered, %d points this week\n", st.Answered, st.TotalAvailable, st.TotalPoints)
}

func renderHistory(w io.Writer, entries []domain.JournalEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No rounds played yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tQUESTION\tTYPE\tRESULT\tPOINTS\tANSWERS")
	for _, e := range entries {
		result := "wrong"
		if e.Correct {
			result = "correct"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.FinishedAt.Local().Format(time.DateTime), e.QID, e.QuestionType, result, e.Points, e.Summary())
	}
	_ = tw.Flush()
}

func renderNotice(w io.Writer, notice string) {
	if notice = strings.TrimSpace(notice); notice != "" {
		fmt.Fprintf(w, "! %s\n", notice)
	}
}
