// Package triviatest runs an in-process trivia backend that honors the HTTP
// contract the client depends on. Tests script it through the question bank,
// Fail and Hold and read back what the client sent.
package triviatest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"weekly-trivia/internal/api"
	"weekly-trivia/internal/domain"

	"github.com/google/uuid"
)

const (
	sessionCookie = "session"
	guestCookie   = "gid"
)

// Question is a bank entry together with its truth.
type Question struct {
	QID           string
	Type          domain.QuestionType
	Stem          string
	TimeLimitSec  int
	Choices       []string
	CorrectIndex  int
	Answers       []string
	MaxAnswers    int
	ImageFilename string
}

type player struct {
	name    string
	guest   bool
	pin     string
	results []result
}

type result struct {
	qid        string
	correct    bool
	points     int
	responseMS int
	at         time.Time
}

type round struct {
	question  Question
	player    *player
	token     string
	startedAt time.Time
	accepted  []string
	correct   int
	submitted int
	done      bool
}

// Server is a fake backend. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	// GuestMode lets round/start create a guest identity for cookie-less callers.
	GuestMode bool

	mu          sync.Mutex
	now         time.Time
	bank        []Question
	next        int
	players     map[string]*player
	sessions    map[string]*player
	guests      map[string]*player
	rounds      map[string]*round
	submissions []domain.Submission
	finalizes   []string
	failures    map[string]int
	holds       map[string]chan struct{}
}

// New starts a server with the given bank; rounds are served in order and the
// bank wraps around.
func New(t testing.TB, bank ...Question) *Server {
	t.Helper()
	s := &Server{
		now:      time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		bank:     bank,
		players:  make(map[string]*player),
		sessions: make(map[string]*player),
		guests:   make(map[string]*player),
		rounds:   make(map[string]*round),
		failures: make(map[string]int),
		holds:    make(map[string]chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/check", s.handleAuthCheck)
	mux.HandleFunc("POST /api/auth", s.handleAuth)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /api/user/stats", s.handleUserStats)
	mux.HandleFunc("GET /api/guest/stats", s.handleGuestStats)
	mux.HandleFunc("POST /api/guest/name", s.handleGuestName)
	mux.HandleFunc("POST /api/trivia/round/start", s.handleStart)
	mux.HandleFunc("POST /api/trivia/round/submit", s.handleSubmit)
	mux.HandleFunc("POST /api/trivia/round/finalize", s.handleFinalize)

	s.Server = httptest.NewServer(s.intercept(mux))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root the client should be pointed at.
func (s *Server) BaseURL() string {
	return s.Server.URL + "/api"
}

// Advance moves the server clock forward; response_ms is measured on it.
func (s *Server) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

// Fail makes every request to path answer with status; 0 clears it.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = status
}

// Hold blocks requests to path until the returned release func is called.
func (s *Server) Hold(path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[path] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, path)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// ExpireSessions forgets every account and guest session.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*player)
	s.guests = make(map[string]*player)
}

// Submissions returns the submit bodies received so far.
func (s *Server) Submissions() []domain.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Submission(nil), s.submissions...)
}

// Finalizes returns the qids of finalize calls received so far.
func (s *Server) Finalizes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.finalizes...)
}

// TerminalResults counts the terminal results recorded for qid.
func (s *Server) TerminalResults(qid string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.players {
		for _, r := range p.results {
			if r.qid == qid {
				n++
			}
		}
	}
	return n
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		s.mu.Lock()
		status := s.failures[path]
		hold := s.holds[path]
		s.mu.Unlock()
		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleAuthCheck(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p := s.accountLocked(r)
	s.mu.Unlock()
	if p == nil {
		writeJSON(w, domain.AuthStatus{})
		return
	}
	writeJSON(w, domain.AuthStatus{Authenticated: true, Username: p.name})
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[creds.Username]
	if !ok {
		p = &player{name: creds.Username, pin: creds.PIN}
		s.players[creds.Username] = p
	} else if p.pin != creds.PIN {
		writeJSON(w, map[string]any{"success": false, "message": "Incorrect PIN"})
		return
	}
	token := uuid.NewString()
	s.sessions[token] = p
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, map[string]any{"success": true, "username": p.name})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 25
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Time{}
	switch r.URL.Query().Get("window") {
	case "day":
		cutoff = s.now.Add(-24 * time.Hour)
	case "week", "":
		cutoff = s.now.Add(-7 * 24 * time.Hour)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(s.players))
	for _, p := range s.players {
		entry := domain.LeaderboardEntry{}
		if p.guest {
			entry.DisplayName = p.name
		} else {
			entry.Username = p.name
		}
		total, n := 0, 0
		for _, res := range p.results {
			if res.at.Before(cutoff) {
				continue
			}
			entry.TotalPoints += res.points
			if res.correct {
				entry.CorrectCount++
			}
			total += res.responseMS
			n++
		}
		if n == 0 {
			continue
		}
		entry.AvgResponseMS = total / n
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		if entries[i].CorrectCount != entries[j].CorrectCount {
			return entries[i].CorrectCount > entries[j].CorrectCount
		}
		return entries[i].Name() < entries[j].Name()
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	writeJSON(w, entries)
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.accountLocked(r)
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, s.statsLocked(p))
}

func (s *Server) handleGuestStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.guestLocked(r)
	if p == nil {
		writeError(w, http.StatusUnauthorized, "No guest session")
		return
	}
	writeJSON(w, s.statsLocked(p))
}

func (s *Server) handleGuestName(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.guestLocked(r)
	if p == nil {
		writeError(w, http.StatusUnauthorized, "No guest session")
		return
	}
	p.name = body.DisplayName
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.identityLocked(r)
	if p == nil && s.GuestMode {
		gid := uuid.NewString()
		p = &player{name: "Guest-" + gid[:8], guest: true}
		s.players["guest:"+gid] = p
		s.guests[gid] = p
		http.SetCookie(w, &http.Cookie{Name: guestCookie, Value: gid, Path: "/", HttpOnly: true})
	}
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if len(s.bank) == 0 {
		writeError(w, http.StatusBadRequest, "No more questions available")
		return
	}

	q := s.bank[s.next%len(s.bank)]
	s.next++
	rd := &round{question: q, player: p, token: uuid.NewString(), startedAt: s.now}
	s.rounds[rd.token] = rd

	body, err := api.MarshalRound(toDomainRound(q, rd.token))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub domain.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, sub)

	p := s.identityLocked(r)
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	rd, ok := s.rounds[sub.RoundToken]
	if !ok || rd.player != p || rd.question.QID != sub.QID {
		writeError(w, http.StatusBadRequest, "Round session not found")
		return
	}
	if rd.done {
		writeError(w, http.StatusBadRequest, "Question already answered")
		return
	}

	q := rd.question
	switch q.Type {
	case domain.MultipleChoice:
		if sub.SelectedIndex == nil || *sub.SelectedIndex < 0 || *sub.SelectedIndex >= len(q.Choices) {
			writeError(w, http.StatusBadRequest, "selected_index out of range")
			return
		}
		writeJSON(w, s.finishLocked(rd, *sub.SelectedIndex == q.CorrectIndex, 1, 1))
	case domain.FillBlankSingle, domain.ImageIdentify:
		if sub.TextAnswer == nil {
			writeError(w, http.StatusBadRequest, "text_answer required")
			return
		}
		writeJSON(w, s.finishLocked(rd, matches(q.Answers, *sub.TextAnswer), 1, 1))
	case domain.FillBlankMultiple:
		if sub.TextAnswer == nil {
			writeError(w, http.StatusBadRequest, "text_answer required")
			return
		}
		if rd.submitted >= q.MaxAnswers {
			writeError(w, http.StatusBadRequest, "All answers already submitted")
			return
		}
		answer := normalize(*sub.TextAnswer)
		correct := matches(q.Answers, answer) && !contains(rd.accepted, answer)
		if correct {
			rd.accepted = append(rd.accepted, answer)
			rd.correct++
		}
		rd.submitted++
		writeJSON(w, map[string]any{
			"is_intermediate": true,
			"correct":         correct,
			"submitted_count": rd.submitted,
			"total_answers":   q.MaxAnswers,
		})
	default:
		writeError(w, http.StatusBadRequest, "unsupported question type")
	}
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		QID string `json:"qid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizes = append(s.finalizes, body.QID)

	p := s.identityLocked(r)
	if p == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	var rd *round
	for _, candidate := range s.rounds {
		if candidate.player == p && candidate.question.QID == body.QID && !candidate.done {
			rd = candidate
			break
		}
	}
	if rd == nil || rd.question.Type != domain.FillBlankMultiple {
		writeError(w, http.StatusBadRequest, "Nothing to finalize")
		return
	}
	want := rd.question.MaxAnswers
	writeJSON(w, s.finishLocked(rd, rd.correct == want, rd.correct, want))
}

// finishLocked closes a round with the backend's scoring: 100 points for a
// correct answer plus up to 50 for speed, scaled by got/of for multi-answer.
func (s *Server) finishLocked(rd *round, correct bool, got, of int) map[string]any {
	rd.done = true
	ms := int(s.now.Sub(rd.startedAt) / time.Millisecond)
	points := 0
	if got > 0 && (correct || rd.question.Type == domain.FillBlankMultiple) {
		bonus := 50 - ms/200
		if bonus < 0 {
			bonus = 0
		}
		points = (100 + bonus) * got / of
	}
	rd.player.results = append(rd.player.results, result{
		qid:        rd.question.QID,
		correct:    correct,
		points:     points,
		responseMS: ms,
		at:         s.now,
	})

	reply := map[string]any{"correct": correct, "points": points, "response_ms": ms}
	q := rd.question
	switch q.Type {
	case domain.MultipleChoice:
		reply["correct_answer"] = string(rune('A' + q.CorrectIndex))
	case domain.FillBlankMultiple:
		reply["correct_answer"] = q.Answers
	default:
		if len(q.Answers) > 0 {
			reply["correct_answer"] = q.Answers[0]
		}
	}
	return reply
}

func (s *Server) statsLocked(p *player) domain.Stats {
	st := domain.Stats{Answered: len(p.results), TotalAvailable: len(s.bank)}
	for _, r := range p.results {
		st.TotalPoints += r.points
	}
	if p.guest {
		st.DisplayName = p.name
	}
	return st
}

func (s *Server) accountLocked(r *http.Request) *player {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	return s.sessions[c.Value]
}

func (s *Server) guestLocked(r *http.Request) *player {
	c, err := r.Cookie(guestCookie)
	if err != nil {
		return nil
	}
	return s.guests[c.Value]
}

func (s *Server) identityLocked(r *http.Request) *player {
	if p := s.accountLocked(r); p != nil {
		return p
	}
	return s.guestLocked(r)
}

func toDomainRound(q Question, token string) domain.Round {
	rd := domain.Round{QID: q.QID, Token: token, Stem: q.Stem, TimeLimitSec: q.TimeLimitSec}
	if rd.TimeLimitSec == 0 {
		rd.TimeLimitSec = 10
	}
	switch q.Type {
	case domain.MultipleChoice:
		rd.Question = domain.MultipleChoiceQuestion{Choices: q.Choices}
	case domain.FillBlankSingle:
		rd.Question = domain.FillBlankSingleQuestion{}
	case domain.FillBlankMultiple:
		rd.Question = domain.FillBlankMultipleQuestion{MaxAnswers: q.MaxAnswers}
	case domain.ImageIdentify:
		rd.Question = domain.ImageIdentifyQuestion{ImageFilename: q.ImageFilename}
	default:
		panic(fmt.Sprintf("triviatest: unsupported question type %q", q.Type))
	}
	return rd
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func matches(answers []string, given string) bool {
	return contains(answers, normalize(given))
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if normalize(item) == v {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
