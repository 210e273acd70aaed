package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"carebot/internal/storage"
)

type checkinJSON struct {
	ID         int64     `json:"id"`
	Mood       string    `json:"mood"`
	MoodLabel  string    `json:"mood_label"`
	Note       string    `json:"note"`
	RecordedAt time.Time `json:"recorded_at"`
}

func toCheckinJSON(c storage.Checkin) checkinJSON {
	return checkinJSON{
		ID:         c.ID,
		Mood:       c.Mood,
		MoodLabel:  storage.MoodLabels[c.Mood],
		Note:       c.Note,
		RecordedAt: c.RecordedAt,
	}
}

func (s *Server) handleCheckin(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		Mood string `json:"mood"`
		Note string `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := storage.MoodLabels[req.Mood]; !ok {
		writeError(w, http.StatusBadRequest, "invalid mood")
		return
	}
	checkin, err := s.store.SubmitCheckin(r.Context(), userID, req.Mood, strings.TrimSpace(req.Note))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCheckinJSON(checkin))
}

func (s *Server) handleTodaysCheckin(w http.ResponseWriter, r *http.Request, userID int64) {
	checkin, found, err := s.store.TodaysCheckin(r.Context(), userID, time.Now())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, map[string]any{"checked_in": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"checked_in": true, "checkin": toCheckinJSON(checkin)})
}

func (s *Server) handleMoodHistory(w http.ResponseWriter, r *http.Request, userID int64) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}
	history, err := s.store.CheckinHistory(r.Context(), userID, days, time.Now())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := make([]checkinJSON, 0, len(history))
	for _, c := range history {
		out = append(out, toCheckinJSON(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": out, "days": days})
}

type goalJSON struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Streak     int        `json:"streak"`
	LastDoneAt *time.Time `json:"last_done_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toGoalJSON(g storage.Goal) goalJSON {
	return goalJSON{ID: g.ID, Title: g.Title, Streak: g.Streak, LastDoneAt: g.LastDoneAt, CreatedAt: g.CreatedAt}
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, userID int64) {
	goals, err := s.store.ActiveGoals(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := make([]goalJSON, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalJSON(g))
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": out})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		Title string `json:"title"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	goal, err := s.store.CreateGoal(r.Context(), userID, req.Title)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalJSON(goal))
}

func (s *Server) handleCompleteGoal(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return
	}
	goal, err := s.store.CompleteGoal(r.Context(), userID, id, time.Now())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalJSON(goal))
}

func (s *Server) handleArchiveGoal(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return
	}
	if err := s.store.ArchiveGoal(r.Context(), userID, id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type cardJSON struct {
	ID        int64     `json:"id"`
	Lane      string    `json:"lane"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

func toCardJSON(c storage.KanbanCard) cardJSON {
	return cardJSON{ID: c.ID, Lane: c.Lane, Title: c.Title, Position: c.Position, CreatedAt: c.CreatedAt}
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request, userID int64) {
	cards, err := s.store.ListCards(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	lanes := map[string][]cardJSON{
		storage.LaneNow:  {},
		storage.LaneNext: {},
		storage.LaneDone: {},
	}
	for _, c := range cards {
		lanes[c.Lane] = append(lanes[c.Lane], toCardJSON(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"lanes": lanes})
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		Lane  string `json:"lane"`
		Title string `json:"title"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	card, err := s.store.CreateCard(r.Context(), userID, req.Lane, req.Title)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidLane) {
			writeError(w, http.StatusBadRequest, "invalid lane")
			return
		}
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardJSON(card))
}

func (s *Server) handleMoveCard(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid card id")
		return
	}
	var req struct {
		Lane     string `json:"lane"`
		Position int    `json:"position"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.MoveCard(r.Context(), userID, id, req.Lane, req.Position); err != nil {
		if errors.Is(err, storage.ErrInvalidLane) {
			writeError(w, http.StatusBadRequest, "invalid lane")
			return
		}
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid card id")
		return
	}
	if err := s.store.DeleteCard(r.Context(), userID, id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
