package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hoclieu/examgen/internal/build"
	"github.com/hoclieu/examgen/internal/exam"
	"github.com/hoclieu/examgen/internal/export"
	"github.com/hoclieu/examgen/internal/matrix"
	"github.com/hoclieu/examgen/internal/platform/cache"
	"github.com/hoclieu/examgen/internal/platform/config"
	"github.com/hoclieu/examgen/internal/platform/database"
)

type server struct {
	cfg       *config.Config
	templates *matrix.Loader
	bank      *exam.Bank
	builder   *build.Builder
	store     build.Store
	db        *database.DB // nil when the database is unavailable
	cache     *cache.Cache // nil when caching is disabled
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /api/templates", s.handleListTemplates)
	mux.HandleFunc("POST /api/exams/build", s.handleBuild)
	mux.HandleFunc("GET /api/exams", s.handleListBuilds)
	mux.HandleFunc("GET /api/exams/{id}", s.handleGetBuild)
	mux.HandleFunc("GET /api/exams/{id}/paper", s.handleGetPaper)
	mux.HandleFunc("GET /api/exams/{id}/spec", s.handleGetSpecSheet)
	mux.HandleFunc("GET /api/bank/coverage", s.handleCoverage)
	mux.HandleFunc("GET /ws/build", s.handleBuildWS)
	return mux
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database not ready")
			return
		}
	}
	if s.cache != nil {
		if err := s.cache.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache not ready")
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

type templateInfo struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Grade    int    `json:"grade,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Semester string `json:"semester,omitempty"`
	Lessons  int    `json:"lessons"`
}

func (s *server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	var infos []templateInfo
	for _, name := range s.templates.Names() {
		tpl, ok := s.templates.Get(name)
		if !ok {
			continue
		}
		infos = append(infos, templateInfo{
			Name:     name,
			Title:    tpl.Title,
			Grade:    tpl.Grade,
			Subject:  tpl.Subject,
			Semester: tpl.Semester,
			Lessons:  len(tpl.Lessons),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": infos})
}

// buildRequest is the JSON body of POST /api/exams/build and the first
// websocket message of /ws/build.
type buildRequest struct {
	Template   string `json:"template,omitempty"` // template name; empty picks by scope
	Grade      int    `json:"grade"`
	Subject    string `json:"subject"`
	Semester   string `json:"semester"`
	Seed       int64  `json:"seed,omitempty"`
	Synthesize bool   `json:"synthesize,omitempty"`
}

func (s *server) resolveBuild(req buildRequest) (build.Request, error) {
	var (
		tpl  exam.Template
		name string
		ok   bool
	)
	if req.Template != "" {
		tpl, ok = s.templates.Get(req.Template)
		if !ok {
			return build.Request{}, errors.New("unknown template: " + req.Template)
		}
		name = req.Template
	} else {
		tpl, name, ok = s.templates.Pick(req.Grade, req.Subject, req.Semester)
		if !ok {
			return build.Request{}, errors.New("no template matches the requested scope")
		}
	}

	return build.Request{
		Template:     tpl,
		TemplateName: name,
		Scope:        exam.Scope{Grade: req.Grade, Subject: req.Subject, Semester: req.Semester},
		Seed:         req.Seed,
		Synthesize:   req.Synthesize,
	}, nil
}

func (s *server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	buildReq, err := s.resolveBuild(req)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	res, err := s.builder.Build(r.Context(), buildReq, s.bank)
	if err != nil {
		slog.Error("build failed", "template", req.Template, "error", err)
		writeError(w, http.StatusInternalServerError, "build failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	builds, err := s.store.ListBuilds(r.Context(), 50)
	if err != nil {
		slog.Error("list builds failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list builds failed")
		return
	}
	if builds == nil {
		builds = []build.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"builds": builds})
}

func (s *server) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.GetBuild(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "build not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.GetBuild(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "build not found")
		return
	}

	// Use the build's own template so overrides like total_points survive
	// re-export; fall back to config when the template file is gone.
	tpl, ok := s.templates.Get(res.Template)
	if !ok {
		tpl = exam.Template{Title: res.Title, TotalPoints: s.cfg.Exam.TotalPoints}
	}
	paper := export.RenderPaper(tpl, res.Slots, s.bank)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(paper))
}

func (s *server) handleGetSpecSheet(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.GetBuild(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "build not found")
		return
	}
	tpl, ok := s.templates.Get(res.Template)
	if !ok {
		writeError(w, http.StatusNotFound, "template no longer available: "+res.Template)
		return
	}

	f, err := export.SpecSheet(tpl, res.Slots)
	if err != nil {
		slog.Error("render spec sheet", "build", res.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "render spec sheet failed")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="ban-dac-ta-`+res.ID+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := f.WriteTo(w); err != nil {
		slog.Error("write spec sheet", "build", res.ID, "error", err)
	}
}

type coverageEntry struct {
	Topic  string     `json:"topic"`
	Lesson string     `json:"lesson"`
	QType  exam.QType `json:"qtype"`
	Level  exam.Level `json:"level"`
	Count  int        `json:"count"`
}

func (s *server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	grade, _ := strconv.Atoi(r.URL.Query().Get("grade"))
	scope := exam.Scope{
		Grade:    grade,
		Subject:  r.URL.Query().Get("subject"),
		Semester: r.URL.Query().Get("semester"),
	}

	entries := []coverageEntry{}
	for key, count := range s.bank.Coverage(scope) {
		entries = append(entries, coverageEntry{
			Topic:  key.Topic,
			Lesson: key.Lesson,
			QType:  key.QType,
			Level:  key.Level,
			Count:  count,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"coverage": entries})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
