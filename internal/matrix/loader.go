package matrix

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hoclieu/examgen/internal/exam"
	"github.com/hoclieu/examgen/internal/viet"
)

// Loader loads and caches matrix templates from a directory tree.
// XLSX workbooks and YAML blueprints are both accepted; templates are
// keyed by file name without extension.
type Loader struct {
	rootDir     string
	totalPoints float64
	step        float64
	templates   map[string]exam.Template
	mu          sync.RWMutex
}

// NewLoader creates a loader and loads every template under rootDir.
// Files that fail to parse are skipped with a warning so one broken
// upload does not take the whole catalog down.
func NewLoader(rootDir string, totalPoints, step float64) (*Loader, error) {
	l := &Loader{
		rootDir:     rootDir,
		totalPoints: totalPoints,
		step:        step,
		templates:   make(map[string]exam.Template),
	}
	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading matrix templates: %w", err)
	}
	slog.Info("matrix templates loaded", "count", len(l.templates), "dir", rootDir)
	return l, nil
}

// Get returns a template by name.
func (l *Loader) Get(name string) (exam.Template, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[name]
	return t, ok
}

// Names returns the loaded template names, sorted.
func (l *Loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pick returns the template best matching a (grade, subject, semester)
// scope and its loader name: one point each for a matching grade,
// subject and semester, ties broken by name so the choice is stable.
func (l *Loader) Pick(grade int, subject, semester string) (exam.Template, string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	bestScore := -1
	bestName := ""
	for _, name := range l.namesLocked() {
		t := l.templates[name]
		score := 0
		if t.Grade == grade {
			score++
		}
		if t.Subject != "" && viet.SameSubject(t.Subject, subject) {
			score++
		}
		if t.Semester != "" && viet.SameSemester(t.Semester, semester) {
			score++
		}
		if score > bestScore {
			bestScore = score
			bestName = name
		}
	}
	if bestName == "" {
		return exam.Template{}, "", false
	}
	return l.templates[bestName], bestName, true
}

func (l *Loader) namesLocked() []string {
	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		var tpl exam.Template
		var perr error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xlsx":
			tpl, perr = ParseXLSX(path, l.totalPoints, l.step)
		case ".yaml", ".yml":
			tpl, perr = ParseYAML(path, l.totalPoints, l.step)
		default:
			return nil
		}
		if perr != nil {
			slog.Warn("skipping invalid matrix template", "path", path, "error", perr)
			return nil
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		l.mu.Lock()
		l.templates[name] = tpl
		l.mu.Unlock()
		return nil
	})
}
