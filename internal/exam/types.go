// Package exam implements the matrix-driven slot generation and
// assignment engine for TT27 exam assembly: expanding a matrix template
// into numbered question slots, binding bank questions to slots under
// the strict level lock, and aggregating totals for export.
package exam

import "fmt"

// QType identifies one of the five TT27 question formats.
type QType string

const (
	MCQ   QType = "MCQ"
	TF    QType = "TF"
	Match QType = "MATCH"
	Fill  QType = "FILL"
	Essay QType = "ESSAY"
)

// QTypeOrder is the canonical question-type order. It drives slot
// numbering and every per-type column layout, so it is iterated
// everywhere instead of ranging over maps.
var QTypeOrder = []QType{MCQ, TF, Match, Fill, Essay}

// ValidQType reports whether q is one of the five allowed formats.
func ValidQType(q QType) bool {
	for _, t := range QTypeOrder {
		if t == q {
			return true
		}
	}
	return false
}

// Level is a TT27 cognitive level: 1=Biết, 2=Hiểu, 3=Vận dụng.
type Level int

const (
	LevelKnow       Level = 1
	LevelUnderstand Level = 2
	LevelApply      Level = 3
)

// LevelOrder is the ascending level order used for slot numbering.
var LevelOrder = []Level{LevelKnow, LevelUnderstand, LevelApply}

// ValidLevel reports whether l is in {1,2,3}.
func ValidLevel(l Level) bool {
	return l >= LevelKnow && l <= LevelApply
}

// String renders the level in the TT27 shorthand ("M1".."M3").
func (l Level) String() string {
	return fmt.Sprintf("M%d", int(l))
}

// Cell addresses one (question-type, level) column of the matrix.
type Cell struct {
	QType QType
	Level Level
}

// LockKey is the strict TT27 matching key between a slot and a bank
// record. A slot is only ever filled from its exact lock-key bucket;
// there is no substitution across topics, lessons, types or levels.
type LockKey struct {
	Topic  string
	Lesson string
	QType  QType
	Level  Level
}

// LessonRow is one row of a matrix template: a lesson with its required
// question counts per (qtype, level) cell. Counts never go negative;
// a missing cell means zero.
type LessonRow struct {
	TT           int     // sequence index, defines iteration order
	Topic        string  // inherited from the nearest preceding non-blank row
	Lesson       string
	Periods      int     // instructional hours
	RatioPct     float64 // periods / total periods * 100
	PointsTarget float64 // RatioPct * total exam points / 100
	Counts       map[Cell]int
}

// Count returns the required question count for a cell, treating
// missing or negative entries as zero.
func (r LessonRow) Count(q QType, l Level) int {
	n := r.Counts[Cell{QType: q, Level: l}]
	if n < 0 {
		return 0
	}
	return n
}

// Template is one exam blueprint: ordered lesson rows plus the point
// configuration. Lessons are ordered by TT ascending and that order is
// preserved end-to-end; it drives question numbering.
type Template struct {
	Title         string
	Grade         int // 0 when unknown
	Subject       string
	Semester      string
	Lessons       []LessonRow
	PointsPerType map[QType]float64
	TotalPoints   float64
}

// Slot is one required question instance derived from the matrix.
// It is created empty by BuildSlots and mutated exactly once by Assign:
// either QuestionID is bound, or the slot stays unmet and is reported.
// Content fields are populated later for AI-synthesized questions.
type Slot struct {
	QNo    int     `json:"qno"` // 1-based, dense, assigned in (TT, qtype, level) order
	Topic  string  `json:"topic"`
	Lesson string  `json:"lesson"`
	YCCD   string  `json:"yccd,omitempty"` // optional learning-objective refinement within the lock key
	QType  QType   `json:"qtype"`
	Level  Level   `json:"level"`
	Points float64 `json:"points"`

	QuestionID string `json:"question_id,omitempty"` // empty until assigned

	// Synthesized content, set only when the bank had no match and an
	// AI provider supplied the question body.
	Stem         string   `json:"stem,omitempty"`
	Options      []string `json:"options,omitempty"`
	Answer       string   `json:"answer,omitempty"`
	MarkingGuide string   `json:"marking_guide,omitempty"`
}

// Key returns the slot's strict lock key.
func (s Slot) Key() LockKey {
	return LockKey{Topic: s.Topic, Lesson: s.Lesson, QType: s.QType, Level: s.Level}
}
