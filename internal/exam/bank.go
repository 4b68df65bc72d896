package exam

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hoclieu/examgen/internal/viet"
)

// Record is one validated question-bank entry. Subject and semester are
// canonicalized at construction so scope filtering is a plain compare.
type Record struct {
	QuestionID   string
	Grade        int
	Subject      string
	Semester     string
	Topic        string
	Lesson       string
	YCCD         string
	QType        QType
	Level        Level
	Stem         string
	Answer       string
	Options      []string // decoded MCQ choices
	MarkingGuide string
}

// Key returns the record's strict lock key.
func (r Record) Key() LockKey {
	return LockKey{Topic: r.Topic, Lesson: r.Lesson, QType: r.QType, Level: r.Level}
}

// ValidationError reports why a record set cannot become a Bank. The
// problems are human-readable; the caller must not proceed to
// generation until the list is empty.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid question bank: %s", strings.Join(e.Problems, "; "))
}

// Bank is an immutable, validated question collection. Only the used-ID
// ledger of an individual build changes at runtime, and that ledger
// lives outside the Bank, so a Bank may be shared across builds.
type Bank struct {
	records []Record
}

// NewBank validates records and builds a Bank. On any invalid record it
// returns a *ValidationError listing every problem found.
func NewBank(records []Record) (*Bank, error) {
	var problems []string
	for i, r := range records {
		if r.QuestionID == "" {
			problems = append(problems, fmt.Sprintf("row %d: missing question_id", i+1))
		}
		if !ValidQType(r.QType) {
			problems = append(problems, fmt.Sprintf("row %d (%s): qtype %q not in %v", i+1, r.QuestionID, r.QType, QTypeOrder))
		}
		if !ValidLevel(r.Level) {
			problems = append(problems, fmt.Sprintf("row %d (%s): tt27_level must be 1, 2 or 3, got %d", i+1, r.QuestionID, int(r.Level)))
		}
		if r.QType == MCQ && len(r.Options) < 3 {
			problems = append(problems, fmt.Sprintf("row %d (%s): MCQ needs at least 3 options, got %d", i+1, r.QuestionID, len(r.Options)))
		}
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	owned := make([]Record, len(records))
	copy(owned, records)
	for i := range owned {
		owned[i].Subject = viet.Subject(owned[i].Subject)
		owned[i].Semester = viet.Semester(owned[i].Semester)
	}
	return &Bank{records: owned}, nil
}

// Len returns the number of records.
func (b *Bank) Len() int { return len(b.records) }

// Records returns a copy of all records.
func (b *Bank) Records() []Record {
	out := make([]Record, len(b.records))
	copy(out, b.records)
	return out
}

// Get returns the record with the given question ID.
func (b *Bank) Get(questionID string) (Record, bool) {
	for _, r := range b.records {
		if r.QuestionID == questionID {
			return r, true
		}
	}
	return Record{}, false
}

// Scope narrows a bank to one (grade, subject, semester) exam context.
type Scope struct {
	Grade    int    `json:"grade"`
	Subject  string `json:"subject"`
	Semester string `json:"semester"`
}

// Filter returns the records matching the scope. Subject and semester
// comparison is canonicalized, so "tin học" matches "Tin".
func (b *Bank) Filter(scope Scope) []Record {
	var out []Record
	for _, r := range b.records {
		if r.Grade != scope.Grade {
			continue
		}
		if !viet.SameSubject(r.Subject, scope.Subject) {
			continue
		}
		if !viet.SameSemester(r.Semester, scope.Semester) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Coverage counts available records per lock key within a scope, for
// the coverage report teachers consult before building.
func (b *Bank) Coverage(scope Scope) map[LockKey]int {
	out := make(map[LockKey]int)
	for _, r := range b.Filter(scope) {
		out[r.Key()]++
	}
	return out
}

// sortKeys returns lock keys in a stable (topic, lesson, qtype, level)
// order. Bucket shuffling iterates keys in this order so that rand
// consumption, and therefore the whole assignment, is reproducible.
func sortKeys(keys []LockKey) {
	idx := make(map[QType]int, len(QTypeOrder))
	for i, q := range QTypeOrder {
		idx[q] = i
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Topic != b.Topic {
			return a.Topic < b.Topic
		}
		if a.Lesson != b.Lesson {
			return a.Lesson < b.Lesson
		}
		if a.QType != b.QType {
			return idx[a.QType] < idx[b.QType]
		}
		return a.Level < b.Level
	})
}
