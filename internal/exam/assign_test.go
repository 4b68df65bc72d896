package exam

import (
	"strings"
	"testing"
)

func testScope() Scope {
	return Scope{Grade: 4, Subject: "Tin", Semester: "HK1"}
}

func record(id string, topic, lesson string, q QType, l Level) Record {
	r := Record{
		QuestionID: id,
		Grade:      4,
		Subject:    "Tin",
		Semester:   "HK1",
		Topic:      topic,
		Lesson:     lesson,
		QType:      q,
		Level:      l,
		Stem:       "stem " + id,
		Answer:     "answer " + id,
	}
	if q == MCQ {
		r.Options = []string{"a", "b", "c"}
	}
	return r
}

func mustBank(t *testing.T, records ...Record) *Bank {
	t.Helper()
	b, err := NewBank(records)
	if err != nil {
		t.Fatalf("NewBank() error = %v", err)
	}
	return b
}

func TestAssign_StrictLevelLock(t *testing.T) {
	// Bank has only level-1 MCQs for the lesson; a level-2 slot must
	// stay unmet rather than borrow them.
	bank := mustBank(t,
		record("q1", "A", "B1", MCQ, LevelKnow),
		record("q2", "A", "B1", MCQ, LevelKnow),
	)
	slots := []Slot{
		{QNo: 1, Topic: "A", Lesson: "B1", QType: MCQ, Level: LevelUnderstand, Points: 0.5},
	}

	warnings := Assign(slots, bank, testScope(), DefaultSeed)

	if slots[0].QuestionID != "" {
		t.Errorf("slot bound to %q across levels; strict lock violated", slots[0].QuestionID)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %d, want 1", len(warnings))
	}
	if !strings.Contains(warnings[0], "M2") || !strings.Contains(warnings[0], "câu 1") {
		t.Errorf("warning %q should identify level and qno", warnings[0])
	}
}

func TestAssign_LockBindingMatchesSlot(t *testing.T) {
	bank := mustBank(t,
		record("q1", "A", "B1", MCQ, LevelKnow),
		record("q2", "A", "B1", TF, LevelUnderstand),
		record("q3", "A", "B2", MCQ, LevelKnow),
	)
	slots := []Slot{
		{QNo: 1, Topic: "A", Lesson: "B1", QType: MCQ, Level: LevelKnow},
		{QNo: 2, Topic: "A", Lesson: "B1", QType: TF, Level: LevelUnderstand},
		{QNo: 3, Topic: "A", Lesson: "B2", QType: MCQ, Level: LevelKnow},
	}

	warnings := Assign(slots, bank, testScope(), DefaultSeed)
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}

	for _, s := range slots {
		rec, ok := bank.Get(s.QuestionID)
		if !ok {
			t.Fatalf("slot %d bound to unknown id %q", s.QNo, s.QuestionID)
		}
		if rec.QType != s.QType || rec.Level != s.Level || rec.Lesson != s.Lesson {
			t.Errorf("slot %d bound to %+v, lock key mismatch", s.QNo, rec.Key())
		}
	}
}

func TestAssign_AtMostOnce(t *testing.T) {
	bank := mustBank(t,
		record("q1", "A", "B1", MCQ, LevelKnow),
		record("q2", "A", "B1", MCQ, LevelKnow),
		record("q3", "A", "B1", MCQ, LevelKnow),
	)
	slots := make([]Slot, 5)
	for i := range slots {
		slots[i] = Slot{QNo: i + 1, Topic: "A", Lesson: "B1", QType: MCQ, Level: LevelKnow}
	}

	warnings := Assign(slots, bank, testScope(), DefaultSeed)

	seen := make(map[string]int)
	unmet := 0
	for _, s := range slots {
		if s.QuestionID == "" {
			unmet++
			continue
		}
		seen[s.QuestionID]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("question %q used %d times", id, n)
		}
	}
	if unmet != 2 {
		t.Errorf("unmet = %d, want 2 (3 candidates, 5 slots)", unmet)
	}
	if len(warnings) != unmet {
		t.Errorf("warnings = %d, want %d (one per unmet slot)", len(warnings), unmet)
	}
}

func TestAssign_DeterministicBySeed(t *testing.T) {
	bank := mustBank(t,
		record("q1", "A", "B1", MCQ, LevelKnow),
		record("q2", "A", "B1", MCQ, LevelKnow),
		record("q3", "A", "B1", MCQ, LevelKnow),
		record("q4", "A", "B1", MCQ, LevelKnow),
		record("q5", "A", "B2", TF, LevelApply),
	)
	build := func(seed int64) ([]Slot, []string) {
		slots := []Slot{
			{QNo: 1, Topic: "A", Lesson: "B1", QType: MCQ, Level: LevelKnow},
			{QNo: 2, Topic: "A", Lesson: "B1", QType: MCQ, Level: LevelKnow},
			{QNo: 3, Topic: "A", Lesson: "B2", QType: TF, Level: LevelApply},
			{QNo: 4, Topic: "A", Lesson: "B2", QType: Fill, Level: LevelKnow},
		}
		warnings := Assign(slots, bank, testScope(), seed)
		return slots, warnings
	}

	a, aw := build(7)
	b, bw := build(7)
	for i := range a {
		if a[i].QuestionID != b[i].QuestionID {
			t.Errorf("seed 7 run mismatch at slot %d: %q vs %q", i+1, a[i].QuestionID, b[i].QuestionID)
		}
	}
	if len(aw) != len(bw) {
		t.Errorf("warning lists differ across identical runs: %v vs %v", aw, bw)
	}

	// A different seed may change bindings, never which slots are unmet.
	c, cw := build(8)
	for i := range a {
		if (a[i].QuestionID == "") != (c[i].QuestionID == "") {
			t.Errorf("slot %d unmet status changed with seed", i+1)
		}
	}
	if len(cw) != len(aw) {
		t.Errorf("warnings = %d with seed 8, want %d", len(cw), len(aw))
	}
}

func TestAssign_ScopeFiltering(t *testing.T) {
	other := record("q9", "A", "B1", MCQ, LevelKnow)
	other.Grade = 5
	bank := mustBank(t,
		other,
		record("q1", "A", "B1", MCQ, LevelKnow),
	)
	slots := []Slot{{QNo: 1, Topic: "A", Lesson: "B1", QType: MCQ, Level: LevelKnow}}

	Assign(slots, bank, testScope(), DefaultSeed)

	if slots[0].QuestionID != "q1" {
		t.Errorf("bound %q, want q1 (grade-5 record out of scope)", slots[0].QuestionID)
	}
}

func TestAssign_NormalizedScopeLabels(t *testing.T) {
	bank := mustBank(t, record("q1", "A", "B1", MCQ, LevelKnow))
	slots := []Slot{{QNo: 1, Topic: "A", Lesson: "B1", QType: MCQ, Level: LevelKnow}}

	scope := Scope{Grade: 4, Subject: "tin học", Semester: "Học kì I"}
	warnings := Assign(slots, bank, scope, DefaultSeed)

	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none (labels should canonicalize)", warnings)
	}
	if slots[0].QuestionID != "q1" {
		t.Errorf("bound %q, want q1", slots[0].QuestionID)
	}
}

func TestAssign_YCCDNarrowing(t *testing.T) {
	r1 := record("q1", "A", "B1", MCQ, LevelKnow)
	r1.YCCD = "YC1"
	r2 := record("q2", "A", "B1", MCQ, LevelKnow)
	r2.YCCD = "YC2"
	bank := mustBank(t, r1, r2)

	slots := []Slot{
		{QNo: 1, Topic: "A", Lesson: "B1", YCCD: "YC2", QType: MCQ, Level: LevelKnow},
	}
	warnings := Assign(slots, bank, testScope(), DefaultSeed)

	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}
	if slots[0].QuestionID != "q2" {
		t.Errorf("bound %q, want q2 (YCCD narrowing should prefer the matching record)", slots[0].QuestionID)
	}
}

func TestAssign_YCCDFallsBackWithinLockKey(t *testing.T) {
	bank := mustBank(t, record("q1", "A", "B1", MCQ, LevelKnow)) // no YCCD tags

	slots := []Slot{
		{QNo: 1, Topic: "A", Lesson: "B1", YCCD: "YC9", QType: MCQ, Level: LevelKnow},
	}
	warnings := Assign(slots, bank, testScope(), DefaultSeed)

	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none (empty YCCD subset falls back to lock-key bucket)", warnings)
	}
	if slots[0].QuestionID != "q1" {
		t.Errorf("bound %q, want q1", slots[0].QuestionID)
	}
}

// The shortfall scenario: 2 MCQ@M1 slots and 1 TF@M2 slot against a
// bank with a single MCQ@M1 record yields exactly two warnings.
func TestAssign_ShortfallScenario(t *testing.T) {
	bank := mustBank(t, record("q1", "A", "B1", MCQ, LevelKnow))
	slots := []Slot{
		{QNo: 1, Topic: "A", Lesson: "B1", QType: MCQ, Level: LevelKnow, Points: 0.5},
		{QNo: 2, Topic: "A", Lesson: "B1", QType: MCQ, Level: LevelKnow, Points: 0.5},
		{QNo: 3, Topic: "A", Lesson: "B1", QType: TF, Level: LevelUnderstand, Points: 0.5},
	}

	warnings := Assign(slots, bank, testScope(), DefaultSeed)

	if len(warnings) != 2 {
		t.Fatalf("warnings = %d, want 2:\n%s", len(warnings), strings.Join(warnings, "\n"))
	}
	bound := 0
	for _, s := range slots[:2] {
		if s.QuestionID == "q1" {
			bound++
		}
	}
	if bound != 1 {
		t.Errorf("q1 bound to %d of the MCQ slots, want exactly 1", bound)
	}
	if slots[2].QuestionID != "" {
		t.Errorf("TF slot bound to %q, want unmet", slots[2].QuestionID)
	}
}
