package matrix_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hoclieu/examgen/internal/exam"
	"github.com/hoclieu/examgen/internal/matrix"
)

const yamlFixture = `
title: "MA TRẬN TIN 4 HK1"
grade: 4
subject: "tin học"
semester: "Học kì I"
total_points: 10
points_per_type:
  MCQ: 0.5
  ESSAY: 1.0
lessons:
  - tt: 1
    topic: "Chủ đề A"
    lesson: "Bài 1"
    periods: 3
    counts:
      MCQ: [2, 1, 0]
  - tt: 2
    lesson: "Bài 2"
    periods: 1
    counts:
      ESSAY: [0, 0, 1]
`

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tpl.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	tpl, err := matrix.ParseYAML(writeYAML(t, yamlFixture), 10, 0.25)
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}

	if tpl.Subject != "Tin" || tpl.Semester != "HK1" {
		t.Errorf("scope = (%q, %q), want canonical (Tin, HK1)", tpl.Subject, tpl.Semester)
	}
	if len(tpl.Lessons) != 2 {
		t.Fatalf("len(Lessons) = %d, want 2", len(tpl.Lessons))
	}
	if tpl.Lessons[1].Topic != "Chủ đề A" {
		t.Errorf("lesson 2 topic = %q, want inherited topic", tpl.Lessons[1].Topic)
	}
	if got := tpl.Lessons[0].Count(exam.MCQ, exam.LevelUnderstand); got != 1 {
		t.Errorf("lesson 1 MCQ@M2 = %d, want 1", got)
	}
	if got := tpl.PointsPerType[exam.Essay]; got != 1.0 {
		t.Errorf("ESSAY points = %v, want 1.0", got)
	}
	// Periods 3:1 split the point targets 7.5 / 2.5.
	if tpl.Lessons[0].PointsTarget != 7.5 {
		t.Errorf("lesson 1 points target = %v, want 7.5", tpl.Lessons[0].PointsTarget)
	}
}

func TestParseYAML_UnknownQType(t *testing.T) {
	bad := `
title: "t"
lessons:
  - tt: 1
    lesson: "Bài 1"
    counts:
      QUIZ: [1, 0, 0]
`
	if _, err := matrix.ParseYAML(writeYAML(t, bad), 10, 0.25); err == nil {
		t.Error("ParseYAML() error = nil, want unknown question type error")
	}
}

func TestParseYAML_MissingTitle(t *testing.T) {
	if _, err := matrix.ParseYAML(writeYAML(t, `grade: 4`), 10, 0.25); err == nil {
		t.Error("ParseYAML() error = nil, want missing title error")
	}
}

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tin4_hk1.yaml"), []byte(yamlFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	// A broken template is skipped, not fatal.
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(`: not yaml`), 0o644); err != nil {
		t.Fatal(err)
	}
	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeMatrixXLSX(t, dir, "tin4_hk1_xlsx.xlsx")

	loader, err := matrix.NewLoader(dir, 10, 0.25)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	names := loader.Names()
	if len(names) != 2 {
		t.Fatalf("Names() = %v, want 2 templates", names)
	}

	if _, ok := loader.Get("tin4_hk1"); !ok {
		t.Error("Get(tin4_hk1) not found")
	}
	if _, ok := loader.Get("broken"); ok {
		t.Error("broken template should have been skipped")
	}

	tpl, name, ok := loader.Pick(4, "Tin", "HK1")
	if !ok {
		t.Fatal("Pick() found nothing")
	}
	if tpl.Grade != 4 {
		t.Errorf("picked grade %d, want 4", tpl.Grade)
	}
	if name == "" {
		t.Error("picked template has no name")
	}
}

func TestLoader_EmptyDir(t *testing.T) {
	loader, err := matrix.NewLoader(t.TempDir(), 10, 0.25)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if names := loader.Names(); len(names) != 0 {
		t.Errorf("Names() = %v, want empty", names)
	}
	if _, _, ok := loader.Pick(4, "Tin", "HK1"); ok {
		t.Error("Pick() on empty loader should report not found")
	}
}
