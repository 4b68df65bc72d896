package matrix_test

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hoclieu/examgen/internal/exam"
	"github.com/hoclieu/examgen/internal/matrix"
)

// writeMatrixXLSX builds a small workbook in the standard matrix sheet
// layout: title in C2, lesson rows from row 7, a "Tổng số câu" row and
// the per-type "Điểm 1 câu" rows below it.
func writeMatrixXLSX(t *testing.T, dir, name string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "ma trận"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		t.Fatalf("NewSheet() error = %v", err)
	}
	f.SetActiveSheet(idx)

	set := func(cell string, v any) {
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("SetCellValue(%s) error = %v", cell, err)
		}
	}

	set("C2", "MA TRẬN ĐỀ KIỂM TRA TIN HỌC LỚP 4 HỌC KÌ I")

	// Row 7: topic A / lesson 1, 2 periods, 2×MCQ@M1, 1×TF@M2.
	set("A7", 1)
	set("B7", "Chủ đề A")
	set("C7", "Bài 1")
	set("D7", 2)
	set("G7", 2)
	set("K7", 1)

	// Row 8: same topic (blank B inherits), lesson 2, 1×ESSAY@M3.
	set("A8", 2)
	set("C8", "Bài 2")
	set("D8", 2)
	set("U8", 1)

	set("A9", "Tổng số câu")

	set("C10", "Điểm 1 câu (nhiều lựa chọn)")
	set("D10", 0.5)
	set("C11", "Điểm 1 câu (tự luận)")
	set("D11", 1.0)

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}
	return path
}

func TestParseXLSX(t *testing.T) {
	path := writeMatrixXLSX(t, t.TempDir(), "tin4_hk1.xlsx")

	tpl, err := matrix.ParseXLSX(path, 10, 0.25)
	if err != nil {
		t.Fatalf("ParseXLSX() error = %v", err)
	}

	if tpl.Grade != 4 {
		t.Errorf("Grade = %d, want 4", tpl.Grade)
	}
	if tpl.Subject != "Tin" {
		t.Errorf("Subject = %q, want Tin", tpl.Subject)
	}
	if tpl.Semester != "HK1" {
		t.Errorf("Semester = %q, want HK1", tpl.Semester)
	}
	if len(tpl.Lessons) != 2 {
		t.Fatalf("len(Lessons) = %d, want 2", len(tpl.Lessons))
	}

	r1, r2 := tpl.Lessons[0], tpl.Lessons[1]
	if r1.TT != 1 || r1.Topic != "Chủ đề A" || r1.Lesson != "Bài 1" {
		t.Errorf("row 1 = %+v", r1)
	}
	if r2.Topic != "Chủ đề A" {
		t.Errorf("row 2 topic = %q, want inherited %q", r2.Topic, "Chủ đề A")
	}
	if got := r1.Count(exam.MCQ, exam.LevelKnow); got != 2 {
		t.Errorf("row 1 MCQ@M1 = %d, want 2", got)
	}
	if got := r1.Count(exam.TF, exam.LevelUnderstand); got != 1 {
		t.Errorf("row 1 TF@M2 = %d, want 1", got)
	}
	if got := r2.Count(exam.Essay, exam.LevelApply); got != 1 {
		t.Errorf("row 2 ESSAY@M3 = %d, want 1", got)
	}

	if got := tpl.PointsPerType[exam.MCQ]; got != 0.5 {
		t.Errorf("MCQ points = %v, want 0.5 (from Điểm 1 câu row)", got)
	}
	if got := tpl.PointsPerType[exam.Essay]; got != 1.0 {
		t.Errorf("ESSAY points = %v, want 1.0", got)
	}
	if got := tpl.PointsPerType[exam.TF]; got != 0.25 {
		t.Errorf("TF points = %v, want default 0.25", got)
	}

	// Equal periods split the ratio evenly.
	if r1.RatioPct != 50 || r2.RatioPct != 50 {
		t.Errorf("ratios = %v, %v, want 50, 50", r1.RatioPct, r2.RatioPct)
	}
	if r1.PointsTarget != 5 {
		t.Errorf("row 1 points target = %v, want 5", r1.PointsTarget)
	}
}

func TestParseXLSX_MissingFile(t *testing.T) {
	if _, err := matrix.ParseXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), 10, 0.25); err == nil {
		t.Error("ParseXLSX() error = nil, want error for missing file")
	}
}
