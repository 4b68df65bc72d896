// Package export renders a finished build into teacher-facing
// artifacts: the specification sheet (XLSX) and the exam paper (text).
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hoclieu/examgen/internal/exam"
)

const specSheetName = "Bản đặc tả"

// qtypeStartCol maps each question type to the first of its three
// level columns (M1, M2, M3) in the specification sheet.
var qtypeStartCol = map[exam.QType]int{
	exam.MCQ:   5, // E..G
	exam.TF:    8, // H..J
	exam.Match: 11, // K..M
	exam.Fill:  14, // N..P
	exam.Essay: 17, // Q..S
}

var qtypeHeaders = map[exam.QType]string{
	exam.MCQ:   "Nhiều lựa chọn",
	exam.TF:    "Đúng - Sai",
	exam.Match: "Nối",
	exam.Fill:  "Điền khuyết",
	exam.Essay: "Tự luận",
}

const (
	titleRow     = 1
	bandRow      = 3
	levelRow     = 4
	dataStartRow = 5
)

// SpecSheet renders the specification table for a generated exam: one
// row per lesson with "Câu 1–3; 5" cells, followed by the three totals
// rows (counts, points, ratio %). The caller owns closing the file.
func SpecSheet(tpl exam.Template, slots []exam.Slot) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", specSheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	title := tpl.Title
	if title == "" {
		title = "BẢN ĐẶC TẢ ĐỀ KIỂM TRA"
	}
	setCell(f, 1, titleRow, title)
	if err := f.MergeCell(specSheetName, "A1", "S1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("merge title: %w", err)
	}

	writeHeader(f)

	numbers := exam.NumbersByCell(slots)
	for i, lesson := range tpl.Lessons {
		row := dataStartRow + i
		setCell(f, 1, row, lesson.TT)
		setCell(f, 2, row, lesson.Topic)
		setCell(f, 3, row, lesson.Lesson)
		// column 4 (YCCĐ) stays blank for the teacher to fill in
		for _, q := range exam.QTypeOrder {
			for _, l := range exam.LevelOrder {
				key := exam.LockKey{Topic: lesson.Topic, Lesson: lesson.Lesson, QType: q, Level: l}
				if txt := exam.FormatRanges(numbers[key]); txt != "" {
					setCell(f, cellCol(q, l), row, "Câu "+txt)
				}
			}
		}
	}

	writeTotals(f, tpl, dataStartRow+len(tpl.Lessons))

	return f, nil
}

// WriteSpecSheet renders the specification table and saves it to path.
func WriteSpecSheet(path string, tpl exam.Template, slots []exam.Slot) error {
	f, err := SpecSheet(tpl, slots)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save spec sheet: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File) {
	setCell(f, 1, bandRow, "TT")
	setCell(f, 2, bandRow, "Chủ đề")
	setCell(f, 3, bandRow, "Bài học")
	setCell(f, 4, bandRow, "Yêu cầu cần đạt")
	for _, q := range exam.QTypeOrder {
		start := qtypeStartCol[q]
		setCell(f, start, bandRow, qtypeHeaders[q])
		from, _ := excelize.CoordinatesToCellName(start, bandRow)
		to, _ := excelize.CoordinatesToCellName(start+2, bandRow)
		f.MergeCell(specSheetName, from, to)
		for _, l := range exam.LevelOrder {
			setCell(f, cellCol(q, l), levelRow, l.String())
		}
	}
}

func writeTotals(f *excelize.File, tpl exam.Template, startRow int) {
	counts := exam.TotalsByCell(tpl)
	points := exam.PointsByCell(tpl, tpl.PointsPerType)
	ratios := exam.RatioByCell(tpl, tpl.PointsPerType, tpl.TotalPoints)

	rCounts, rPoints, rRatio := startRow, startRow+1, startRow+2
	setCell(f, 1, rCounts, "Tổng số câu")
	setCell(f, 1, rPoints, "Tổng số điểm")
	setCell(f, 1, rRatio, "Tỉ lệ %")

	for _, q := range exam.QTypeOrder {
		for _, l := range exam.LevelOrder {
			cell := exam.Cell{QType: q, Level: l}
			col := cellCol(q, l)
			if c := counts[cell]; c > 0 {
				setCell(f, col, rCounts, c)
			}
			if p := points[cell]; p > 0 {
				setCell(f, col, rPoints, fmt.Sprintf("%.2f", p))
			}
			if r := ratios[cell]; r > 0 {
				setCell(f, col, rRatio, fmt.Sprintf("%.0f%%", r))
			}
		}
	}

	total := exam.ComputedTotal(tpl, tpl.PointsPerType)
	setCell(f, len(qtypeStartCol)*3+5, rPoints, fmt.Sprintf("%.2f", total))
}

func cellCol(q exam.QType, l exam.Level) int {
	return qtypeStartCol[q] + int(l) - 1
}

func setCell(f *excelize.File, col, row int, value any) {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return
	}
	f.SetCellValue(specSheetName, name, value)
}
