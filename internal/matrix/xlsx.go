// Package matrix parses exam matrix templates (the TT27 blueprint grid)
// from XLSX and YAML files into the typed form the exam engine consumes,
// and caches them from a templates directory.
package matrix

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hoclieu/examgen/internal/exam"
	"github.com/hoclieu/examgen/internal/viet"
)

const (
	matrixSheet  = "ma trận"
	dataStartRow = 7 // lesson rows begin after the 6-row header block
)

// qtypeCols maps each question type to its (M1, M2, M3) column letters
// in the standard matrix sheet layout.
var qtypeCols = map[exam.QType][3]string{
	exam.MCQ:   {"G", "H", "I"},
	exam.TF:    {"J", "K", "L"},
	exam.Match: {"M", "N", "O"},
	exam.Fill:  {"P", "Q", "R"},
	exam.Essay: {"S", "T", "U"},
}

// pointRowKeywords maps a folded keyword in the "Điểm 1 câu" label rows
// to the question type it configures.
var pointRowKeywords = []struct {
	keyword string
	qtype   exam.QType
}{
	{"nhieu", exam.MCQ},
	{"dung", exam.TF},
	{"noi", exam.Match},
	{"dien", exam.Fill},
	{"tu luan", exam.Essay},
}

// defaultPointsPerType matches the standard template when no "Điểm 1
// câu" rows are present in the sheet.
func defaultPointsPerType() map[exam.QType]float64 {
	return map[exam.QType]float64{
		exam.MCQ:   0.25,
		exam.TF:    0.25,
		exam.Match: 0.5,
		exam.Fill:  0.25,
		exam.Essay: 0.5,
	}
}

// ParseXLSX reads one matrix workbook. It looks for the "ma trận" sheet
// (falling back to the first sheet), reads the title from C2, extracts
// grade/subject/semester heuristically from the title, and walks lesson
// rows until the "Tổng số câu" totals row. Per-question point values
// are read from the "Điểm 1 câu" rows below the grid and rounded to
// step.
func ParseXLSX(path string, totalPoints, step float64) (exam.Template, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return exam.Template{}, fmt.Errorf("open matrix workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetList()[0]
	for _, s := range f.GetSheetList() {
		if strings.EqualFold(s, matrixSheet) {
			sheet = s
			break
		}
	}

	title, _ := f.GetCellValue(sheet, "C2")
	title = strings.TrimSpace(title)
	if title == "" {
		title = "MA TRẬN"
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return exam.Template{}, fmt.Errorf("read matrix sheet: %w", err)
	}
	maxRow := len(rows)

	endRow := maxRow
	for r := dataStartRow; r <= maxRow; r++ {
		a, _ := f.GetCellValue(sheet, fmt.Sprintf("A%d", r))
		if strings.Contains(a, "Tổng số câu") {
			endRow = r - 1
			break
		}
	}

	totalPeriods := 0
	for r := dataStartRow; r <= endRow; r++ {
		v, _ := f.GetCellValue(sheet, fmt.Sprintf("D%d", r))
		totalPeriods += safeInt(v)
	}

	pointsPerType := defaultPointsPerType()
	for r := endRow + 1; r <= maxRow; r++ {
		label, _ := f.GetCellValue(sheet, fmt.Sprintf("C%d", r))
		value, _ := f.GetCellValue(sheet, fmt.Sprintf("D%d", r))
		if !strings.Contains(label, "Điểm 1 câu") || value == "" {
			continue
		}
		pts, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			continue
		}
		folded := viet.Fold(label)
		for _, kw := range pointRowKeywords {
			if strings.Contains(folded, kw.keyword) {
				pointsPerType[kw.qtype] = exam.RoundToStep(pts, step)
				break
			}
		}
	}

	var lessons []exam.LessonRow
	currentTopic := ""
	for r := dataStartRow; r <= endRow; r++ {
		ttRaw, _ := f.GetCellValue(sheet, fmt.Sprintf("A%d", r))
		tt, err := strconv.Atoi(strings.TrimSpace(ttRaw))
		if err != nil {
			continue // spacer or malformed row
		}
		if topic, _ := f.GetCellValue(sheet, fmt.Sprintf("B%d", r)); strings.TrimSpace(topic) != "" {
			currentTopic = strings.TrimSpace(topic)
		}
		lessonName, _ := f.GetCellValue(sheet, fmt.Sprintf("C%d", r))
		periodsRaw, _ := f.GetCellValue(sheet, fmt.Sprintf("D%d", r))
		periods := safeInt(periodsRaw)

		counts := make(map[exam.Cell]int)
		for qtype, cols := range qtypeCols {
			for i, level := range exam.LevelOrder {
				v, _ := f.GetCellValue(sheet, fmt.Sprintf("%s%d", cols[i], r))
				counts[exam.Cell{QType: qtype, Level: level}] = safeInt(v)
			}
		}

		lessons = append(lessons, exam.LessonRow{
			TT:      tt,
			Topic:   currentTopic,
			Lesson:  strings.TrimSpace(lessonName),
			Periods: periods,
			Counts:  counts,
		})
	}

	tpl := exam.Template{
		Title:         title,
		Grade:         gradeFromTitle(title),
		Subject:       subjectFromTitle(title),
		Semester:      viet.Semester(semesterHint(title)),
		Lessons:       lessons,
		PointsPerType: pointsPerType,
		TotalPoints:   totalPoints,
	}
	deriveRatios(&tpl, totalPeriods)
	return tpl, nil
}

// deriveRatios fills each row's period ratio and point target from the
// total instructional periods.
func deriveRatios(tpl *exam.Template, totalPeriods int) {
	for i := range tpl.Lessons {
		row := &tpl.Lessons[i]
		if totalPeriods > 0 {
			row.RatioPct = float64(row.Periods) / float64(totalPeriods) * 100.0
		}
		row.PointsTarget = tpl.TotalPoints * row.RatioPct / 100.0
	}
}

func gradeFromTitle(title string) int {
	folded := " " + viet.Fold(title) + " "
	for g := 1; g <= 5; g++ {
		if strings.Contains(folded, fmt.Sprintf(" %d ", g)) ||
			strings.Contains(folded, fmt.Sprintf("lop %d", g)) {
			return g
		}
	}
	return 0
}

func subjectFromTitle(title string) string {
	folded := viet.Fold(title)
	// Longest names first so "Tiếng Việt" is not mistaken for "Tin".
	best := ""
	for _, subj := range viet.Subjects {
		fs := viet.Fold(subj)
		if strings.Contains(folded, fs) && len(fs) > len(viet.Fold(best)) {
			best = subj
		}
	}
	return best
}

func semesterHint(title string) string {
	folded := viet.Fold(title)
	switch {
	case strings.Contains(folded, "hoc ki ii"), strings.Contains(folded, "hkii"), strings.Contains(folded, "hk2"):
		return "HK2"
	case strings.Contains(folded, "hoc ki i"), strings.Contains(folded, "hki"), strings.Contains(folded, "hk1"):
		return "HK1"
	}
	return ""
}

// safeInt parses a cell value as an integer, tolerating float rendering
// ("2.0") and returning 0 for anything unparseable.
func safeInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}
