// Package bank ingests question-bank files (CSV, XLSX) and persists
// records in PostgreSQL, producing the validated exam.Bank the
// assignment engine draws from.
package bank

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hoclieu/examgen/internal/exam"
)

// requiredColumns are the headers a bank file must carry.
// marking_guide is optional and defaults to empty.
var requiredColumns = []string{
	"question_id", "grade", "subject", "semester", "topic", "lesson",
	"yccd", "qtype", "tt27_level", "stem", "answer", "options",
}

// LoadCSV reads a bank from CSV. Header names are matched
// case-insensitively; every schema or record problem found is collected
// into a single *exam.ValidationError so the teacher sees the full list
// at once.
func LoadCSV(r io.Reader) (*exam.Bank, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read bank csv: %w", err)
	}
	return fromRows(rows)
}

// LoadCSVFile reads a bank from a CSV file on disk.
func LoadCSVFile(path string) (*exam.Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bank csv: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadXLSX reads a bank from the first sheet of an XLSX workbook, with
// the same header contract as CSV.
func LoadXLSX(path string) (*exam.Bank, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open bank workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetList()[0])
	if err != nil {
		return nil, fmt.Errorf("read bank sheet: %w", err)
	}
	return fromRows(rows)
}

// LoadFile dispatches on the file extension.
func LoadFile(path string) (*exam.Bank, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return LoadCSVFile(path)
	case ".xlsx", ".xls":
		return LoadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported bank format %q (csv/xlsx only)", ext)
	}
}

func fromRows(rows [][]string) (*exam.Bank, error) {
	if len(rows) == 0 {
		return nil, &exam.ValidationError{Problems: []string{"bank file is empty"}}
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var problems []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			problems = append(problems, fmt.Sprintf("missing required column: %s", c))
		}
	}
	if len(problems) > 0 {
		return nil, &exam.ValidationError{Problems: problems}
	}

	get := func(row []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]exam.Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		lineNo := n + 2 // header is line 1
		rec := exam.Record{
			QuestionID:   get(row, "question_id"),
			Subject:      get(row, "subject"),
			Semester:     get(row, "semester"),
			Topic:        get(row, "topic"),
			Lesson:       get(row, "lesson"),
			YCCD:         get(row, "yccd"),
			QType:        exam.QType(strings.ToUpper(get(row, "qtype"))),
			Stem:         get(row, "stem"),
			Answer:       get(row, "answer"),
			MarkingGuide: get(row, "marking_guide"),
		}
		if g, err := strconv.Atoi(get(row, "grade")); err == nil {
			rec.Grade = g
		} else {
			problems = append(problems, fmt.Sprintf("line %d: grade %q is not a number", lineNo, get(row, "grade")))
		}
		if l, err := strconv.Atoi(get(row, "tt27_level")); err == nil {
			rec.Level = exam.Level(l)
		} else {
			problems = append(problems, fmt.Sprintf("line %d: tt27_level %q is not a number", lineNo, get(row, "tt27_level")))
		}
		if raw := get(row, "options"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &rec.Options); err != nil {
				problems = append(problems, fmt.Sprintf("line %d: options is not a JSON list: %v", lineNo, err))
			}
		}
		records = append(records, rec)
	}

	b, err := exam.NewBank(records)
	if err != nil {
		var verr *exam.ValidationError
		if errors.As(err, &verr) {
			problems = append(problems, verr.Problems...)
			return nil, &exam.ValidationError{Problems: problems}
		}
		return nil, err
	}
	if len(problems) > 0 {
		return nil, &exam.ValidationError{Problems: problems}
	}
	return b, nil
}
