package matrix

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hoclieu/examgen/internal/exam"
	"github.com/hoclieu/examgen/internal/viet"
)

// yamlTemplate is the hand-authored blueprint format. Counts list the
// required questions per level, M1 first:
//
//	lessons:
//	  - tt: 1
//	    topic: "Chủ đề A"
//	    lesson: "Bài 1"
//	    periods: 2
//	    counts:
//	      MCQ: [2, 1, 0]
type yamlTemplate struct {
	Title         string             `yaml:"title"`
	Grade         int                `yaml:"grade"`
	Subject       string             `yaml:"subject"`
	Semester      string             `yaml:"semester"`
	TotalPoints   float64            `yaml:"total_points"`
	PointsPerType map[string]float64 `yaml:"points_per_type"`
	Lessons       []yamlLesson       `yaml:"lessons"`
}

type yamlLesson struct {
	TT      int              `yaml:"tt"`
	Topic   string           `yaml:"topic"`
	Lesson  string           `yaml:"lesson"`
	Periods int              `yaml:"periods"`
	Counts  map[string][]int `yaml:"counts"`
}

// ParseYAML reads a YAML-authored matrix template. Unknown question
// types are rejected; missing cells default to zero.
func ParseYAML(path string, totalPoints, step float64) (exam.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return exam.Template{}, fmt.Errorf("read matrix yaml: %w", err)
	}

	var yt yamlTemplate
	if err := yaml.Unmarshal(data, &yt); err != nil {
		return exam.Template{}, fmt.Errorf("parse matrix yaml: %w", err)
	}
	if yt.Title == "" {
		return exam.Template{}, fmt.Errorf("matrix yaml %s: missing title", path)
	}

	pointsPerType := defaultPointsPerType()
	for name, pts := range yt.PointsPerType {
		q := exam.QType(name)
		if !exam.ValidQType(q) {
			return exam.Template{}, fmt.Errorf("matrix yaml %s: unknown question type %q", path, name)
		}
		pointsPerType[q] = exam.RoundToStep(pts, step)
	}

	totalPeriods := 0
	currentTopic := ""
	lessons := make([]exam.LessonRow, 0, len(yt.Lessons))
	for _, yl := range yt.Lessons {
		if yl.Topic != "" {
			currentTopic = yl.Topic
		}
		counts := make(map[exam.Cell]int)
		for name, perLevel := range yl.Counts {
			q := exam.QType(name)
			if !exam.ValidQType(q) {
				return exam.Template{}, fmt.Errorf("matrix yaml %s: unknown question type %q in lesson %q", path, name, yl.Lesson)
			}
			if len(perLevel) > len(exam.LevelOrder) {
				return exam.Template{}, fmt.Errorf("matrix yaml %s: %s counts in lesson %q has %d entries, max 3", path, name, yl.Lesson, len(perLevel))
			}
			for i, n := range perLevel {
				counts[exam.Cell{QType: q, Level: exam.LevelOrder[i]}] = n
			}
		}
		lessons = append(lessons, exam.LessonRow{
			TT:      yl.TT,
			Topic:   currentTopic,
			Lesson:  yl.Lesson,
			Periods: yl.Periods,
			Counts:  counts,
		})
		totalPeriods += yl.Periods
	}

	if yt.TotalPoints > 0 {
		totalPoints = yt.TotalPoints
	}
	tpl := exam.Template{
		Title:         yt.Title,
		Grade:         yt.Grade,
		Subject:       viet.Subject(yt.Subject),
		Semester:      viet.Semester(yt.Semester),
		Lessons:       lessons,
		PointsPerType: pointsPerType,
		TotalPoints:   totalPoints,
	}
	deriveRatios(&tpl, totalPeriods)
	return tpl, nil
}
