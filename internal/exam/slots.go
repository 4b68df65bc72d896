package exam

// defaultPoints is the fallback per-question value when a type is
// missing from the points configuration.
const defaultPoints = 0.25

// BuildSlots expands a matrix template into the ordered slot list, one
// slot per required question instance. Numbering iterates lesson rows
// in TT order, then QTypeOrder, then ascending level, assigning dense
// 1-based question numbers. This traversal is the single source of
// truth for "Câu N" numbering; no other component recomputes it.
// Negative cell counts are treated as zero.
func BuildSlots(tpl Template, pointsPerType map[QType]float64) []Slot {
	var slots []Slot
	qno := 1
	for _, row := range tpl.Lessons {
		for _, qtype := range QTypeOrder {
			for _, level := range LevelOrder {
				n := row.Count(qtype, level)
				for i := 0; i < n; i++ {
					slots = append(slots, Slot{
						QNo:    qno,
						Topic:  row.Topic,
						Lesson: row.Lesson,
						QType:  qtype,
						Level:  level,
						Points: pointsFor(pointsPerType, qtype),
					})
					qno++
				}
			}
		}
	}
	return slots
}

func pointsFor(pointsPerType map[QType]float64, q QType) float64 {
	if p, ok := pointsPerType[q]; ok {
		return p
	}
	return defaultPoints
}
