package exam

import "sort"

// TotalTolerance is the float tolerance when reconciling computed exam
// points against the configured target.
const TotalTolerance = 1e-6

// NumbersByCell groups slot question numbers by lock key, sorted
// ascending. The document exporter renders each group as "Câu 1–3; 5".
func NumbersByCell(slots []Slot) map[LockKey][]int {
	out := make(map[LockKey][]int)
	for _, s := range slots {
		k := s.Key()
		out[k] = append(out[k], s.QNo)
	}
	for k := range out {
		sort.Ints(out[k])
	}
	return out
}

// TotalsByCell sums required counts across all lesson rows per
// (qtype, level) cell, for the summary row of the specification table.
func TotalsByCell(tpl Template) map[Cell]int {
	out := make(map[Cell]int)
	for _, row := range tpl.Lessons {
		for _, qtype := range QTypeOrder {
			for _, level := range LevelOrder {
				out[Cell{QType: qtype, Level: level}] += row.Count(qtype, level)
			}
		}
	}
	return out
}

// PointsByCell multiplies each cell's count by the per-type point value.
func PointsByCell(tpl Template, pointsPerType map[QType]float64) map[Cell]float64 {
	out := make(map[Cell]float64)
	for cell, n := range TotalsByCell(tpl) {
		out[cell] = float64(n) * pointsFor(pointsPerType, cell.QType)
	}
	return out
}

// ComputedTotal sums points over every cell of the template.
func ComputedTotal(tpl Template, pointsPerType map[QType]float64) float64 {
	var sum float64
	for _, pts := range PointsByCell(tpl, pointsPerType) {
		sum += pts
	}
	return sum
}

// CheckTotal reconciles the computed point total against the target.
// The signed difference (computed - target) is advisory: a mismatch is
// surfaced for the teacher to rebalance counts or per-type points, it
// never aborts a build.
func CheckTotal(tpl Template, pointsPerType map[QType]float64, target float64) (diff float64, ok bool) {
	diff = ComputedTotal(tpl, pointsPerType) - target
	if diff < TotalTolerance && diff > -TotalTolerance {
		return 0, true
	}
	return diff, false
}

// RatioByCell gives each cell's share of the target total as a
// percentage, for display in the specification table.
func RatioByCell(tpl Template, pointsPerType map[QType]float64, target float64) map[Cell]float64 {
	out := make(map[Cell]float64)
	if target == 0 {
		return out
	}
	for cell, pts := range PointsByCell(tpl, pointsPerType) {
		out[cell] = pts / target * 100.0
	}
	return out
}
