package exam

import (
	"fmt"
	"math/rand"
)

// DefaultSeed reproduces the same exam across runs until the caller
// deliberately asks for a different draw.
const DefaultSeed int64 = 42

// Assign binds bank questions to slots in place and returns one warning
// per slot it could not fill.
//
// The engine filters the bank to the scope, buckets candidates by lock
// key, shuffles each bucket with a generator seeded from seed, and then
// walks slots in QNo order popping candidates until an unused question
// ID is found. A slot requesting level 2 is never filled from level 1
// or 3, even when its own bucket is empty; shortfall is reported, not
// substituted. When a slot carries a YCCD, candidates matching it are
// preferred; the full bucket is used only if no candidate carries that
// YCCD (the refinement never relaxes the lock key).
//
// Identical inputs and seed yield identical bindings and warnings.
func Assign(slots []Slot, bank *Bank, scope Scope, seed int64) []string {
	buckets := make(map[LockKey][]Record)
	for _, r := range bank.Filter(scope) {
		k := r.Key()
		buckets[k] = append(buckets[k], r)
	}

	// Shuffle buckets in sorted key order: map iteration order would
	// make rand consumption, and the result, run-dependent.
	keys := make([]LockKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sortKeys(keys)
	rng := rand.New(rand.NewSource(seed))
	for _, k := range keys {
		b := buckets[k]
		rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
	}

	var warnings []string
	used := make(map[string]bool)
	for i := range slots {
		s := &slots[i]
		qid, ok := draw(buckets, s, used)
		if !ok {
			warnings = append(warnings, fmt.Sprintf(
				"Thiếu câu: %s | %s | %s | %s (câu %d)",
				s.Topic, s.Lesson, s.QType, s.Level, s.QNo))
			continue
		}
		s.QuestionID = qid
		used[qid] = true
	}
	return warnings
}

// draw pops the next usable candidate for a slot from its lock-key
// bucket, honoring the slot's optional YCCD preference.
func draw(buckets map[LockKey][]Record, s *Slot, used map[string]bool) (string, bool) {
	key := s.Key()
	bucket := buckets[key]

	if s.YCCD != "" {
		// Narrow to the YCCD subset when it has any remaining
		// candidates; otherwise fall through to the whole bucket.
		narrowed := false
		for _, r := range bucket {
			if r.YCCD == s.YCCD {
				narrowed = true
				break
			}
		}
		if narrowed {
			for i, r := range bucket {
				if r.YCCD != s.YCCD || used[r.QuestionID] {
					continue
				}
				buckets[key] = append(bucket[:i:i], bucket[i+1:]...)
				return r.QuestionID, true
			}
			return "", false
		}
	}

	for len(bucket) > 0 {
		r := bucket[len(bucket)-1]
		bucket = bucket[:len(bucket)-1]
		if !used[r.QuestionID] {
			buckets[key] = bucket
			return r.QuestionID, true
		}
	}
	buckets[key] = bucket
	return "", false
}
