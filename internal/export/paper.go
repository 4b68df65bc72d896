package export

import (
	"fmt"
	"strings"

	"github.com/hoclieu/examgen/internal/exam"
)

// PlaceholderUnmet is printed in place of a question body when neither
// the bank nor the AI fallback supplied content for the slot.
const PlaceholderUnmet = "[CHƯA CÓ CÂU PHÙ HỢP TRONG KHO — vui lòng bổ sung hoặc giảm số câu ô này]"

var optionLetters = []string{"A", "B", "C", "D", "E", "F"}

// RenderPaper renders the exam itself as plain UTF-8 text, one block
// per slot in qno order. Bank questions are resolved through the bank;
// synthesized slots carry their own content; everything else gets the
// placeholder so the teacher sees exactly which cells are short.
func RenderPaper(tpl exam.Template, slots []exam.Slot, bank *exam.Bank) string {
	var b strings.Builder

	if tpl.Title != "" {
		b.WriteString(tpl.Title + "\n")
	}
	fmt.Fprintf(&b, "Thang điểm: %g\n\n", tpl.TotalPoints)

	for _, s := range slots {
		fmt.Fprintf(&b, "Câu %d. (%g điểm) ", s.QNo, s.Points)
		writeBody(&b, s, bank)
		b.WriteString("\n")
	}
	return b.String()
}

func writeBody(b *strings.Builder, s exam.Slot, bank *exam.Bank) {
	stem, options := s.Stem, s.Options
	if s.QuestionID != "" && bank != nil {
		if rec, ok := bank.Get(s.QuestionID); ok {
			stem, options = rec.Stem, rec.Options
		}
	}

	if stem == "" {
		b.WriteString(PlaceholderUnmet + "\n")
		return
	}

	b.WriteString(stem + "\n")
	switch s.QType {
	case exam.MCQ:
		for i, opt := range options {
			if i >= len(optionLetters) {
				break
			}
			fmt.Fprintf(b, "%s. %s\n", optionLetters[i], opt)
		}
	case exam.TF, exam.Match, exam.Fill:
		b.WriteString("(GV điền nội dung chi tiết cho dạng câu này trong kho câu hỏi)\n")
	default:
		b.WriteString("........................................................................\n")
	}
}
