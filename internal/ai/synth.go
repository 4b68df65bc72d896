package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hoclieu/examgen/internal/exam"
)

// qtypeLabels are the Vietnamese names used when prompting for a
// question of a given format.
var qtypeLabels = map[exam.QType]string{
	exam.MCQ:   "trắc nghiệm nhiều lựa chọn",
	exam.TF:    "đúng - sai",
	exam.Match: "nối cột",
	exam.Fill:  "điền khuyết",
	exam.Essay: "tự luận",
}

var levelLabels = map[exam.Level]string{
	exam.LevelKnow:       "Biết (M1)",
	exam.LevelUnderstand: "Hiểu (M2)",
	exam.LevelApply:      "Vận dụng (M3)",
}

const synthSystemPrompt = "Bạn là chuyên gia ra đề kiểm tra tiểu học theo CTGDPT 2018 và Thông tư 27. " +
	"Chỉ trả lời bằng một đối tượng JSON duy nhất, không thêm lời dẫn."

// questionSchema validates the synthesized payload. MCQ additionally
// requires an options list of at least 3 choices.
const questionSchema = `{
	"type": "object",
	"required": ["stem", "answer"],
	"properties": {
		"stem": {"type": "string", "minLength": 1},
		"answer": {"type": "string"},
		"options": {"type": "array", "items": {"type": "string"}, "minItems": 3},
		"marking_guide": {"type": "string"}
	}
}`

const mcqQuestionSchema = `{
	"type": "object",
	"required": ["stem", "answer", "options"],
	"properties": {
		"stem": {"type": "string", "minLength": 1},
		"answer": {"type": "string"},
		"options": {"type": "array", "items": {"type": "string"}, "minItems": 3},
		"marking_guide": {"type": "string"}
	}
}`

// Question is the structured payload a provider must return for one
// synthesized exam question.
type Question struct {
	Stem         string   `json:"stem"`
	Options      []string `json:"options,omitempty"`
	Answer       string   `json:"answer"`
	MarkingGuide string   `json:"marking_guide,omitempty"`
}

// SynthRequest describes the question to fabricate when the bank has
// no match for a slot.
type SynthRequest struct {
	Grade   int
	Subject string
	Topic   string
	Lesson  string
	YCCD    string
	QType   exam.QType
	Level   exam.Level
	Points  float64
}

// SynthError is the domain error for a failed synthesis, distinct from
// generic I/O failures so callers can degrade to a blank slot without
// aborting the build.
type SynthError struct {
	Stage string // "provider", "decode" or "schema"
	Err   error
}

func (e *SynthError) Error() string {
	return fmt.Sprintf("question synthesis failed at %s: %v", e.Stage, e.Err)
}

func (e *SynthError) Unwrap() error { return e.Err }

// Synthesizer turns an unmet slot into an AI-generated question,
// validating the structured response before accepting it.
type Synthesizer struct {
	router      *Router
	model       string
	temperature float64
}

// NewSynthesizer creates a Synthesizer on top of a provider router.
// model may be empty to use each provider's default.
func NewSynthesizer(router *Router, model string) *Synthesizer {
	return &Synthesizer{
		router:      router,
		model:       model,
		temperature: 0.4,
	}
}

// Synthesize asks the provider chain for one question and validates the
// payload against the schema. All failures are returned as *SynthError.
func (s *Synthesizer) Synthesize(ctx context.Context, req SynthRequest) (Question, error) {
	resp, err := s.router.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: synthSystemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
		Model:       s.model,
		Temperature: s.temperature,
	})
	if err != nil {
		return Question{}, &SynthError{Stage: "provider", Err: err}
	}

	payload := extractJSON(resp.Content)
	if payload == "" {
		return Question{}, &SynthError{Stage: "decode", Err: fmt.Errorf("no JSON object in response")}
	}

	schema := questionSchema
	if req.QType == exam.MCQ {
		schema = mcqQuestionSchema
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(payload),
	)
	if err != nil {
		return Question{}, &SynthError{Stage: "decode", Err: err}
	}
	if !result.Valid() {
		var issues []string
		for _, e := range result.Errors() {
			issues = append(issues, e.String())
		}
		return Question{}, &SynthError{Stage: "schema", Err: fmt.Errorf("%s", strings.Join(issues, "; "))}
	}

	var q Question
	if err := json.Unmarshal([]byte(payload), &q); err != nil {
		return Question{}, &SynthError{Stage: "decode", Err: err}
	}
	return q, nil
}

func buildPrompt(req SynthRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Soạn 1 câu hỏi %s, mức %s, cho học sinh lớp %d, môn %s.\n",
		qtypeLabels[req.QType], levelLabels[req.Level], req.Grade, req.Subject)
	fmt.Fprintf(&b, "Chủ đề: %s. Bài: %s.\n", req.Topic, req.Lesson)
	if req.YCCD != "" {
		fmt.Fprintf(&b, "Yêu cầu cần đạt: %s.\n", req.YCCD)
	}
	fmt.Fprintf(&b, "Thang điểm cho câu này: %g điểm.\n", req.Points)
	b.WriteString(`Trả về JSON với các khóa: "stem", "answer", "marking_guide"`)
	if req.QType == exam.MCQ {
		b.WriteString(` và "options" (danh sách 4 lựa chọn, đáp án đúng nằm trong danh sách)`)
	}
	b.WriteString(".")
	return b.String()
}

// extractJSON pulls the first top-level JSON object out of a model
// response, tolerating markdown code fences around it.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
