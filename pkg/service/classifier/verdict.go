package classifier

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
)

// Verdict is a parsed answer of the judge. Label is empty when the judge answered
// with a label outside the taxonomy.
type Verdict struct {
	Label      types.Classification
	Confidence float64
	Rationale  string
}

// Judgment is the outcome of asking the judge: either a Verdict or the reason it is missing
type Judgment struct {
	Verdict  *Verdict
	Degraded string
}

// Ok reports whether the judge produced a usable verdict
func (j Judgment) Ok() bool {
	return j.Verdict != nil
}

func okJudgment(v *Verdict) Judgment {
	return Judgment{Verdict: v}
}

func degradedJudgment(reason string) Judgment {
	return Judgment{Degraded: reason}
}

type verdictJSON struct {
	Classification string   `json:"classification"`
	Confidence     *float64 `json:"confidence"`
	Rationale      string   `json:"rationale"`
}

// ParseVerdict reads "<label> | <confidence> | <rationale>". A JSON object with
// classification, confidence and rationale fields is accepted as well.
func ParseVerdict(text string) (*Verdict, error) {
	text = strings.TrimSpace(stripCodeFence(text))
	if text == "" {
		return nil, goerr.New("empty judge response")
	}

	if strings.HasPrefix(text, "{") {
		var v verdictJSON
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return nil, goerr.Wrap(err, "failed to decode judge response")
		}
		if v.Confidence == nil {
			return nil, goerr.New("judge response has no confidence")
		}
		if !isFinite(*v.Confidence) {
			return nil, goerr.New("judge confidence is not finite", goerr.V("value", *v.Confidence))
		}
		return newVerdict(v.Classification, *v.Confidence, v.Rationale), nil
	}

	// only the first non-empty line is meaningful
	line := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}

	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return nil, goerr.New("judge response is not pipe separated", goerr.V("response", line))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	confidence, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, goerr.Wrap(err, "judge confidence is not a number", goerr.V("value", parts[1]))
	}
	if !isFinite(confidence) {
		return nil, goerr.New("judge confidence is not finite", goerr.V("value", parts[1]))
	}

	rationale := ""
	if len(parts) >= 3 {
		rationale = strings.Join(parts[2:], " | ")
	}
	return newVerdict(parts[0], confidence, rationale), nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func newVerdict(label string, confidence float64, rationale string) *Verdict {
	v := &Verdict{
		Confidence: model.Clamp01(confidence),
		Rationale:  strings.TrimSpace(rationale),
	}
	if c, err := types.ParseClassification(strings.TrimSpace(label)); err == nil {
		v.Label = c
	}
	return v
}

// ParseQuestions accepts {"questions": [...]}, a JSON array, or one question per line.
// Blank entries are dropped and at most limit questions are kept.
func ParseQuestions(text string, limit int) []string {
	text = strings.TrimSpace(stripCodeFence(text))
	if text == "" {
		return nil
	}

	var raw []string
	switch {
	case strings.HasPrefix(text, "{"):
		var v struct {
			Questions []string `json:"questions"`
		}
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return nil
		}
		raw = v.Questions
	case strings.HasPrefix(text, "["):
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return nil
		}
	default:
		raw = strings.Split(text, "\n")
	}

	var questions []string
	for _, q := range raw {
		q = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(q), "-*•0123456789.) "))
		if q == "" {
			continue
		}
		questions = append(questions, q)
		if len(questions) == limit {
			break
		}
	}
	return questions
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(text), "```")
}
