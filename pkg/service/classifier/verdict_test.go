package classifier_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
	"github.com/secmon-lab/gapcheck/pkg/service/classifier"
)

func TestParseVerdict(t *testing.T) {
	t.Run("pipe format", func(t *testing.T) {
		v, err := classifier.ParseVerdict("  OOTB Match | 0.92 | native Apple Pay support \n")
		gt.NoError(t, err).Required()
		gt.Value(t, v.Label).Equal(types.ClassificationOOTBMatch)
		gt.Number(t, v.Confidence).Equal(0.92)
		gt.Value(t, v.Rationale).Equal("native Apple Pay support")
	})

	t.Run("missing rationale", func(t *testing.T) {
		v, err := classifier.ParseVerdict("Open Question | 0.1")
		gt.NoError(t, err).Required()
		gt.Value(t, v.Label).Equal(types.ClassificationOpenQuestion)
		gt.Value(t, v.Rationale).Equal("")
	})

	t.Run("confidence is clamped", func(t *testing.T) {
		v, err := classifier.ParseVerdict("Partial Match | 1.7 | over")
		gt.NoError(t, err).Required()
		gt.Number(t, v.Confidence).Equal(1.0)
	})

	t.Run("unknown label is dropped", func(t *testing.T) {
		v, err := classifier.ParseVerdict("Maybe | 0.5 | unsure")
		gt.NoError(t, err).Required()
		gt.Value(t, v.Label).Equal(types.Classification(""))
	})

	t.Run("json object in code fence", func(t *testing.T) {
		v, err := classifier.ParseVerdict("```json\n{\"classification\": \"Custom Dev Required\", \"confidence\": 0.45, \"rationale\": \"custom cartridge\"}\n```")
		gt.NoError(t, err).Required()
		gt.Value(t, v.Label).Equal(types.ClassificationCustomDev)
		gt.Number(t, v.Confidence).Equal(0.45)
		gt.Value(t, v.Rationale).Equal("custom cartridge")
	})

	t.Run("malformed answers fail", func(t *testing.T) {
		for _, text := range []string{
			"",
			"OOTB Match",
			"OOTB Match | high | sure",
			`{"classification": "OOTB Match"}`,
			"{not json",
		} {
			_, err := classifier.ParseVerdict(text)
			gt.Error(t, err)
		}
	})

	t.Run("non-finite confidence fails", func(t *testing.T) {
		for _, text := range []string{
			"OOTB Match | NaN | looks covered",
			"OOTB Match | nan | looks covered",
			"Partial Match | Inf | close",
			"Partial Match | -Inf | close",
			"Partial Match | +Infinity | close",
		} {
			_, err := classifier.ParseVerdict(text)
			gt.Error(t, err)
		}
	})
}

func TestParseQuestions(t *testing.T) {
	gt.Value(t, classifier.ParseQuestions("1. Which carriers?\n- What regions?\n\n* Budget?", 5)).
		Equal([]string{"Which carriers?", "What regions?", "Budget?"})
	gt.Value(t, classifier.ParseQuestions(`["a", " ", "b"]`, 5)).Equal([]string{"a", "b"})
	gt.Value(t, classifier.ParseQuestions(`{"questions": ["a", "b", "c"]}`, 2)).Equal([]string{"a", "b"})
	gt.A(t, classifier.ParseQuestions(`{"questions": `, 5)).Length(0)
	gt.A(t, classifier.ParseQuestions("   ", 5)).Length(0)
}
