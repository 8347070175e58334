package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
)

func TestSafeBaselineName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "release-1", want: "release-1"},
		{name: "spaces and punctuation", input: "  Q3 plan / v2  ", want: "Q3_plan_v2"},
		{name: "path traversal", input: "../../etc/passwd", want: "etc_passwd"},
		{name: "only symbols", input: "///", wantErr: true},
		{name: "empty", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := model.SafeBaselineName(tt.input)
			if tt.wantErr {
				gt.Error(t, err)
				gt.Error(t, err).Is(model.ErrInvalidBaselineName)
				return
			}
			gt.NoError(t, err)
			gt.Value(t, got).Equal(tt.want)
		})
	}
}

func TestComparisonSummary_HasDrift(t *testing.T) {
	gt.B(t, model.ComparisonSummary{Unchanged: 3}.HasDrift()).False()
	gt.B(t, model.ComparisonSummary{Unchanged: 3, Removed: 1}.HasDrift()).True()
	gt.B(t, model.ComparisonSummary{Added: 1}.HasDrift()).True()
}
