package capsule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jordan/capsule-engine/internal/types"
)

func TestModuleStageRoundTrip(t *testing.T) {
	for _, i := range []int{0, 1, 7, 42} {
		idx, ok := ParseModuleStage(ModuleStage(i))
		assert.True(t, ok)
		assert.Equal(t, i, idx)
	}
}

func TestParseModuleStageRejectsNonModuleStages(t *testing.T) {
	for _, stage := range []string{StageOutline, StageFinalizing, StageCompleted, "module_", "module_-1", "module_x", ""} {
		_, ok := ParseModuleStage(stage)
		assert.False(t, ok, "stage %q", stage)
	}
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name   string
		status types.CapsuleStatus
		job    *types.GenerationJob
		want   int
	}{
		{"pending without job", types.CapsulePending, nil, 0},
		{"outline stage", types.CapsuleGeneratingOutline, &types.GenerationJob{Stage: StageOutline}, 10},
		{
			"half the modules done",
			types.CapsuleGeneratingContent,
			&types.GenerationJob{Stage: ModuleStage(2), ModulesGenerated: 2, TotalModules: 4},
			55,
		},
		{
			"content stage before totals known",
			types.CapsuleGeneratingContent,
			&types.GenerationJob{Stage: StageFinalizing},
			10,
		},
		{"completed", types.CapsuleCompleted, &types.GenerationJob{Stage: StageCompleted}, 100},
		{"failed reports zero", types.CapsuleFailed, &types.GenerationJob{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := &types.Capsule{Status: tt.status}
			got := ComputeProgress(cp, tt.job)
			assert.Equal(t, tt.want, got.Percent)
		})
	}
}
