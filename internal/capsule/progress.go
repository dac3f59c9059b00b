package capsule

import "github.com/jordan/capsule-engine/internal/types"

// Progress summarizes how far a generation run has come, for polling
// clients.
type Progress struct {
	Status       types.CapsuleStatus `json:"status"`
	Percent      int                 `json:"percent"`
	Stage        string              `json:"stage,omitempty"`
	ModulesDone  int                 `json:"modules_done"`
	TotalModules int                 `json:"total_modules"`
	Error        *string             `json:"error,omitempty"`
}

// The outline stage accounts for a flat 10% of reported progress; module
// generation fills the remaining 90% proportionally.
const outlineProgressShare = 10

// ComputeProgress derives a Progress snapshot from a capsule and its latest
// job. job may be nil when generation was never started.
func ComputeProgress(cp *types.Capsule, job *types.GenerationJob) Progress {
	p := Progress{Status: cp.Status, Error: cp.ErrorMessage}
	if job != nil {
		p.Stage = job.Stage
		p.ModulesDone = job.ModulesGenerated
		p.TotalModules = job.TotalModules
	}

	switch cp.Status {
	case types.CapsuleCompleted:
		p.Percent = 100
	case types.CapsuleGeneratingOutline:
		p.Percent = outlineProgressShare
	case types.CapsuleGeneratingContent:
		p.Percent = outlineProgressShare
		if job != nil && job.TotalModules > 0 {
			p.Percent += (100 - outlineProgressShare) * job.ModulesGenerated / job.TotalModules
		}
	}
	return p
}
