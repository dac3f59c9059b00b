package capsule

import (
	"fmt"
	"strconv"
	"strings"
)

// Generation stages. Module stages carry their zero-based index and are
// serialized as "module_<i>".
const (
	StageOutline    = "outline"
	StageFinalizing = "finalizing"
	StageCompleted  = "completed"
)

// ModuleStage renders the stage name for the i-th module.
func ModuleStage(i int) string {
	return fmt.Sprintf("module_%d", i)
}

// ParseModuleStage extracts the module index from a "module_<i>" stage name.
func ParseModuleStage(stage string) (int, bool) {
	rest, ok := strings.CutPrefix(stage, "module_")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}
