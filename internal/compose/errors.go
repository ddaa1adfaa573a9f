package compose

import (
	"errors"
	"fmt"
)

// Phase identifies which composition stage a scene failure occurred in.
type Phase string

const (
	PhaseResolve Phase = "resolve"
	PhaseBuild   Phase = "build"
	PhaseRender  Phase = "render"
)

// ErrEmptyTimeline is returned when zero scene clips reach the assembler —
// either the input list was empty or every scene failed and was skipped.
// Reported distinctly from render errors since no encoder was invoked.
var ErrEmptyTimeline = errors.New("timeline is empty: no scene clips to assemble")

// SceneError is a per-scene composition failure. Index is the timeline
// position, SceneID the script-assigned identifier used in filenames and logs.
type SceneError struct {
	Index   int
	SceneID int
	Phase   Phase
	Err     error
}

func (e *SceneError) Error() string {
	return fmt.Sprintf("scene %d (scene_id=%d) failed during %s: %v", e.Index, e.SceneID, e.Phase, e.Err)
}

func (e *SceneError) Unwrap() error {
	return e.Err
}

func sceneErr(index, sceneID int, phase Phase, err error) *SceneError {
	return &SceneError{Index: index, SceneID: sceneID, Phase: phase, Err: err}
}
