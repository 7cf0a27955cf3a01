package engine

import (
	"os"
	"time"

	"github.com/alexisbeaulieu97/synapse/internal/bridge"
	"github.com/alexisbeaulieu97/synapse/internal/node"
)

// replayFrame holds a back-stepped activation awaiting its re-execution.
type replayFrame struct {
	frame Frame
}

// gates enforces the interactive controls at the top of every engine
// iteration. It reports whether the run should stop.
func (e *Engine) gates() (bool, error) {
	if e.flag(bridge.KeyShutdown) {
		return true, nil
	}
	if e.flag(bridge.KeyYield) {
		return true, nil
	}
	if e.stopFilePresent() {
		e.logger.Info("stop file detected, shutting down")
		e.bridge.Set(bridge.KeyShutdown, true, "engine")
		return true, nil
	}

	// Pause: block until released. Shutdown and the stop file still win.
	for e.flag(bridge.KeyPause) || e.pauseFilePresent() {
		if e.flag(bridge.KeyShutdown) || e.stopFilePresent() {
			return true, nil
		}
		time.Sleep(25 * time.Millisecond)
	}

	// Back-step: restore the snapshot taken before the last activation and
	// arm it for re-execution on the next step.
	if e.flag(bridge.KeyStepBack) {
		e.bridge.Delete(bridge.KeyStepBack)
		if frame, ok := e.history.Pop(); ok {
			e.bridge.Restore(frame.Snapshot)
			e.replay = &replayFrame{frame: frame}
			if prev, ok := e.history.Peek(); ok {
				e.currentNodeID = prev.NodeID
				e.bridge.Set(bridge.KeyNextNode, prev.NodeID, "engine")
			}
			e.logger.Info("back-step", "replaying", frame.NodeID)
		}
	}

	if e.replay != nil {
		stop, err := e.stepGate()
		if stop {
			return true, nil
		}
		if err != nil {
			// Another back-step arrived; handle it on the next iteration.
			return false, nil
		}
		r := e.replay
		e.replay = nil
		if n := e.nodes[r.frame.NodeID]; n != nil {
			e.activate(n, node.Pulse{
				Trigger: r.frame.Trigger,
				Inputs:  r.frame.Inputs,
				Stack:   r.frame.Stack,
			})
		}
	}

	return false, nil
}

// stepGate blocks before each activation while step mode is armed, consuming
// exactly one step trigger per node.
func (e *Engine) stepGate() (bool, error) {
	if !e.flag(bridge.KeyStepMode) {
		return false, nil
	}

	for {
		if e.flag(bridge.KeyShutdown) || e.stopFilePresent() {
			return true, nil
		}
		if e.flag(bridge.KeyStepTrigger) {
			e.bridge.Delete(bridge.KeyStepTrigger)
			return false, nil
		}
		if e.flag(bridge.KeyStepBack) {
			// Let the main gate handle the restore; abort this activation.
			return false, errStepInterrupted
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// errStepInterrupted aborts one pending fan-out when the user steps backward
// while the engine waits for a forward step. It is handled inside the engine
// and never escapes Run.
var errStepInterrupted = errInterrupted{}

type errInterrupted struct{}

func (errInterrupted) Error() string { return "step interrupted" }

func (e *Engine) flag(key string) bool {
	v, _ := e.bridge.Get(key).(bool)
	return v
}

func (e *Engine) stopFilePresent() bool {
	path, _ := e.bridge.Get(bridge.KeyStopFile).(string)
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (e *Engine) pauseFilePresent() bool {
	path, _ := e.bridge.Get(bridge.KeyPauseFile).(string)
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// skipNext consumes the skip flag; a skipped activation traces as started and
// stopped without running its handler.
func (e *Engine) skipNext() bool {
	if !e.flag(bridge.KeySkipNext) {
		return false
	}
	e.bridge.Delete(bridge.KeySkipNext)
	return true
}
