package chat

import (
	"context"
	"fmt"

	"github.com/colloquyhq/colloquy/pkg/exec"
)

// CodeRunner executes one code block and reports exit code and combined
// output. *exec.Runner is the production implementation.
type CodeRunner interface {
	Run(ctx context.Context, lang, source string) (int, string, error)
}

// ExecSpeaker is the executor role: it never calls a model. It scans the
// recent transcript for a fenced code block, runs the most recent one,
// and replies with the exit-code report the dispatcher routes on.
type ExecSpeaker struct {
	def    RoleDefinition
	runner CodeRunner
}

// NewExecSpeaker creates the executor speaker. If runner is nil, a local
// runner is built from the definition's execution settings.
func NewExecSpeaker(def RoleDefinition, runner CodeRunner) *ExecSpeaker {
	if runner == nil {
		settings := def.Execution
		if settings == nil {
			settings = &ExecutionSettings{MaxHistoryMessages: 3, WorkDir: "code"}
		}
		runner = exec.NewRunner(settings.WorkDir, settings.Sandbox)
	}
	return &ExecSpeaker{def: def, runner: runner}
}

// Role implements Speaker.
func (e *ExecSpeaker) Role() Role { return e.def.Role }

// Reply implements Speaker.
func (e *ExecSpeaker) Reply(ctx context.Context, transcript *Transcript) (string, error) {
	block, ok := e.latestBlock(transcript)
	if !ok {
		return "exitcode: 1 (execution failed)\nCode output: no executable code block found", nil
	}

	code, output, err := e.runner.Run(ctx, block.Lang, block.Code)
	if err != nil {
		// The runner itself could not start; surface that as a failed
		// execution so the engineer gets routed back in.
		return fmt.Sprintf("exitcode: 1 (execution failed)\nCode output: %v", err), nil
	}

	verdict := "execution succeeded"
	if code != 0 {
		verdict = "execution failed"
	}
	return fmt.Sprintf("exitcode: %d (%s)\nCode output: %s", code, verdict, output), nil
}

// latestBlock finds the most recent code block within the configured
// history window.
func (e *ExecSpeaker) latestBlock(transcript *Transcript) (exec.Block, bool) {
	window := 3
	if e.def.Execution != nil && e.def.Execution.MaxHistoryMessages > 0 {
		window = e.def.Execution.MaxHistoryMessages
	}

	recent := transcript.Tail(window)
	for i := len(recent) - 1; i >= 0; i-- {
		blocks := exec.ExtractBlocks(recent[i].Content)
		if len(blocks) > 0 {
			return blocks[len(blocks)-1], true
		}
	}
	return exec.Block{}, false
}

var _ Speaker = (*ExecSpeaker)(nil)
