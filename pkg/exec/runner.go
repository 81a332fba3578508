// SPDX-License-Identifier: Apache-2.0

// Package exec runs code blocks extracted from chat messages on behalf of
// the executor role. A non-zero exit status is a conversation outcome, not
// an error: it is reported to the caller so the reply can carry the
// "exitcode: N" line the speaker dispatcher routes on.
package exec

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/colloquyhq/colloquy/pkg/errors"
)

// Block is one fenced code block with its language tag.
type Block struct {
	Lang string
	Code string
}

// ExtractBlocks returns the fenced code blocks in text, in order of
// appearance.
func ExtractBlocks(text string) []Block {
	var blocks []Block
	var current *Block

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if current == nil {
				current = &Block{Lang: strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))}
			} else {
				current.Code = strings.TrimSuffix(current.Code, "\n")
				blocks = append(blocks, *current)
				current = nil
			}
			continue
		}
		if current != nil {
			current.Code += line + "\n"
		}
	}
	return blocks
}

// Runner executes code blocks in a work directory.
type Runner struct {
	// WorkDir is created on first use; extracted code is written there.
	WorkDir string

	// Sandbox requests isolated execution. No isolation backend ships with
	// this runner, so enabling it refuses to run rather than pretending.
	Sandbox bool

	// Timeout bounds a single execution. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout bounds code execution when the runner has none set.
const DefaultTimeout = 60 * time.Second

// NewRunner creates a runner rooted at workDir.
func NewRunner(workDir string, sandbox bool) *Runner {
	if workDir == "" {
		workDir = "code"
	}
	return &Runner{WorkDir: workDir, Sandbox: sandbox}
}

// Run executes one code block and returns its exit code and combined
// output. The returned error is non-nil only when the block could not be
// run at all (unsupported language, missing interpreter, unwritable work
// dir); a failing script is exit code plus output, with a nil error.
func (r *Runner) Run(ctx context.Context, lang, source string) (int, string, error) {
	if r.Sandbox {
		return 0, "", errors.New(errors.CodeExec,
			"sandboxed execution requested but no isolation backend is available; disable the sandbox toggle or run inside a container", nil).
			WithContext("work_dir", r.WorkDir)
	}

	interpreter, ext, err := interpreterFor(lang)
	if err != nil {
		return 0, "", err
	}

	if err := os.MkdirAll(r.WorkDir, 0o755); err != nil {
		return 0, "", errors.New(errors.CodeExec, "create work dir", err).
			WithContext("work_dir", r.WorkDir)
	}

	name := fmt.Sprintf("snippet_%d%s", time.Now().UnixNano(), ext)
	path := filepath.Join(r.WorkDir, name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return 0, "", errors.New(errors.CodeExec, "write code block", err).
			WithContext("path", path)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := osexec.CommandContext(runCtx, interpreter, name)
	cmd.Dir = r.WorkDir
	output, runErr := cmd.CombinedOutput()

	if runErr == nil {
		return 0, string(output), nil
	}

	var exitErr *osexec.ExitError
	if stderrors.As(runErr, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed, most likely by the timeout.
			code = 1
		}
		return code, string(output), nil
	}

	return 0, "", errors.New(errors.CodeExec, fmt.Sprintf("run %s block", lang), runErr).
		WithContext("interpreter", interpreter)
}

// interpreterFor maps a fence language tag to an interpreter and file
// extension.
func interpreterFor(lang string) (string, string, error) {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "python", "python3", "py":
		return "python3", ".py", nil
	case "sh", "shell":
		return "sh", ".sh", nil
	case "bash":
		return "bash", ".sh", nil
	default:
		return "", "", errors.New(errors.CodeExec, fmt.Sprintf("unsupported code block language %q", lang), nil)
	}
}
