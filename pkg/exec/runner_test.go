package exec

import (
	"context"
	"strings"
	"testing"

	"github.com/colloquyhq/colloquy/pkg/errors"
)

func TestExtractBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Block
	}{
		{
			name: "no blocks",
			text: "just prose, nothing to run",
			want: nil,
		},
		{
			name: "single python block",
			text: "here you go:\n```python\nprint('hi')\n```\nDear executor.",
			want: []Block{{Lang: "python", Code: "print('hi')"}},
		},
		{
			name: "bare fence has empty language",
			text: "```\necho hi\n```",
			want: []Block{{Lang: "", Code: "echo hi"}},
		},
		{
			name: "multiple blocks in order",
			text: "```sh\necho one\n```\nand then\n```python\nprint(2)\n```",
			want: []Block{
				{Lang: "sh", Code: "echo one"},
				{Lang: "python", Code: "print(2)"},
			},
		},
		{
			name: "multiline body preserved",
			text: "```python\na = 1\nb = 2\nprint(a + b)\n```",
			want: []Block{{Lang: "python", Code: "a = 1\nb = 2\nprint(a + b)"}},
		},
		{
			name: "unterminated fence yields nothing",
			text: "```python\nprint('hi')",
			want: nil,
		},
		{
			name: "indented fence still counts",
			text: "  ```sh\n  echo hi\n  ```",
			want: []Block{{Lang: "sh", Code: "  echo hi"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractBlocks(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractBlocks() returned %d blocks, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("block %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRunnerShellSuccess(t *testing.T) {
	runner := NewRunner(t.TempDir(), false)

	code, output, err := runner.Run(context.Background(), "sh", "echo hello")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(output, "hello") {
		t.Errorf("output = %q, want it to contain hello", output)
	}
}

func TestRunnerShellFailureIsNotAnError(t *testing.T) {
	runner := NewRunner(t.TempDir(), false)

	code, output, err := runner.Run(context.Background(), "sh", "echo boom >&2\nexit 3")
	if err != nil {
		t.Fatalf("Run() error = %v; a failing script is an outcome, not an error", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	if !strings.Contains(output, "boom") {
		t.Errorf("output = %q, want combined stderr", output)
	}
}

func TestRunnerUnsupportedLanguage(t *testing.T) {
	runner := NewRunner(t.TempDir(), false)

	_, _, err := runner.Run(context.Background(), "cobol", "DISPLAY 'HI'.")
	if !errors.IsCode(err, errors.CodeExec) {
		t.Errorf("Run() error = %v, want code %s", err, errors.CodeExec)
	}
}

func TestRunnerSandboxRefusesWithoutBackend(t *testing.T) {
	runner := NewRunner(t.TempDir(), true)

	_, _, err := runner.Run(context.Background(), "sh", "echo hi")
	if !errors.IsCode(err, errors.CodeExec) {
		t.Errorf("Run() error = %v, want code %s", err, errors.CodeExec)
	}
}

func TestRunnerLanguageAliases(t *testing.T) {
	tests := []struct {
		lang        string
		interpreter string
		ext         string
	}{
		{"python", "python3", ".py"},
		{"python3", "python3", ".py"},
		{"py", "python3", ".py"},
		{"PYTHON", "python3", ".py"},
		{"sh", "sh", ".sh"},
		{"shell", "sh", ".sh"},
		{"bash", "bash", ".sh"},
		{" sh ", "sh", ".sh"},
	}
	for _, tt := range tests {
		interpreter, ext, err := interpreterFor(tt.lang)
		if err != nil {
			t.Errorf("interpreterFor(%q) error = %v", tt.lang, err)
			continue
		}
		if interpreter != tt.interpreter || ext != tt.ext {
			t.Errorf("interpreterFor(%q) = %s, %s; want %s, %s", tt.lang, interpreter, ext, tt.interpreter, tt.ext)
		}
	}

	if _, _, err := interpreterFor(""); err == nil {
		t.Error("interpreterFor(\"\") should fail")
	}
}

func TestRunnerCreatesWorkDir(t *testing.T) {
	dir := t.TempDir() + "/nested/work"
	runner := NewRunner(dir, false)

	code, _, err := runner.Run(context.Background(), "sh", "pwd")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}
