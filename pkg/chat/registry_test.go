package chat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/colloquyhq/colloquy/pkg/errors"
)

func TestNewRegistryDefaults(t *testing.T) {
	registry := NewRegistry()

	defs := registry.Definitions()
	if len(defs) != 5 {
		t.Fatalf("Definitions() returned %d roles, want 5", len(defs))
	}

	wantOrder := Roles()
	for i, def := range defs {
		if def.Role != wantOrder[i] {
			t.Errorf("Definitions()[%d].Role = %s, want %s", i, def.Role, wantOrder[i])
		}
		if def.Instruction == "" {
			t.Errorf("role %s has empty instruction", def.Role)
		}
	}

	admin, ok := registry.Definition(RoleAdmin)
	if !ok || !admin.RequiresHuman {
		t.Error("admin should require a human")
	}

	executor, ok := registry.Definition(RoleExecutor)
	if !ok || !executor.CanExecuteCode {
		t.Fatal("executor should be able to execute code")
	}
	if executor.Execution == nil {
		t.Fatal("executor should carry execution settings")
	}
	if executor.Execution.WorkDir != "code" {
		t.Errorf("default work dir = %q, want %q", executor.Execution.WorkDir, "code")
	}
	if executor.Execution.MaxHistoryMessages != 3 {
		t.Errorf("default history window = %d, want 3", executor.Execution.MaxHistoryMessages)
	}
	if executor.Execution.Sandbox {
		t.Error("sandbox should default to off")
	}

	for _, role := range []Role{RolePlanner, RoleEngineer, RoleReviewer} {
		def, _ := registry.Definition(role)
		if def.RequiresHuman || def.CanExecuteCode {
			t.Errorf("role %s should be a plain model-backed role", role)
		}
	}
}

func TestNewRegistryInstructionsCarrySentinels(t *testing.T) {
	registry := NewRegistry()

	checks := []struct {
		role   Role
		phrase string
	}{
		{RolePlanner, `"Dear engineer"`},
		{RolePlanner, `"Dear user"`},
		{RoleEngineer, `"Dear reviewer"`},
		{RoleEngineer, `"Dear executor"`},
		{RoleReviewer, `"code: APPROVED" or "code: REJECTED"`},
		{RoleExecutor, `"Dear planner"`},
		{RoleExecutor, `"Dear engineer"`},
	}
	for _, check := range checks {
		def, _ := registry.Definition(check.role)
		if !strings.Contains(def.Instruction, check.phrase) {
			t.Errorf("%s instruction is missing %s", check.role, check.phrase)
		}
	}
}

func TestNewRegistryOptions(t *testing.T) {
	registry := NewRegistry(
		WithWorkDir("/tmp/scratch"),
		WithSandbox(true),
		WithMaxHistoryMessages(5),
		WithInstructionOverrides(map[Role]string{
			RolePlanner: "custom planner instruction",
		}),
	)

	executor, _ := registry.Definition(RoleExecutor)
	if executor.Execution.WorkDir != "/tmp/scratch" {
		t.Errorf("work dir = %q, want /tmp/scratch", executor.Execution.WorkDir)
	}
	if !executor.Execution.Sandbox {
		t.Error("sandbox should be enabled")
	}
	if executor.Execution.MaxHistoryMessages != 5 {
		t.Errorf("history window = %d, want 5", executor.Execution.MaxHistoryMessages)
	}

	planner, _ := registry.Definition(RolePlanner)
	if planner.Instruction != "custom planner instruction" {
		t.Errorf("planner instruction = %q, want override", planner.Instruction)
	}

	// Empty override text leaves the default in place.
	registry = NewRegistry(WithInstructionOverrides(map[Role]string{RoleEngineer: ""}))
	engineer, _ := registry.Definition(RoleEngineer)
	if engineer.Instruction == "" {
		t.Error("empty override should not erase the default instruction")
	}
}

func TestLoadInstructionOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	content := "Planner: plan differently\nReviewer: review differently\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	overrides, err := LoadInstructionOverrides(path)
	if err != nil {
		t.Fatalf("LoadInstructionOverrides() error = %v", err)
	}
	if overrides[RolePlanner] != "plan differently" {
		t.Errorf("planner override = %q", overrides[RolePlanner])
	}
	if overrides[RoleReviewer] != "review differently" {
		t.Errorf("reviewer override = %q", overrides[RoleReviewer])
	}
}

func TestLoadInstructionOverridesErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadInstructionOverrides(filepath.Join(dir, "nope.yaml"))
		if !errors.IsCode(err, errors.CodeIO) {
			t.Errorf("error = %v, want code %s", err, errors.CodeIO)
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		path := filepath.Join(dir, "bad-role.yaml")
		if err := os.WriteFile(path, []byte("Oracle: mystic instruction\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadInstructionOverrides(path)
		if !errors.IsCode(err, errors.CodeConfig) {
			t.Errorf("error = %v, want code %s", err, errors.CodeConfig)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad-syntax.yaml")
		if err := os.WriteFile(path, []byte("Planner: [unterminated\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadInstructionOverrides(path)
		if !errors.IsCode(err, errors.CodeConfig) {
			t.Errorf("error = %v, want code %s", err, errors.CodeConfig)
		}
	})
}
