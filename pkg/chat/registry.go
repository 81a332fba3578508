package chat

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/colloquyhq/colloquy/pkg/errors"
)

// Instruction texts for the five roles. The sentinel conventions embedded
// here ("Dear engineer", "code: APPROVED", ...) are load-bearing: the
// speaker dispatcher routes on them.
const (
	adminInstruction = "A human admin. Reviews the final result when the planner asks by saying \"Dear user\"."

	plannerInstruction = `- Suggest a plan involving an engineer who writes code, a reviewer who checks code, and an executor who runs code.
- Explain the plan clearly, specifying which step is performed by each participant.
- Do not write code; ask the engineer to do this by saying "Dear engineer" before the instructions.
- Do not review code; the engineer will pass this task to the reviewer.
- Do not run code; the engineer will do this when testing code.
- After the plan has executed successfully, ask the user to check the result by saying "Dear user".`

	engineerInstruction = `- Follow an approved plan.
- Write Python/Shell code to solve tasks.
- Wrap the code in a code block that specifies the script type.
- Write safe and secure code. Validate inputs, avoid infinite loops, and expose no sensitive data.
- Include error handling where necessary. Code should be robust and handle edge cases.
- Do not suggest incomplete code that requires others to modify it.
- Do not use a code block if it is not intended to be executed by the executor.
- Do not include multiple code blocks in one response.
- Do not ask others to copy and paste the result.
- Check the execution result returned by the executor.
- When ready to test the code, ask the reviewer to check it by saying "Dear reviewer".
- Implement any suggestions made by the reviewer. If the reviewer asks for changes, output the full code again.
- After the reviewer approves the code, test it by running it. Do this by saying "Dear executor".
- If the result indicates an error, fix the error and output the full code again.
- Suggest the full code instead of partial code or code changes.
- If the error cannot be fixed, or the task is not solved even after the code runs successfully, analyze the problem, revisit your assumptions, collect additional info, and think of a different approach.
- Document the code where necessary.
- For any function definitions, add unit tests at the end of the code, covering error cases too.
- Keep mock data separate from the business logic so it is easy to switch to production data.`

	reviewerInstruction = `- You are a reviewer.
- Follow an approved plan.
- Review the code written by the engineer.
- Do not write code.
- Follow strict style rules for code review.
- Make sure function definitions have unit tests at the end of the code.
- Always finish feedback with "code: APPROVED" or "code: REJECTED" depending on your feedback.
- If the code is incorrect, provide feedback to the engineer and address the engineer with "Dear engineer".
- Reject code until you have no further improvement comments.
- The engineer will fix the code and output the code again.`

	executorInstruction = `- Follow an approved plan.
- Run the code written by the engineer.
- Do not write or review code.
- Execute the code and return the result to the engineer.
- If the code execution fails, provide the error message to the engineer by saying "Dear engineer".
- Run both the code and the unit tests; all should return the expected results.
- If the code execution is successful, return the result to the planner by saying "Dear planner".`
)

// ExecutionSettings configures the code-running capability of a role.
type ExecutionSettings struct {
	// MaxHistoryMessages bounds how far back the executor scans for a
	// code block.
	MaxHistoryMessages int

	// WorkDir is where extracted code blocks are written and run.
	WorkDir string

	// Sandbox toggles isolated execution. When false, generated code runs
	// directly on the host.
	Sandbox bool
}

// RoleDefinition describes one participant: its instruction text and its
// capabilities. Created once at startup; immutable for process lifetime.
type RoleDefinition struct {
	Role           Role
	Instruction    string
	RequiresHuman  bool
	CanExecuteCode bool
	Execution      *ExecutionSettings
}

// Registry is the immutable table of the five role definitions. It is
// constructed once and passed explicitly to the chat runtime; there is no
// process-wide mutable registry.
type Registry struct {
	defs map[Role]RoleDefinition
}

// RegistryOption configures registry construction.
type RegistryOption func(*registrySettings)

type registrySettings struct {
	workDir            string
	sandbox            bool
	maxHistoryMessages int
	overrides          map[Role]string
}

// WithWorkDir sets the executor work directory.
func WithWorkDir(dir string) RegistryOption {
	return func(s *registrySettings) { s.workDir = dir }
}

// WithSandbox toggles sandboxed code execution for the executor.
func WithSandbox(enabled bool) RegistryOption {
	return func(s *registrySettings) { s.sandbox = enabled }
}

// WithMaxHistoryMessages bounds the executor's code-block scan.
func WithMaxHistoryMessages(n int) RegistryOption {
	return func(s *registrySettings) { s.maxHistoryMessages = n }
}

// WithInstructionOverrides replaces instruction texts for selected roles.
func WithInstructionOverrides(overrides map[Role]string) RegistryOption {
	return func(s *registrySettings) {
		if s.overrides == nil {
			s.overrides = make(map[Role]string)
		}
		for role, text := range overrides {
			s.overrides[role] = text
		}
	}
}

// NewRegistry builds the fixed five-role table.
func NewRegistry(opts ...RegistryOption) *Registry {
	settings := registrySettings{
		workDir:            "code",
		maxHistoryMessages: 3,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	defs := map[Role]RoleDefinition{
		RoleAdmin: {
			Role:          RoleAdmin,
			Instruction:   adminInstruction,
			RequiresHuman: true,
		},
		RolePlanner: {
			Role:        RolePlanner,
			Instruction: plannerInstruction,
		},
		RoleEngineer: {
			Role:        RoleEngineer,
			Instruction: engineerInstruction,
		},
		RoleReviewer: {
			Role:        RoleReviewer,
			Instruction: reviewerInstruction,
		},
		RoleExecutor: {
			Role:           RoleExecutor,
			Instruction:    executorInstruction,
			CanExecuteCode: true,
			Execution: &ExecutionSettings{
				MaxHistoryMessages: settings.maxHistoryMessages,
				WorkDir:            settings.workDir,
				Sandbox:            settings.sandbox,
			},
		},
	}

	for role, text := range settings.overrides {
		if def, ok := defs[role]; ok && text != "" {
			def.Instruction = text
			defs[role] = def
		}
	}

	return &Registry{defs: defs}
}

// Definition returns the definition for a role.
func (r *Registry) Definition(role Role) (RoleDefinition, bool) {
	def, ok := r.defs[role]
	return def, ok
}

// Definitions returns all five definitions in stable role order.
func (r *Registry) Definitions() []RoleDefinition {
	out := make([]RoleDefinition, 0, len(r.defs))
	for _, role := range Roles() {
		out = append(out, r.defs[role])
	}
	return out
}

// LoadInstructionOverrides reads a YAML file mapping role names to
// replacement instruction texts.
func LoadInstructionOverrides(path string) (map[Role]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeIO, "read instruction overrides", err).
			WithContext("path", path)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(errors.CodeConfig, "parse instruction overrides", err).
			WithContext("path", path)
	}

	overrides := make(map[Role]string, len(raw))
	for name, text := range raw {
		role, err := ParseRole(name)
		if err != nil {
			return nil, errors.New(errors.CodeConfig, fmt.Sprintf("instruction override for unknown role %q", name), nil)
		}
		overrides[role] = text
	}
	return overrides, nil
}
