package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/aretw0/flow/pkg/runtime"
)

// Name is the name the Runner is registered under.
const Name = "process"

// ErrToolNotRegistered is returned for tools missing from the allow-list.
var ErrToolNotRegistered = errors.New("process tool not registered")

// DefaultGracePeriod is how long a cancelled process may take to exit after
// the interrupt before it is killed.
const DefaultGracePeriod = 5 * time.Second

// Runner is an Implementation executing local processes for Process/Exec
// nodes. It follows a strict registry pattern (allow-listing).
type Runner struct {
	registry map[string]ToolConfig
	baseDir  string
	grace    time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithTools populates the allow-list from a loaded config.
func WithTools(tools map[string]ToolConfig) RunnerOption {
	return func(r *Runner) {
		for name, tool := range tools {
			tool.Name = name
			r.registry[name] = tool
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.grace = d
	}
}

// NewRunner creates a new process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]ToolConfig),
		grace:    DefaultGracePeriod,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = ToolConfig{Name: name, Command: command, Args: args}
}

// Name implements runtime.Implementation.
func (r *Runner) Name() string { return Name }

type execState struct {
	result any
}

// Install implements runtime.Implementation for Exec nodes.
func (r *Runner) Install(node runtime.Node, s *runtime.Scope) (bool, error) {
	n, ok := node.(*Exec)
	if !ok {
		return false, nil
	}
	if _, ok := r.registry[n.Tool]; !ok {
		return true, fmt.Errorf("%w: %s", ErrToolNotRegistered, n.Tool)
	}

	args, err := s.Input(n.Args)
	if err != nil {
		return true, err
	}
	out, err := s.Signal(n.Out)
	if err != nil {
		return true, err
	}
	failed, err := s.Signal(n.Failed)
	if err != nil {
		return true, err
	}
	st := runtime.State(s, n, func() *execState { return &execState{} })

	if err := s.Provide(n.Result, func() (any, error) {
		return st.result, nil
	}); err != nil {
		return true, err
	}

	return true, s.On(n, n.In, func() error {
		var in map[string]any
		if args != nil {
			v, err := args.Get()
			if err != nil {
				return err
			}
			if err := s.Decode(v, &in); err != nil {
				return fmt.Errorf("%s args: %w", n.Tool, err)
			}
		}
		res, err := r.Execute(s.Context(), n.Tool, in)
		if err != nil {
			s.Logger().Warn("process failed", "tool", n.Tool, "error", err)
			if failed == nil {
				return err
			}
			st.result = err.Error()
			return failed.Emit()
		}
		st.result = res
		return out.Emit()
	})
}

// Execute runs the registered tool with args passed as FLOW_ARG_<KEY>
// environment variables, never as command flags. Output that parses as a
// JSON object or array is returned decoded, anything else as trimmed text.
func (r *Runner) Execute(ctx context.Context, tool string, args map[string]any) (any, error) {
	proc, ok := r.registry[tool]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotRegistered, tool)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = r.grace

	env := cmd.Environ()
	for k, v := range proc.Environment {
		env = append(env, k+"="+v)
	}
	for k, v := range args {
		env = append(env, fmt.Sprintf("FLOW_ARG_%s=%s", strings.ToUpper(k), envValue(v)))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", err, ctxErr)
		}
		return nil, fmt.Errorf("%s: execution failed: %w. Stderr: %s", tool, err, strings.TrimSpace(stderr.String()))
	}

	trimmed := strings.TrimSpace(stdout.String())
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded, nil
		}
	}
	return trimmed, nil
}

// envValue renders primitives as text and anything else as JSON.
func envValue(v any) string {
	switch v.(type) {
	case string, int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
