// Package builder runs the external static site generator.
package builder

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/logger"
)

// Runner executes one command in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir string, argv []string) (output []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Builder invokes the site build command. Every invocation, whoever the
// caller, goes through one mutex so builds never overlap.
type Builder struct {
	dir     string
	argv    []string
	runner  Runner
	limiter *rate.Limiter

	mu     sync.Mutex
	builds int

	buildLog *zap.SugaredLogger
}

// New parses command (shell quoting rules, no shell involved) to be run in
// dir. maxPerMinute paces Rebuild; 0 means unlimited.
func New(dir, command string, maxPerMinute int, runner Runner) (*Builder, error) {
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, errors.WrapConfig(err, "invalid build_command %q", command)
	}
	if len(argv) == 0 {
		return nil, errors.NewConfigError("build_command is empty")
	}
	if runner == nil {
		runner = ExecRunner{}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if maxPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(maxPerMinute)/60.0), 1)
	}

	return &Builder{
		dir:      dir,
		argv:     argv,
		runner:   runner,
		limiter:  limiter,
		buildLog: logger.AddBuildSymbol(logger.ComponentLogger("builder")),
	}, nil
}

// Build runs the build command once and blocks until it exits.
// A non-zero exit is an errors.ErrBuild carrying the command output.
func (b *Builder) Build(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	out, err := b.runner.Run(ctx, b.dir, b.argv)
	b.builds++
	elapsed := time.Since(start)
	output := strings.TrimSpace(string(out))

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return errors.WithHintf(
				errors.WrapBuild(err, "%s not found", b.argv[0]),
				"install %s or set build_command in emile.toml", b.argv[0],
			)
		}
		b.buildLog.Errorw("Build failed",
			logger.FieldDurationMS, elapsed.Milliseconds(),
			logger.FieldError, err)
		return errors.NewBuildError(output, "%s failed: %v", strings.Join(b.argv, " "), err)
	}

	b.buildLog.Infow("Site built", logger.FieldDurationMS, elapsed.Milliseconds())
	if logger.ShouldLogTrace(logger.Verbosity) && output != "" {
		b.buildLog.Debugw("Build output", "output", output)
	}
	return nil
}

// Rebuild is Build paced by max_rebuilds_per_minute. It waits for its turn
// rather than dropping the request, so the last change is always built.
func (b *Builder) Rebuild(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "waiting for rebuild slot")
	}
	return b.Build(ctx)
}

// Builds returns how many times the build command ran.
func (b *Builder) Builds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builds
}

// Command returns the parsed build command.
func (b *Builder) Command() []string {
	return append([]string(nil), b.argv...)
}
