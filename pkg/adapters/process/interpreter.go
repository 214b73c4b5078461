// Package process provides a ports.Interpreter backed by a local command.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/hexcast/internal/logging"
	"github.com/aretw0/hexcast/pkg/ports"
)

// ErrEmptyOutput is returned when the command exits cleanly without output.
var ErrEmptyOutput = errors.New("interpreter command produced no output")

// Interpreter runs a fixed command once per interpretation.
//
// The command and its arguments are configured up front and never built from
// request data. The request is written to stdin as JSON and also exposed as
// HEXCAST_* environment variables. Stdout is the interpretation: either plain
// text or {"interpretation": "..."}. Any other output is taken verbatim.
type Interpreter struct {
	command string
	args    []string
	dir     string
	env     []string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithDir sets the working directory of the command.
func WithDir(dir string) Option {
	return func(p *Interpreter) {
		p.dir = dir
	}
}

// WithEnv adds KEY=VALUE pairs to the command environment.
func WithEnv(kv ...string) Option {
	return func(p *Interpreter) {
		p.env = append(p.env, kv...)
	}
}

// WithTimeout bounds a single run. Zero means only the caller context applies.
func WithTimeout(d time.Duration) Option {
	return func(p *Interpreter) {
		p.timeout = d
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Interpreter) {
		p.logger = logger
	}
}

// New creates an interpreter that executes command with args.
func New(command string, args []string, opts ...Option) *Interpreter {
	p := &Interpreter{
		command: command,
		args:    args,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ ports.Interpreter = (*Interpreter)(nil)

// Interpret runs the command and returns its trimmed stdout.
func (p *Interpreter) Interpret(ctx context.Context, req ports.InterpretationRequest) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	input, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal interpretation request: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	cmd.Dir = p.dir
	cmd.Env = append(append(cmd.Environ(), p.env...), requestEnv(req)...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	p.logger.Debug("Interpreter command finished",
		"command", p.command,
		"hexagram", req.Hexagram,
		"duration", time.Since(start),
		"ok", err == nil,
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("interpreter command %s: %w", p.command, ctxErr)
		}
		return "", fmt.Errorf("interpreter command %s failed: %w: %s", p.command, err, strings.TrimSpace(stderr.String()))
	}

	return parseOutput(stdout.Bytes())
}

// requestEnv exposes the request as environment variables so simple shell
// scripts need not parse JSON.
func requestEnv(req ports.InterpretationRequest) []string {
	changing := make([]string, len(req.Changing))
	for i, c := range req.Changing {
		changing[i] = strconv.Itoa(c)
	}
	return []string{
		"HEXCAST_HEXAGRAM=" + strconv.Itoa(req.Hexagram),
		"HEXCAST_RESULTING=" + strconv.Itoa(req.Resulting),
		"HEXCAST_CHANGING=" + strings.Join(changing, ","),
		"HEXCAST_INTENTION=" + req.Intention,
		"HEXCAST_LOCALE=" + req.Locale,
	}
}

// parseOutput returns the "interpretation" field of a JSON object, or the
// trimmed output itself when it is not such an object.
func parseOutput(raw []byte) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", ErrEmptyOutput
	}
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var out struct {
			Interpretation string `json:"interpretation"`
		}
		if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
			if text := strings.TrimSpace(out.Interpretation); text != "" {
				return text, nil
			}
		}
	}
	return trimmed, nil
}
