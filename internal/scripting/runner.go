// Package scripting drives the app with short sandboxed JavaScript programs.
// A script sees three globals: send(type, fields) dispatches one intent and
// returns the new state, state() returns the current state, and log(...)
// appends to the run's log.
package scripting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/MJE43/playdeck/internal/app"
)

const (
	DefaultTimeout    = 2 * time.Second
	DefaultMaxIntents = 1000
	maxLogs           = 500
)

var (
	ErrTimeout        = errors.New("scripting: timed out")
	ErrTooManyIntents = errors.New("scripting: intent limit reached")
)

// Dispatcher is the part of app.Runtime a script can reach.
type Dispatcher interface {
	Send(ctx context.Context, in app.Intent) (app.Snapshot, error)
	Snapshot() app.Snapshot
}

type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Result summarizes one run. It is returned even when the script fails.
type Result struct {
	Sent     int          `json:"sent"`
	Rejected int          `json:"rejected"`
	Logs     []LogEntry   `json:"logs"`
	Error    string       `json:"error,omitempty"`
	Elapsed  string       `json:"elapsed"`
	State    app.Snapshot `json:"state"`
}

type Options struct {
	Timeout    time.Duration
	MaxIntents int
	Logger     *slog.Logger
}

type Runner struct {
	d          Dispatcher
	timeout    time.Duration
	maxIntents int
	log        *slog.Logger
}

func NewRunner(d Dispatcher, opts Options) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxIntents <= 0 {
		opts.MaxIntents = DefaultMaxIntents
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		d:          d,
		timeout:    opts.Timeout,
		maxIntents: opts.MaxIntents,
		log:        opts.Logger.With("component", "scripting"),
	}
}

// session is one script execution. Every run gets a fresh goja runtime.
type session struct {
	r   *Runner
	ctx context.Context
	vm  *goja.Runtime
	res Result
}

// Run executes source until it returns, throws, or exceeds the timeout.
func (r *Runner) Run(ctx context.Context, source string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	s := &session{r: r, ctx: ctx, vm: goja.New()}
	s.install()

	stop := context.AfterFunc(ctx, func() {
		s.vm.Interrupt("script execution timeout")
	})
	defer stop()

	start := time.Now()
	_, err := s.vm.RunString(source)
	s.res.Elapsed = time.Since(start).String()
	s.res.State = r.d.Snapshot()

	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		} else {
			err = fmt.Errorf("script error: %w", err)
		}
		s.res.Error = err.Error()
		r.log.Debug("script failed", "error", err, "sent", s.res.Sent)
		return s.res, err
	}
	r.log.Debug("script finished", "sent", s.res.Sent, "rejected", s.res.Rejected, "elapsed", s.res.Elapsed)
	return s.res, nil
}

func (s *session) install() {
	vm := s.vm
	vm.Set("log", s.logFn)
	console := vm.NewObject()
	console.Set("log", s.logFn)
	vm.Set("console", console)
	vm.Set("send", s.sendFn)
	vm.Set("state", func(goja.FunctionCall) goja.Value {
		return s.toJS(s.r.d.Snapshot())
	})
	vm.Set("kinds", app.IntentKinds())

	vm.Set("require", goja.Undefined())
	vm.Set("fetch", goja.Undefined())
	vm.Set("XMLHttpRequest", goja.Undefined())
	vm.Set("eval", goja.Undefined())
	vm.Set("Function", goja.Undefined())
}

func (s *session) logFn(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		parts[i] = arg.String()
	}
	if len(s.res.Logs) >= maxLogs {
		s.res.Logs = s.res.Logs[1:]
	}
	s.res.Logs = append(s.res.Logs, LogEntry{Time: time.Now(), Message: strings.Join(parts, " ")})
	return goja.Undefined()
}

// sendFn implements send(type, fields). A rejected intent throws, so scripts
// can try/catch it.
func (s *session) sendFn(call goja.FunctionCall) goja.Value {
	if s.res.Sent+s.res.Rejected >= s.r.maxIntents {
		panic(s.vm.NewGoError(ErrTooManyIntents))
	}

	fields := map[string]any{}
	if arg := call.Argument(1); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
		m, ok := arg.Export().(map[string]any)
		if !ok {
			panic(s.vm.NewTypeError("send: fields must be an object"))
		}
		fields = m
	}
	fields["type"] = call.Argument(0).String()

	in, err := decode(fields)
	if err != nil {
		s.res.Rejected++
		panic(s.vm.NewGoError(err))
	}
	snap, err := s.r.d.Send(s.ctx, in)
	if err != nil {
		s.res.Rejected++
		panic(s.vm.NewGoError(err))
	}
	s.res.Sent++
	return s.toJS(snap)
}

func decode(fields map[string]any) (app.Intent, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", app.ErrInvalidIntent, err)
	}
	return app.DecodeExternalIntent(raw)
}

// toJS hands the script the snapshot's JSON shape, so field names match
// what the HTTP API returns.
func (s *session) toJS(snap app.Snapshot) goja.Value {
	raw, err := json.Marshal(snap)
	if err != nil {
		panic(s.vm.NewGoError(err))
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(s.vm.NewGoError(err))
	}
	return s.vm.ToValue(out)
}
