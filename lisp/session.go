package lisp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	lisptype "birch/lisp_type"
)

// DefaultRecursionLimit bounds nested evaluation when Options leaves it
// unset.
const DefaultRecursionLimit = 1000

// Options configures an Interpreter.
type Options struct {
	HeapLimit      int    // heap slots, 0 for no limit
	RecursionLimit int    // 0 for DefaultRecursionLimit, negative for no limit
	StatePath      string // file the save builtin writes to
	Logger         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.RecursionLimit == 0 {
		o.RecursionLimit = DefaultRecursionLimit
	}
	if o.RecursionLimit < 0 {
		o.RecursionLimit = 0
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Interpreter owns one heap shared by the global frame and every channel
// frame. A single lock serializes evaluation, printing and collection, so
// it is safe to call from one goroutine per channel.
type Interpreter struct {
	mu     sync.Mutex
	global *lisptype.Env
	log    *slog.Logger
}

// New creates an interpreter with the builtins loaded.
func New(opts Options) (*Interpreter, error) {
	opts = opts.withDefaults()
	heap := lisptype.NewHeap(opts.HeapLimit)
	global := lisptype.NewGlobalEnv(heap)
	global.G.RecursionLimit = opts.RecursionLimit
	global.G.StatePath = opts.StatePath
	global.G.Logger = opts.Logger
	if err := LoadBuiltins(global); err != nil {
		return nil, err
	}
	return &Interpreter{global: global, log: opts.Logger}, nil
}

// Global returns the global frame.
func (in *Interpreter) Global() *lisptype.Env {
	return in.global
}

// Channel returns the frame of a channel, creating it on first use.
func (in *Interpreter) Channel(server, channel string) *lisptype.Env {
	in.mu.Lock()
	defer in.mu.Unlock()
	if server == "global" {
		return in.global
	}
	return in.global.ChannelEnv(server, channel)
}

// begin prepares the shared state for one top level evaluation. Callers
// hold the lock.
func (in *Interpreter) begin(ctx context.Context) func() {
	g := in.global.G
	g.Context = ctx
	g.Depth = 0
	return func() { g.Context = context.Background() }
}

// Evaluate reads one expression from text, evaluates it in env and
// renders the result. When evaluation ends in an error the rendered
// "error: ..." text is returned along with an *Error. Garbage is
// collected before returning.
//
// env should come from Global or Channel. Any other frame is a root only
// for the collection that follows its own evaluation, so its bindings can
// be swept after an evaluation elsewhere unless its values are pinned.
func (in *Interpreter) Evaluate(ctx context.Context, env *lisptype.Env, text string) (string, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	defer in.begin(ctx)()

	id := uuid.New().String()
	start := time.Now()
	v := EvaluateSource(env, text)
	out := PrintValue(env, v)

	var err error
	if v.IsError() {
		err = toError(env, v)
		in.log.Warn("evaluation failed",
			"eval_id", id, "server", env.Server, "channel", env.Channel, "error", err)
	}
	in.log.Debug("evaluated",
		"eval_id", id, "server", env.Server, "channel", env.Channel,
		"duration", time.Since(start))

	in.collect(env)
	return out, err
}

// HandleLine applies the chat trigger convention to a message seen in a
// channel. ",(expr)" evaluates expr as written and ",expr args" evaluates
// "(expr args)". ok is false when the line is not meant for the bot.
func (in *Interpreter) HandleLine(ctx context.Context, server, channel, line string) (reply string, ok bool, err error) {
	var text string
	switch {
	case strings.HasPrefix(line, ",("):
		text = line[1:]
	case strings.HasPrefix(line, ",") && len(line) > 1:
		text = "(" + line[1:] + ")"
	default:
		return "", false, nil
	}
	reply, err = in.Evaluate(ctx, in.Channel(server, channel), text)
	return reply, true, err
}

// AddBuiltin installs a host primitive in the global frame.
func (in *Interpreter) AddBuiltin(name string, fn lisptype.BuiltinFunc) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return AddBuiltin(in.global, name, fn)
}

// collect sweeps everything not reachable from the global frame, the
// channel frames, extra or a pinned value. Callers hold the lock.
func (in *Interpreter) collect(extra ...*lisptype.Env) int {
	g := in.global.G
	roots := make([]*lisptype.Env, 0, len(g.Channels)+len(extra)+1)
	roots = append(roots, in.global)
	roots = append(roots, extra...)
	for _, env := range g.Channels {
		roots = append(roots, env)
	}
	freed := g.Heap.Collect(roots...)
	stats := g.Heap.Stats()
	in.log.Debug("collected garbage",
		"freed", freed, "live", stats.Live, "capacity", stats.Capacity)
	return freed
}

// Collect runs a collection and returns the number of slots freed.
func (in *Interpreter) Collect() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.collect()
}

func (in *Interpreter) Stats() lisptype.HeapStats {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.global.Heap().Stats()
}

// Pin keeps v alive across collections until Unpin is called for it.
func (in *Interpreter) Pin(v lisptype.Value) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.global.Heap().Pin(v)
}

func (in *Interpreter) Unpin(v lisptype.Value) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.global.Heap().Unpin(v)
}

// Load evaluates a source file's forms in the global frame.
func (in *Interpreter) Load(ctx context.Context, r io.Reader) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	defer in.begin(ctx)()

	n, err := LoadState(in.global, r)
	in.collect()
	if err != nil {
		return fmt.Errorf("after %d forms: %w", n, err)
	}
	in.log.Info("state loaded", "forms", n)
	return nil
}

func (in *Interpreter) LoadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := in.Load(ctx, f); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Save writes the global and channel bindings as source.
func (in *Interpreter) Save(w io.Writer) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return WriteState(in.global, w)
}

func (in *Interpreter) SaveFile(path string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := saveFile(in.global, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	in.log.Info("state saved", "path", path)
	return nil
}
