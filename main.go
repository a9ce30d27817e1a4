package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"birch/lisp"
)

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	n, err := strconv.Atoi(getenv(k, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getenv(k, def.String()))
	if err != nil {
		return def
	}
	return d
}

type config struct {
	heapLimit      int
	recursionLimit int
	statePath      string
	timeout        time.Duration
	expr           string
	chat           bool
	verbose        bool
	files          []string
}

func parseFlags() config {
	var cfg config
	flag.IntVar(&cfg.heapLimit, "heap", getenvInt("BIRCH_HEAP_LIMIT", 0), "maximum heap slots, 0 for no limit")
	flag.IntVar(&cfg.recursionLimit, "depth", getenvInt("BIRCH_RECURSION_LIMIT", lisp.DefaultRecursionLimit), "maximum evaluation depth, negative for no limit")
	flag.StringVar(&cfg.statePath, "state", getenv("BIRCH_STATE_FILE", ""), "file to load state from at start and to save to")
	flag.DurationVar(&cfg.timeout, "timeout", getenvDuration("BIRCH_TIMEOUT", 5*time.Second), "time limit for one evaluation, 0 for none")
	flag.StringVar(&cfg.expr, "e", "", "evaluate one expression and exit")
	flag.BoolVar(&cfg.chat, "chat", false, "read \"server channel message\" lines from stdin")
	flag.BoolVar(&cfg.verbose, "v", false, "debug logging")
	flag.Parse()
	cfg.files = flag.Args()
	return cfg
}

func main() {
	cfg := parseFlags()

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	in, err := lisp.New(lisp.Options{
		HeapLimit:      cfg.heapLimit,
		RecursionLimit: cfg.recursionLimit,
		StatePath:      cfg.statePath,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	if cfg.statePath != "" {
		err := in.LoadFile(ctx, cfg.statePath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	for _, file := range cfg.files {
		if err := in.LoadFile(ctx, file); err != nil {
			return err
		}
	}

	switch {
	case cfg.expr != "":
		evalCtx, cancel := withTimeout(ctx, cfg.timeout)
		defer cancel()
		out, err := in.Evaluate(evalCtx, in.Global(), cfg.expr)
		fmt.Println(out)
		return err
	case cfg.chat:
		return chat(ctx, in, cfg.timeout)
	}
	return lisp.Repl(ctx, in, in.Channel("local", "#repl"), os.Stdout, cfg.timeout)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// chat stands in for a chat connection: every stdin line is a message
// seen in a channel, and replies go to stdout the same way.
func chat(ctx context.Context, in *lisp.Interpreter, timeout time.Duration) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), " ", 3)
		if len(fields) < 3 {
			continue
		}
		server, channel, message := fields[0], fields[1], fields[2]

		evalCtx, cancel := withTimeout(ctx, timeout)
		reply, ok, _ := in.HandleLine(evalCtx, server, channel, message)
		cancel()
		if ok {
			fmt.Printf("%s %s %s\n", server, channel, strings.ReplaceAll(reply, "\n", " "))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}
