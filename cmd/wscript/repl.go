package main

import (
	"context"
	sterrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/oarkflow/log"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v2"

	"github.com/Foldover/wscript"
)

const (
	banner     = "Mycel REPL. Type :env to list globals, :quit to exit."
	promptCont = "... "
)

func startRepl(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	fmt.Println(banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	history := newHistory(cfg.REPL.HistoryFile, logger)
	history.load(ln)
	defer history.save(ln)

	ip := wscript.NewInterpreter(wscript.WithLogger(logger))
	for {
		code, ok := readByParseProbe(ln, cfg.REPL.Prompt, promptCont)
		if !ok {
			fmt.Println()
			return nil
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		if strings.HasPrefix(trimmed, ":") {
			if quit := handleReplCommand(ip, trimmed); quit {
				return nil
			}
			continue
		}

		val, _, err := ip.Eval(context.Background(), code)
		if err != nil {
			fmt.Fprintln(os.Stderr, wscript.FormatError(err, code))
			continue
		}
		fmt.Println(val.Inspect())
	}
}

func handleReplCommand(ip *wscript.Interpreter, cmd string) (quit bool) {
	switch strings.ToLower(cmd) {
	case ":quit", ":q":
		return true
	case ":env":
		for _, name := range ip.Globals().Names() {
			val, _ := ip.Globals().Get(name)
			fmt.Printf("%s = %s\n", name, val.Inspect())
		}
	default:
		fmt.Println("unknown command. Type :quit to exit.")
	}
	return false
}

// readByParseProbe keeps reading lines while the accumulated source only
// fails because it ended too early.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := ln.Prompt(p)
		if sterrors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := wscript.ParseString(src); err != nil && incomplete(err) {
			continue
		}
		return src, true
	}
}

func incomplete(err error) bool {
	var e *wscript.Error
	if !sterrors.As(err, &e) {
		return false
	}
	switch e.Code {
	case wscript.ErrCodeParse:
		return e.Found == "end of input"
	case wscript.ErrCodeLex:
		return strings.HasPrefix(e.Message, "unterminated")
	}
	return false
}

// history persists liner history. The file is guarded by a lock so that
// concurrent sessions do not interleave writes.
type history struct {
	path   string
	lock   *flock.Flock
	logger *log.Logger
}

func newHistory(path string, logger *log.Logger) *history {
	if path == "" {
		return nil
	}
	if !filepath.IsAbs(path) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path)
		}
	}
	return &history{path: path, lock: flock.New(path + ".lock"), logger: logger}
}

func (h *history) load(ln *liner.State) {
	if h == nil {
		return
	}
	f, err := os.Open(h.path)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := ln.ReadHistory(f); err != nil {
		h.logger.Warn().Err(err).Str("path", h.path).Msg("failed to read history")
	}
}

func (h *history) save(ln *liner.State) {
	if h == nil {
		return
	}
	locked, err := h.lock.TryLock()
	if err != nil || !locked {
		h.logger.Warn().Err(err).Str("path", h.path).Msg("history file is locked, not saving")
		return
	}
	defer h.lock.Unlock()
	f, err := os.Create(h.path)
	if err != nil {
		h.logger.Warn().Err(err).Str("path", h.path).Msg("failed to write history")
		return
	}
	defer f.Close()
	_, _ = ln.WriteHistory(f)
}
