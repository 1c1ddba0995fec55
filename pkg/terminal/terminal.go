// Package terminal implements the interactive front-end: a small REPL for
// compiling and evaluating condition expressions against a target.
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/derekparker/trie"
	"github.com/go-delve/liner"
	"github.com/mattn/go-isatty"

	"github.com/gekkodbg/gekko/pkg/config"
	"github.com/gekkodbg/gekko/pkg/logflags"
	"github.com/gekkodbg/gekko/pkg/proc"
)

const historyFile string = ".gekkodbg_history"

// Term represents the terminal running the front-end.
type Term struct {
	target *proc.Target
	cache  *proc.ConditionCache
	conf   *config.Config
	cmds   *Commands
	line   *liner.State
	stdout io.Writer
	dumb   bool
	quit   bool
}

// New builds a Term for the given target. Aliases and cache size come from
// conf. When stdin is not a terminal the REPL runs in dumb mode: no
// prompt, no line editing, input read line by line until EOF.
func New(target *proc.Target, conf *config.Config) (*Term, error) {
	cache, err := proc.NewConditionCache(target, conf.CacheSize())
	if err != nil {
		return nil, err
	}
	t := &Term{
		target: target,
		cache:  cache,
		conf:   conf,
		cmds:   DebugCommands(conf),
		stdout: os.Stdout,
		dumb:   !isatty.IsTerminal(os.Stdin.Fd()),
	}
	target.Notify = func(msg string) {
		fmt.Fprintf(t.stdout, "notice: %s\n", msg)
	}
	if !t.dumb {
		t.line = liner.NewLiner()
		t.line.SetCompleter(t.complete)
		t.loadHistory()
	}
	return t, nil
}

// Close cleans up the liner state and saves history.
func (t *Term) Close() {
	if t.line == nil {
		return
	}
	t.saveHistory()
	t.line.Close()
	t.line = nil
}

// Run runs the REPL until exit or EOF.
func (t *Term) Run() error {
	defer t.Close()
	for !t.quit {
		cmdstr, err := t.promptForInput()
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(t.stdout, "exit")
				return nil
			}
			return err
		}
		if cmdstr == "" {
			continue
		}
		if err := t.cmds.Call(cmdstr, t); err != nil {
			fmt.Fprintf(t.stdout, "Command failed: %v\n", err)
		}
	}
	return nil
}

func (t *Term) promptForInput() (string, error) {
	if t.dumb {
		return t.readLineDumb()
	}
	l, err := t.line.Prompt("(gekko) ")
	if err != nil {
		if err == liner.ErrPromptAborted {
			return "", nil
		}
		return "", err
	}
	l = strings.TrimSpace(l)
	if l != "" {
		t.line.AppendHistory(l)
	}
	return l, nil
}

var dumbReader *bufio.Reader

func (t *Term) readLineDumb() (string, error) {
	if dumbReader == nil {
		dumbReader = bufio.NewReader(os.Stdin)
	}
	l, err := dumbReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(l), nil
}

// complete offers the last word's completions: command names for the first
// word, register and host function names afterwards.
func (t *Term) complete(line string) []string {
	idx := strings.LastIndexAny(line, " \t")
	head, word := "", line
	if idx >= 0 {
		head, word = line[:idx+1], line[idx+1:]
	}
	if word == "" {
		return nil
	}

	tr := trie.New()
	if head == "" {
		for _, c := range t.cmds.cmds {
			for _, a := range c.aliases {
				tr.Add(a, nil)
			}
		}
	} else {
		for _, name := range proc.RegisterNames() {
			tr.Add(name, nil)
		}
		for _, name := range t.target.FuncNames() {
			tr.Add(name, nil)
		}
	}

	matches := tr.PrefixSearch(word)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = head + m
	}
	return out
}

func (t *Term) loadHistory() {
	path, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := t.line.ReadHistory(f); err != nil {
		logflags.ReplLogger().Debugf("reading history: %v", err)
	}
}

func (t *Term) saveHistory() {
	path, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := t.line.WriteHistory(f); err != nil {
		logflags.ReplLogger().Debugf("writing history: %v", err)
	}
}
