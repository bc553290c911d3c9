package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

// historyFile returns the path to the REPL's command history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".voltdb_history")
}

var replCommands = []string{
	"get", "recent", "gc", "consolidate", "stats",
	"help", "exit", "quit", "q",
}

func completer(line string) []string {
	var completions []string
	lower := strings.ToLower(line)
	for _, cmd := range replCommands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}
	return completions
}

// runREPL drives an interactive shell over the command table in main.go,
// so every subcommand behaves identically whether invoked directly from the
// shell or from inside the REPL.
func runREPL(a *app) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(completer)

	if f, err := os.Open(historyFile()); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	saveHistory := func() {
		if path := historyFile(); path != "" {
			if f, err := os.Create(path); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}
	}

	fmt.Fprintln(a.out, "voltdb inspector - type 'help' for available commands.")

	for {
		input, err := line.Prompt("voltdb> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Fprintln(a.out, "\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		parts := strings.Fields(input)
		name, args := strings.ToLower(parts[0]), parts[1:]

		switch name {
		case "exit", "quit", "q":
			fmt.Fprintln(a.out, "Bye!")
			saveHistory()
			return nil
		case "help", "?":
			printREPLHelp(a)
		case "run":
			fmt.Fprintln(a.errOut, "already in the interactive shell")
		default:
			fn, ok := commands[name]
			if !ok {
				fmt.Fprintf(a.errOut, "unknown command: %s (type 'help' for commands)\n", name)
				continue
			}
			if err := fn(a, args); err != nil {
				fmt.Fprintln(a.errOut, "error:", err)
			}
		}
	}

	saveHistory()
	return nil
}

func printREPLHelp(a *app) {
	fmt.Fprintln(a.out, "Commands:")
	fmt.Fprintln(a.out, "  get <frame-id>          Print a frame's metadata and decay level")
	fmt.Fprintln(a.out, "  recent [n]              List the n most recently stored frames (default 10)")
	fmt.Fprintln(a.out, "  gc                      Run one retention-scoring and demotion pass")
	fmt.Fprintln(a.out, "  consolidate <strand-id> Run the consolidation engine over one strand")
	fmt.Fprintln(a.out, "  stats                   Print the known strands and the active strand")
	fmt.Fprintln(a.out, "  help                    Show this help")
	fmt.Fprintln(a.out, "  exit / quit / q         Exit")
}
