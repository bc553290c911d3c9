// voltdb is a small inspector CLI over an on-disk VoltStore: open a data
// directory, look up frames, run GC and consolidation passes by hand, and
// check stats. It is not the system's primary interface — VoltDB is a
// library first — but it gives every command-line-shaped dependency in this
// module a runnable home.
package main

import (
	"fmt"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/voltxa/voltdb/pkg/voltstore"
)

type app struct {
	store  *voltstore.VoltStore
	out    *os.File
	errOut *os.File
}

type commandFunc func(a *app, args []string) error

var commands = map[string]commandFunc{
	"get":         cmdGet,
	"recent":      cmdRecent,
	"gc":          cmdGC,
	"consolidate": cmdConsolidate,
	"stats":       cmdStats,
	"run":         cmdRun,
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("voltdb", flag.ContinueOnError)
	dataDir := flags.String("data-dir", "", "data directory for the VoltStore (overrides config file)")
	configPath := flags.String("config", "", "path to a voltdb.hujson config file")
	flags.Usage = printUsage

	if err := flags.Parse(args); err != nil {
		return 1
	}

	rest := flags.Args()
	if len(rest) == 0 {
		printUsage()
		return 1
	}
	name, cmdArgs := rest[0], rest[1:]

	fn, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "voltdb: unknown command %q\n", name)
		printUsage()
		return 1
	}

	cfg, err := LoadConfig(*configPath, flags.Changed("data-dir"), *dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	store, err := voltstore.Open(voltstore.DefaultConfig(cfg.DataDir))
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: opening store:", err)
		return 1
	}
	defer store.Close()

	a := &app{store: store, out: os.Stdout, errOut: os.Stderr}
	if err := fn(a, cmdArgs); err != nil {
		fmt.Fprintln(a.errOut, "error:", err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: voltdb [--data-dir dir] [--config file] <command> [args...]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  get <frame-id>          Print a frame's metadata and decay level")
	fmt.Fprintln(os.Stderr, "  recent [n]              List the n most recently stored frames (default 10)")
	fmt.Fprintln(os.Stderr, "  gc                      Run one retention-scoring and demotion pass")
	fmt.Fprintln(os.Stderr, "  consolidate <strand-id> Run the consolidation engine over one strand")
	fmt.Fprintln(os.Stderr, "  stats                   Print the known strands and the active strand")
	fmt.Fprintln(os.Stderr, "  run                     Start an interactive inspector shell")
}

func cmdGet(a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: get <frame-id>")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid frame id %q: %w", args[0], err)
	}
	entry, ok, err := a.store.GetEntryByID(id)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(a.out, "frame %d: not found\n", id)
		return nil
	}
	fmt.Fprintf(a.out, "frame %d: strand=%d decay=%s created_at=%d certainty=%.3f\n",
		entry.FrameID(), entry.StrandID(), entry.DecayLevel(), entry.CreatedAt(), entry.GlobalCertainty())
	return nil
}

func cmdRecent(a *app, args []string) error {
	n := 10
	if len(args) == 1 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid count %q: %w", args[0], err)
		}
		n = parsed
	}
	for _, f := range a.store.Recent(n) {
		fmt.Fprintf(a.out, "frame %d: strand=%d created_at=%d certainty=%.3f\n",
			f.FrameMeta.FrameID, f.FrameMeta.StrandID, f.FrameMeta.CreatedAt, f.FrameMeta.GlobalCertainty)
	}
	return nil
}

func cmdGC(a *app, _ []string) error {
	result, err := a.store.RunGC()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "scored %d frames, demoted %d\n", result.Scored, len(result.Demoted))
	for _, d := range result.Demoted {
		fmt.Fprintf(a.out, "  frame %d: %s -> %s\n", d.FrameID, d.From, d.To)
	}
	return nil
}

func cmdConsolidate(a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: consolidate <strand-id>")
	}
	strandID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid strand id %q: %w", args[0], err)
	}
	result, err := a.store.ConsolidateStrand(strandID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "found %d clusters, synthesized %d wisdom frames: %v\n",
		result.ClustersFound, len(result.WisdomFrames), result.WisdomFrames)
	return nil
}

func cmdStats(a *app, _ []string) error {
	fmt.Fprintf(a.out, "strands: %v\n", a.store.ListStrands())
	fmt.Fprintf(a.out, "active strand: %d\n", a.store.ActiveStrand())
	return nil
}

func cmdRun(a *app, _ []string) error {
	return runREPL(a)
}
