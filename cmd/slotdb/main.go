// slotdb inspects and edits a slotdb database from the command line.
//
// Usage:
//
//	slotdb [flags] <command> [args]
//
// Commands:
//
//	get <key>            Print the value stored under key as JSON
//	set <key> <json>     Store a JSON value under key
//	delete <key>         Remove key
//	clear                Remove all keys
//	all                  Print the whole document
//	keys                 List keys
//	dump                 Describe the persisted slots
//	stats                Print load/save counters
//
// Flags override values from the config file (default ./slotdb.json,
// comments allowed).
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/andreyvit/slotdb"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"
)

const defaultConfigFile = "slotdb.json"

func main() {
	os.Exit(run(os.Stdin, os.Stdout, os.Stderr, os.Args[1:]))
}

func newLogger(verbose bool) *slog.Logger {
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelWarn)
	if verbose {
		ll.Set(slog.LevelDebug)
	}
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

func run(stdin io.Reader, out, errOut io.Writer, args []string) int {
	flagSet := flag.NewFlagSet("slotdb", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	configPath := flagSet.StringP("config", "c", defaultConfigFile, "Config file (JSON with comments)")
	name := flagSet.StringP("name", "n", "", "Database name")
	chunkSize := flagSet.Int("chunk-size", slotdb.DefaultChunkSize, "Maximum characters per chunk slot")
	backend := flagSet.StringP("backend", "b", "", "Store backend: mem, bolt or file")
	path := flagSet.StringP("path", "p", "", "Store file for the bolt and file backends")
	verbose := flagSet.BoolP("verbose", "v", false, "Log every slot access")

	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 2
	}

	cfg, err := slotdb.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	if flagSet.Changed("name") {
		cfg.Name = *name
	}
	if flagSet.Changed("chunk-size") {
		cfg.ChunkSize = *chunkSize
	}
	if flagSet.Changed("backend") {
		cfg.Backend = *backend
	}
	if flagSet.Changed("path") {
		cfg.Path = *path
	}
	if flagSet.Changed("verbose") {
		cfg.Verbose = *verbose
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		fmt.Fprintln(errOut, "error: missing command")
		return 2
	}

	store, closer, err := cfg.OpenStore()
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	defer closer.Close()

	db, err := slotdb.Open(store, cfg.Options(newLogger(cfg.Verbose)))
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	if err := execute(db, stdin, out, rest[0], rest[1:]); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

var errUsage = errors.New("usage")

func execute(db *slotdb.DB, stdin io.Reader, out io.Writer, cmd string, args []string) error {
	switch cmd {
	case "get":
		if len(args) != 1 {
			return fmt.Errorf("%w: get <key>", errUsage)
		}
		v, ok := db.Get(args[0])
		if !ok {
			return fmt.Errorf("key %q not found", args[0])
		}
		return printJSON(out, v)

	case "set":
		if len(args) != 1 && len(args) != 2 {
			return fmt.Errorf("%w: set <key> [<json>]", errUsage)
		}
		var raw []byte
		if len(args) == 2 {
			raw = []byte(args[1])
		} else {
			var err error
			raw, err = io.ReadAll(stdin)
			if err != nil {
				return err
			}
		}
		var v slotdb.Value
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("invalid value: %w", err)
		}
		return db.Set(args[0], v)

	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("%w: delete <key>", errUsage)
		}
		return db.Delete(args[0])

	case "clear":
		return db.Clear()

	case "all":
		return printJSON(out, db.GetAll())

	case "keys":
		for _, k := range db.Keys() {
			fmt.Fprintln(out, k)
		}
		return nil

	case "dump":
		s, err := db.Dump(slotdb.DumpAll)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, s)
		return err

	case "stats":
		st := db.Stats()
		fmt.Fprintf(out, "state: %s\n", db.LoadState())
		fmt.Fprintf(out, "keys: %d\n", db.Len())
		fmt.Fprintf(out, "total_chunks: %d\n", st.TotalChunks)
		fmt.Fprintf(out, "encoded_size: %d\n", st.EncodedSize)
		fmt.Fprintf(out, "digest: %016x\n", st.Digest)
		return nil

	default:
		return fmt.Errorf("%w: unknown command %q (want one of %s)", errUsage, cmd, strings.Join(commands, ", "))
	}
}

var commands = []string{"get", "set", "delete", "clear", "all", "keys", "dump", "stats"}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
