// ilhook CLI - inspect, round-trip and rewrite captured CIL method bodies
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/ilhook/config"
)

func main() {
	verbosity := flag.Int("v", -1, "Log verbosity, overrides [log] verbosity in ilhook.toml")
	configDir := flag.String("config", ".", "Directory to start searching for ilhook.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ilhook [options] <command> [command options]\n\n")
		fmt.Fprintf(os.Stderr, "Decodes, re-encodes and rewrites CIL method bodies and their exception tables.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n")
		fmt.Fprintf(os.Stderr, "  dis        Print a listing of each method\n")
		fmt.Fprintf(os.Stderr, "  roundtrip  Decode and re-encode each method, checking byte equality\n")
		fmt.Fprintf(os.Stderr, "  inject     Prepend nops to each method and print the rewritten body\n")
		fmt.Fprintf(os.Stderr, "  import     Store every method of a capture in the corpus\n")
		fmt.Fprintf(os.Stderr, "  list       List stored methods\n")
		fmt.Fprintf(os.Stderr, "  replay     Rewrite every stored original and save the results\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ilhook dis -il AAIq                 # Disassemble base64 IL\n")
		fmt.Fprintf(os.Stderr, "  ilhook roundtrip -in app.cbor       # Check a capture round-trips\n")
		fmt.Fprintf(os.Stderr, "  ilhook inject -nops 2 -in app.cbor  # Shift every body by two nops\n")
		fmt.Fprintf(os.Stderr, "  ilhook import -in app.cbor -db corpus.db\n")
	}
	flag.Parse()

	cfg, err := config.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg, *verbosity)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	switch args[0] {
	case "dis":
		err = handleDisCommand(args[1:])
	case "roundtrip":
		err = handleRoundTripCommand(args[1:])
	case "inject":
		err = handleInjectCommand(args[1:], cfg)
	case "import":
		err = handleImportCommand(args[1:], cfg)
	case "list":
		err = handleListCommand(args[1:], cfg)
	case "replay":
		err = handleReplayCommand(args[1:], cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config, verbosity int) {
	if verbosity < 0 {
		verbosity = cfg.Log.Verbosity
	}
	var path *string
	if file := cfg.LogFile(); file != "" {
		path = &file
	}
	commonlog.Configure(verbosity, path)
}
