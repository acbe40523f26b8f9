package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/erazemk/opname/internal/config"
)

const usage = `Usage: opname [command] [flags]

Commands:
  serve    run the HTTP API (default)
  init     create the database and the admin account
  scan     run a stocktake in the terminal
  export   write the inventory report to an XLSX file

Flags:
  -c, -config <path>      config file (YAML, TOML or JSON)
  -d, -db <path>          SQLite database path (default: opname.db)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run, or the operator for scan
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
      -driver <name>      document store: sqlite, mongo or postgres (default: sqlite)
  -o, -out <path>         export destination (default: opname_<timestamp>.xlsx)
  -h, -help               show this help and exit

Every setting can also come from OPNAME_* environment variables or a .env file.
`

// cli holds the parsed command line.
type cli struct {
	command    string
	configPath string
	outPath    string
	overrides  map[string]any
}

func parseArgs(args []string) (cli, error) {
	c := cli{command: "serve", overrides: map[string]any{}}
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		c.command, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("opname", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stdout, usage) }

	fs.StringVar(&c.configPath, "config", "", "")
	fs.StringVar(&c.configPath, "c", "", "")
	fs.StringVar(&c.outPath, "out", "", "")
	fs.StringVar(&c.outPath, "o", "", "")

	// Flags that map onto config keys only override when given explicitly.
	keys := map[string]string{
		"db": "db.path", "d": "db.path",
		"addr": "http.addr", "a": "http.addr",
		"user": "admin.user", "u": "admin.user",
		"log": "log.path", "l": "log.path",
		"driver": "store.driver",
	}
	values := map[string]*string{}
	for name := range keys {
		values[name] = fs.String(name, "", "")
	}

	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if fs.NArg() > 0 {
		return c, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	fs.Visit(func(f *flag.Flag) {
		if key, ok := keys[f.Name]; ok {
			c.overrides[key] = *values[f.Name]
		}
	})
	return c, nil
}

func main() {
	c, err := parseArgs(os.Args[1:])
	if err == flag.ErrHelp {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n\n%s", err, usage)
		os.Exit(1)
	}

	cfg, err := config.Load(config.Options{
		File:      c.configPath,
		EnvFile:   ".env",
		Overrides: c.overrides,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.Log.Path, c.command == "scan")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	switch c.command {
	case "serve":
		err = runServe(cfg)
	case "init":
		err = runInit(cfg)
	case "scan":
		err = runScan(cfg, os.Stdin, os.Stdout)
	case "export":
		err = runExport(cfg, c.outPath)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", c.command, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		closeLog()
		os.Exit(1)
	}
}
