package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/panerun/panerun/pkg/cli"
	"github.com/panerun/panerun/pkg/config"
)

const version = "0.1.0"

func main() {
	logPath := flag.String("log", "", "write supervisor diagnostics to this file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("panerun version %s\n", version)
		return
	}

	configPath := config.DefaultPath
	switch args := flag.Args(); len(args) {
	case 0:
	case 1:
		if args[0] == "help" {
			printUsage()
			return
		}
		configPath = args[0]
	default:
		printUsage()
		os.Exit(1)
	}

	app, err := cli.NewApp(configPath, *logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	usage := `panerun - run a handful of dev commands in one terminal

Usage:
  panerun [config.yaml]       Start supervising (default: panerun.yaml)
  panerun --log FILE [cfg]    Also write supervisor diagnostics to FILE
  panerun --version
  panerun help

Config:
  scrollback: 1000            Lines kept per process (optional)
  processes:                  1 to 6 entries
    - name: api               Unique display name
      command: go             Executable, resolved via PATH
      args: ["run", "./cmd"]  Optional argument list
      cwd: ./api              Optional working directory

Keys:
  1-6 select pane, t/enter stop or restart the selected process,
  up/down scroll, pgup/pgdn page, q quit (terminates all processes)
`
	fmt.Print(usage)
}
