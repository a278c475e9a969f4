// Command textindex manages an on-disk index from the shell.
//
// Usage:
//
//	textindex create  -dir DIR -schema schema.json
//	textindex ingest  -dir DIR -file docs.jsonl [-commit-every N]
//	textindex ingest  -file docs.jsonl -brokers host:9092 [-topic T -index NAME]
//	textindex delete  -dir DIR -field F -value V
//	textindex search  -dir DIR -q QUERY [-limit N] [-fields a,b]
//	textindex inspect -dir DIR
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
)

var errUsage = errors.New("usage: textindex <create|ingest|delete|search|inspect> [flags]")

func main() {
	logger.SetupWriter(os.Stderr, os.Getenv("TI_LOGGING_LEVEL"), "text")
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "create":
		return runCreate(rest, stdout)
	case "ingest":
		return runIngest(rest, stdout)
	case "delete":
		return runDelete(rest, stdout)
	case "search":
		return runSearch(rest, stdout)
	case "inspect":
		return runInspect(rest, stdout)
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}
