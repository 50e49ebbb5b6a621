package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ldlookup/internal/ldparse"
)

// resolveKeys returns the variant ids a query subcommand should run
// against: either the positional args, or one id per non-blank line of
// --keys-file. Exactly one source may be given.
func resolveKeys(args []string, keysFile string) ([]string, error) {
	if len(args) > 0 && keysFile != "" {
		return nil, fmt.Errorf("cannot use both inline keys and --keys-file")
	}
	if keysFile == "" {
		if len(args) == 0 {
			return nil, fmt.Errorf("no keys given: pass ids as arguments or --keys-file")
		}
		return args, nil
	}

	f, err := os.Open(keysFile)
	if err != nil {
		return nil, fmt.Errorf("open keys file %q: %w", keysFile, err)
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read keys file %q: %w", keysFile, err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("keys file %q contained no keys", keysFile)
	}
	return keys, nil
}

// parseColumn turns a --*-column flag value into an ldparse.Column:
// a value that parses as a positive integer is a 1-based position,
// anything else is a header name.
func parseColumn(raw string) ldparse.Column {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return ldparse.Column{Index: n}
	}
	return ldparse.Column{Name: raw}
}
