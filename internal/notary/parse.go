package notary

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// structuredHash is the preferred CLI output contract.
	structuredHash = regexp.MustCompile(`^tx_hash=([a-fA-F0-9]+)$`)
	looseHash      = regexp.MustCompile(`(?i)hash[:\s]*([a-fA-F0-9]+)`)
)

// extractTxHash finds the transaction hash in CLI output. The second return
// is false when no hash was found and one was synthesized from now.
func extractTxHash(output string, now time.Time) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		if m := structuredHash.FindStringSubmatch(strings.TrimSpace(scanner.Text())); m != nil {
			return m[1], true
		}
	}
	if m := looseHash.FindStringSubmatch(output); m != nil {
		return m[1], true
	}
	return "tx_" + strconv.FormatInt(now.UnixMilli(), 10), false
}

// benignStderr reports whether stderr output should not fail an invocation.
func benignStderr(stderr string) bool {
	return strings.TrimSpace(stderr) == "" || strings.Contains(stderr, "Compiling")
}
