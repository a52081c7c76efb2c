package autoheal

import (
	"fmt"
	"strings"
)

const maxCommandLen = 500

// allowedInstantiatedCommands is the curated literal allowlist, copied
// verbatim — fully instantiated commands permitted despite containing
// metacharacters the deny list would otherwise reject.
var allowedInstantiatedCommands = map[string]bool{
	`pkill -f 'nginx' && systemctl start nginx`: true,
	`certbot renew --quiet`:                     true,
	`nginx -s reload`:                           true,
}

// dangerousPatterns are the metacharacter sequences denied unless the
// exact instantiated command is in allowedInstantiatedCommands.
var dangerousPatterns = []string{
	";", "|", "`", "$(", "${", ">", ">>", "<", "&&", "||",
}

// sanitize checks the already-instantiated command (placeholders
// substituted) against the allowlist and the metacharacter deny list. It
// returns a non-nil error whose message contains "dangerous pattern"
// when the deny list rejects the command.
func sanitize(command string) error {
	if len(command) > maxCommandLen {
		return fmt.Errorf("command exceeds %d characters", maxCommandLen)
	}
	if allowedInstantiatedCommands[command] {
		return nil
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(command, pattern) {
			return fmt.Errorf("command contains dangerous pattern %q", pattern)
		}
	}
	return nil
}

// instantiate substitutes {var} placeholders in template using only
// already-validated values.
func instantiate(template string, values map[string]string) string {
	out := template
	for k, v := range values {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
