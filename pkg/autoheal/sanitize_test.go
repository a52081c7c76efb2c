package autoheal

import "testing"

func TestSanitizeAllowlistOverridesDenyList(t *testing.T) {
	if err := sanitize(`pkill -f 'nginx' && systemctl start nginx`); err != nil {
		t.Errorf("expected curated allowlist command to pass, got %v", err)
	}
}

func TestSanitizeRejectsDangerousPatterns(t *testing.T) {
	cases := []string{
		"echo test; rm -rf /",
		"echo `whoami`",
		"echo $(whoami)",
		"cat file > /etc/passwd",
		"foo && bar",
		"foo || bar",
	}
	for _, cmd := range cases {
		if err := sanitize(cmd); err == nil {
			t.Errorf("expected sanitize to reject %q", cmd)
		}
	}
}

func TestSanitizePassesSafeCommand(t *testing.T) {
	if err := sanitize("docker system prune -f"); err != nil {
		t.Errorf("expected safe command to pass, got %v", err)
	}
}

func TestInstantiate(t *testing.T) {
	got := instantiate("restart {process_name} now", map[string]string{"process_name": "nginx"})
	if got != "restart nginx now" {
		t.Errorf("got %q", got)
	}
}
