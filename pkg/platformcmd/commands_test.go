package platformcmd

import "testing"

func TestCommandKnownPlatform(t *testing.T) {
	cases := []struct {
		platform string
		metric   Metric
	}{
		{"linux", MetricCPU},
		{"linux", MetricMemory},
		{"linux", MetricDisk},
		{"darwin", MetricCPU},
		{"darwin", MetricNetwork},
	}
	for _, c := range cases {
		cmd, err := Command(c.platform, c.metric)
		if err != nil {
			t.Errorf("Command(%q, %q) unexpected error: %v", c.platform, c.metric, err)
		}
		if cmd == "" {
			t.Errorf("Command(%q, %q) returned empty command", c.platform, c.metric)
		}
	}
}

func TestCommandUnsupportedPlatform(t *testing.T) {
	_, err := Command("windows", MetricCPU)
	if err == nil {
		t.Fatal("expected error for unsupported platform")
	}
}

func TestCommandUnsupportedMetric(t *testing.T) {
	_, err := Command("linux", Metric("gpu"))
	if err == nil {
		t.Fatal("expected error for unsupported metric")
	}
}

func TestSupportedListsEveryTablePlatform(t *testing.T) {
	names := Supported()
	if len(names) != 2 {
		t.Fatalf("expected 2 supported platforms, got %d", len(names))
	}
}
