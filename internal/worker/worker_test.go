package worker

import "testing"

func TestLockKeyNamespacesByScope(t *testing.T) {
	cases := []struct {
		scope, id, want string
	}{
		{"payment-detect", "abc-123", "lock:payment-detect:abc-123"},
		{"purge", "xyz", "lock:purge:xyz"},
	}
	for _, c := range cases {
		if got := lockKey(c.scope, c.id); got != c.want {
			t.Errorf("lockKey(%q, %q) = %q, want %q", c.scope, c.id, got, c.want)
		}
	}
}

func TestDefaultConfigHasSaneDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RetentionDays <= 0 {
		t.Errorf("RetentionDays = %d, want positive", cfg.RetentionDays)
	}
	if cfg.StatsRefreshStaleAfter <= 0 {
		t.Errorf("StatsRefreshStaleAfter = %v, want positive", cfg.StatsRefreshStaleAfter)
	}
	if cfg.StatsRefreshBatchSize <= 0 {
		t.Errorf("StatsRefreshBatchSize = %d, want positive", cfg.StatsRefreshBatchSize)
	}
}
