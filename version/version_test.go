package version

import "testing"

func TestInfoString(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "1.2.0", GitCommit: "abc1234"}, "1.2.0-abc1234"},
		{Info{Version: "1.2.0", GitCommit: "abc1234", Dirty: true}, "1.2.0-abc1234-dirty"},
	}
	for _, tt := range tests {
		if got := tt.info.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestGetUsesLinkerValues(t *testing.T) {
	orig, origCommit := Version, GitCommit
	defer func() { Version, GitCommit = orig, origCommit }()
	Version, GitCommit = "2.0.0", "deadbee"

	info := Get()
	if info.Version != "2.0.0" {
		t.Errorf("expected version 2.0.0, got %q", info.Version)
	}
	if info.GitCommit != "deadbee" {
		t.Errorf("expected commit deadbee, got %q", info.GitCommit)
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("0123456789abcdef"); got != "0123456" {
		t.Errorf("expected 0123456, got %q", got)
	}
	if got := shorten("abc"); got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
}
