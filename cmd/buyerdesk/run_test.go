package main

import (
	"context"
	"testing"
)

func TestRunHelp(t *testing.T) {
	if code := Run(context.Background(), []string{"--help"}); code != 0 {
		t.Fatalf("--help exit=%d", code)
	}
}

func TestRunVersion(t *testing.T) {
	if code := Run(context.Background(), []string{"--version"}); code != 0 {
		t.Fatalf("--version exit=%d", code)
	}
}

func TestRunUnknownFlag(t *testing.T) {
	if code := Run(context.Background(), []string{"--no-such-flag"}); code != 1 {
		t.Fatalf("unknown flag exit=%d want 1", code)
	}
}
