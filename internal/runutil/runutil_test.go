package runutil

import (
	"runtime"
	"testing"
)

func TestThreads(t *testing.T) {
	if got := Threads(3); got != 3 {
		t.Fatalf("want 3, got %d", got)
	}
	if got := Threads(0); got != runtime.NumCPU() {
		t.Fatalf("0 means all CPUs → want %d, got %d", runtime.NumCPU(), got)
	}
	if got := Threads(-4); got != runtime.NumCPU() {
		t.Fatalf("negative means all CPUs → want %d, got %d", runtime.NumCPU(), got)
	}
}
