package signaling

import (
	"context"
	"strings"
	"testing"
)

func TestURLAllocator(t *testing.T) {
	a, err := NewURLAllocator("https://signaling.local/call/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	first, err := a.Allocate(context.Background())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if !strings.HasPrefix(first, "https://signaling.local/call/") {
		t.Fatalf("unexpected endpoint %q", first)
	}

	second, _ := a.Allocate(context.Background())
	if first == second {
		t.Fatalf("expected unique endpoints")
	}
}

func TestURLAllocator_RequiresBase(t *testing.T) {
	if _, err := NewURLAllocator("  "); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}
