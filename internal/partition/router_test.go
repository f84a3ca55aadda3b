package partition

import (
	"errors"
	"fmt"
	"testing"

	"github.com/offerhub/userfed/internal/common"
)

func TestForString_KnownVectors(t *testing.T) {
	// Precomputed from the documented formula; these pin the on-disk
	// partitioning contract.
	tests := []struct {
		key  string
		want int
	}{
		{"alice@example.com", 248},
		{"bob@example.com", 952},
		{"x@y.com", 308},
		{"a@b.com", 544},
		{"deals@contoso.com", 151},
		{"user-1", 880},
	}
	for _, tc := range tests {
		got, err := ForString(tc.key)
		if err != nil {
			t.Fatalf("ForString(%q) error: %v", tc.key, err)
		}
		if got != tc.want {
			t.Fatalf("ForString(%q) = %d, want %d", tc.key, got, tc.want)
		}
	}
}

func TestForString_DeterministicAndInRange(t *testing.T) {
	for i := 0; i < 500; i++ {
		key := fmt.Sprintf("user-%d@example.com", i)
		first, err := ForString(key)
		if err != nil {
			t.Fatalf("ForString(%q) error: %v", key, err)
		}
		if first < 0 || first >= Count {
			t.Fatalf("ForString(%q) = %d, out of [0,%d)", key, first, Count)
		}
		second, _ := ForString(key)
		if first != second {
			t.Fatalf("ForString(%q) unstable: %d then %d", key, first, second)
		}
	}
}

func TestForString_EmptyKey(t *testing.T) {
	_, err := ForString("")
	if !errors.Is(err, common.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestForUint64_KnownVectors(t *testing.T) {
	tests := []struct {
		key  uint64
		want int
	}{
		{0, 656},
		{1, 206},
		{42, 890},
		{12345, 611},
		{982451653, 333},
		{9223372036854775807, 55},
		{6789533588756632, 789},
	}
	for _, tc := range tests {
		if got := ForUint64(tc.key); got != tc.want {
			t.Fatalf("ForUint64(%d) = %d, want %d", tc.key, got, tc.want)
		}
	}
}

func TestForInt64_InRange(t *testing.T) {
	for _, key := range []int64{-1, -12345, 0, 1, 1 << 40, -(1 << 62)} {
		got := ForInt64(key)
		if got < 0 || got >= Count {
			t.Fatalf("ForInt64(%d) = %d, out of [0,%d)", key, got, Count)
		}
	}
}
