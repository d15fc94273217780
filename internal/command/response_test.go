package command

import (
	"fmt"
	"strings"
	"testing"
)

func TestResponseBuffer_Write(t *testing.T) {
	var b ResponseBuffer

	fmt.Fprintf(&b, "Value=%d\r\n", 42)

	if got := b.String(); got != "Value=42\r\n" {
		t.Errorf("String() = %q, want %q", got, "Value=42\r\n")
	}
	if b.Truncated() {
		t.Error("Truncated() = true, want false")
	}
}

func TestResponseBuffer_TruncatesAtCapacity(t *testing.T) {
	var b ResponseBuffer

	long := strings.Repeat("x", ResponseCapacity+10)
	n, err := b.WriteString(long)
	if err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}
	if n != len(long) {
		t.Errorf("WriteString() n = %d, want %d", n, len(long))
	}
	if b.Len() != ResponseCapacity {
		t.Errorf("Len() = %d, want %d", b.Len(), ResponseCapacity)
	}
	if !b.Truncated() {
		t.Error("Truncated() = false, want true")
	}

	if _, err := b.Write([]byte("more")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := b.WriteByte('!'); err != nil {
		t.Fatalf("WriteByte() error = %v", err)
	}
	if b.Len() != ResponseCapacity {
		t.Errorf("Len() after full = %d, want %d", b.Len(), ResponseCapacity)
	}
}

func TestResponseBuffer_FillsExactly(t *testing.T) {
	var b ResponseBuffer

	_, _ = b.Write([]byte(strings.Repeat("a", ResponseCapacity-1)))
	_ = b.WriteByte('z')

	if b.Truncated() {
		t.Error("Truncated() = true at exact capacity, want false")
	}
	if got := b.Bytes()[ResponseCapacity-1]; got != 'z' {
		t.Errorf("last byte = %q, want 'z'", got)
	}
}

func TestResponseBuffer_Reset(t *testing.T) {
	var b ResponseBuffer

	_, _ = b.WriteString(strings.Repeat("y", ResponseCapacity*2))
	b.Reset()

	if b.Len() != 0 || b.Truncated() || b.String() != "" {
		t.Errorf("after Reset() Len=%d Truncated=%v String=%q, want empty", b.Len(), b.Truncated(), b.String())
	}
}
