package command

// ResponseCapacity is the number of bytes a single command reply can hold.
const ResponseCapacity = 256

// ResponseBuffer is a fixed-capacity reply buffer handed to a Dispatcher.
//
// Writes never fail. Bytes beyond ResponseCapacity are dropped and
// Truncated reports that it happened. The zero value is ready to use.
type ResponseBuffer struct {
	buf       [ResponseCapacity]byte
	n         int
	truncated bool
}

// Write appends p, keeping only what fits.
func (b *ResponseBuffer) Write(p []byte) (int, error) {
	free := ResponseCapacity - b.n
	if len(p) > free {
		b.truncated = true
		b.n += copy(b.buf[b.n:], p[:free])
		return len(p), nil
	}
	b.n += copy(b.buf[b.n:], p)
	return len(p), nil
}

// WriteString appends s, keeping only what fits.
func (b *ResponseBuffer) WriteString(s string) (int, error) {
	free := ResponseCapacity - b.n
	if len(s) > free {
		b.truncated = true
		b.n += copy(b.buf[b.n:], s[:free])
		return len(s), nil
	}
	b.n += copy(b.buf[b.n:], s)
	return len(s), nil
}

// WriteByte appends c if there is room.
func (b *ResponseBuffer) WriteByte(c byte) error {
	if b.n == ResponseCapacity {
		b.truncated = true
		return nil
	}
	b.buf[b.n] = c
	b.n++
	return nil
}

// Reset empties the buffer.
func (b *ResponseBuffer) Reset() {
	b.n = 0
	b.truncated = false
}

// Len returns the number of buffered bytes.
func (b *ResponseBuffer) Len() int { return b.n }

// Truncated reports whether any write since the last Reset was cut short.
func (b *ResponseBuffer) Truncated() bool { return b.truncated }

// Bytes returns the buffered bytes. The slice aliases the buffer and is
// only valid until the next write or Reset.
func (b *ResponseBuffer) Bytes() []byte { return b.buf[:b.n] }

// String returns a copy of the buffered bytes.
func (b *ResponseBuffer) String() string { return string(b.buf[:b.n]) }
