package command

// CommandMarker is the first byte of every command payload.
const CommandMarker = '!'

// maxLineEnding is how many trailing CR/LF bytes are stripped.
const maxLineEnding = 2

// ParseCommand extracts the command text from a raw payload.
//
// Up to two trailing '\r' or '\n' bytes are removed (so "\r\n", "\n\n" and
// "\n" all count as a line ending). The remaining payload must start with
// '!'; the text after it is returned. ok is false when the marker is
// missing, in which case the payload must be ignored.
//
// An empty command ("!" or "!\r\n") is valid and returns "", true.
func ParseCommand(payload []byte) (command string, ok bool) {
	n := len(payload)
	for i := 0; i < maxLineEnding && n > 0; i++ {
		if c := payload[n-1]; c != '\r' && c != '\n' {
			break
		}
		n--
	}

	if n == 0 || payload[0] != CommandMarker {
		return "", false
	}

	return string(payload[1:n]), true
}
