package command

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantOK  bool
	}{
		{name: "crlf", payload: "!Ping\r\n", want: "Ping", wantOK: true},
		{name: "lf only", payload: "!Ping\n", want: "Ping", wantOK: true},
		{name: "cr only", payload: "!Ping\r", want: "Ping", wantOK: true},
		{name: "no line ending", payload: "!Ping", want: "Ping", wantOK: true},
		{name: "double lf stripped", payload: "!Ping\n\n", want: "Ping", wantOK: true},
		{name: "at most two stripped", payload: "!Ping\r\n\r\n", want: "Ping\r\n", wantOK: true},
		{name: "params kept", payload: "!SetLed 1 on\r\n", want: "SetLed 1 on", wantOK: true},
		{name: "empty command", payload: "!\r\n", want: "", wantOK: true},
		{name: "marker only", payload: "!", want: "", wantOK: true},
		{name: "missing marker", payload: "Ping\r\n", wantOK: false},
		{name: "marker not first", payload: " !Ping", wantOK: false},
		{name: "empty payload", payload: "", wantOK: false},
		{name: "line ending only", payload: "\r\n", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCommand([]byte(tt.payload))
			if ok != tt.wantOK {
				t.Fatalf("ParseCommand(%q) ok = %v, want %v", tt.payload, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseCommand(%q) = %q, want %q", tt.payload, got, tt.want)
			}
		})
	}
}
