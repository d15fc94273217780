package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/megunolink-mqtt/internal/link"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	DeviceID         string            `json:"device_id"`
	RootTopic        string            `json:"root_topic"`
	NetworkConnected bool              `json:"network_connected"`
	MqttConnected    bool              `json:"mqtt_connected"`
	Topics           map[string]string `json:"topics"`
	UptimeSeconds    int64             `json:"uptime_seconds"`
	WebSocketClients int               `json:"websocket_clients"`
}

// CommandRequest is the body of POST /commands.
type CommandRequest struct {
	Command string `json:"command"`
}

// CommandResponse is the reply to POST /commands. Response holds the text
// the device wrote, which is also published on the response topic.
type CommandResponse struct {
	Command  string `json:"command"`
	Response string `json:"response"`
}

// handleStatus reports the device identity and connection flags.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		DeviceID:         s.link.DeviceID(),
		RootTopic:        s.link.RootTopic(),
		NetworkConnected: s.link.IsNetworkConnected(),
		MqttConnected:    s.link.IsMqttConnected(),
		Topics: map[string]string{
			link.TopicStatus:   s.link.BuildTopic(link.TopicStatus),
			link.TopicCommand:  s.link.BuildTopic(link.TopicCommand),
			link.TopicResponse: s.link.BuildTopic(link.TopicResponse),
			link.TopicStream:   s.link.BuildTopic(link.TopicStream),
		},
		UptimeSeconds:    int64(time.Since(s.started) / time.Second),
		WebSocketClients: s.hub.ClientCount(),
	})
}

// handleCommand runs one command through the command channel.
// The leading '!' of the MQTT wire form is optional.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeUnavailable(w, r, "command channel not configured")
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid JSON body")
		return
	}

	text := strings.TrimPrefix(strings.TrimSpace(req.Command), "!")
	if text == "" {
		writeBadRequest(w, r, "command is required")
		return
	}

	reply := s.commands.Dispatch(text)
	writeJSON(w, http.StatusOK, CommandResponse{
		Command:  text,
		Response: string(reply),
	})
}
