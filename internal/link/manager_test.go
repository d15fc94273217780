package link

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Test doubles
// =============================================================================

type mockPublish struct {
	Topic    string
	Payload  string
	QoS      byte
	Retained bool
}

// mockTransport records every call in order. Calls are appended to a shared
// journal so tests can assert ordering across publishes and handlers.
type mockTransport struct {
	mu         sync.Mutex
	journal    *[]string
	published  []mockPublish
	subscribed []string
	unsubbed   []string
	willTopic  string
	willBody   string
	connects   int
	connectErr error
	closed     bool
}

func newMockTransport() *mockTransport {
	return &mockTransport{journal: &[]string{}}
}

func (m *mockTransport) record(entry string) {
	*m.journal = append(*m.journal, entry)
}

func (m *mockTransport) SetWill(topic string, payload []byte, qos byte, retained bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.willTopic = topic
	m.willBody = string(payload)
	m.record(fmt.Sprintf("will %s %s qos=%d retained=%t", topic, payload, qos, retained))
}

func (m *mockTransport) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
	m.record("connect")
	return m.connectErr
}

func (m *mockTransport) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, mockPublish{Topic: topic, Payload: string(payload), QoS: qos, Retained: retained})
	m.record("publish " + topic + " " + string(payload))
	return nil
}

func (m *mockTransport) Subscribe(topic string, qos byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, topic)
	m.record("subscribe " + topic)
	return nil
}

func (m *mockTransport) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubbed = append(m.unsubbed, topic)
	m.record("unsubscribe " + topic)
	return nil
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// mockTicker captures scheduled callbacks instead of running them.
type mockTicker struct {
	onceCalls []time.Duration
	detaches  int
	pending   func()
}

func (t *mockTicker) Once(delay time.Duration, fn func()) {
	t.onceCalls = append(t.onceCalls, delay)
	t.pending = fn
}

func (t *mockTicker) Detach() {
	t.detaches++
	t.pending = nil
}

// fire runs the pending callback, as if the delay elapsed.
func (t *mockTicker) fire() bool {
	fn := t.pending
	t.pending = nil
	if fn == nil {
		return false
	}
	fn()
	return true
}

func newTestManager(opts Options) (*Manager, *mockTransport, *mockTicker) {
	transport := newMockTransport()
	ticker := &mockTicker{}
	opts.Ticker = ticker
	if opts.IDProvider == nil {
		opts.IDProvider = StaticID("abc123")
	}
	return NewManager(transport, opts), transport, ticker
}

// =============================================================================
// Connection lifecycle
// =============================================================================

func TestOnNetworkConnected_SetsWillAndConnects(t *testing.T) {
	m, transport, _ := newTestManager(Options{})

	m.OnNetworkConnected()

	if !m.IsNetworkConnected() {
		t.Error("IsNetworkConnected() = false, want true")
	}
	if m.IsMqttConnected() {
		t.Error("IsMqttConnected() = true before HandleConnect, want false")
	}
	if transport.connects != 1 {
		t.Errorf("Connect() called %d times, want 1", transport.connects)
	}
	if transport.willTopic != "MegunoLink/abc123/status" {
		t.Errorf("will topic = %q, want %q", transport.willTopic, "MegunoLink/abc123/status")
	}
	if transport.willBody != StatusOffline {
		t.Errorf("will payload = %q, want %q", transport.willBody, StatusOffline)
	}

	journal := *transport.journal
	if len(journal) != 2 || journal[0] != "will MegunoLink/abc123/status offline qos=1 retained=true" || journal[1] != "connect" {
		t.Errorf("journal = %v, want will then connect", journal)
	}
}

func TestDeviceID_GeneratedOnceOnConnectAttempt(t *testing.T) {
	calls := 0
	provider := HardwareIDFunc(func() (uint64, bool) {
		calls++
		return 0xBEEF, true
	})
	m, _, ticker := newTestManager(Options{IDProvider: provider})

	if m.DeviceID() != "" {
		t.Fatalf("DeviceID() = %q before connect, want empty", m.DeviceID())
	}

	m.OnNetworkConnected()
	m.HandleDisconnect(errors.New("broker went away"))
	ticker.fire()

	if m.DeviceID() != "beef" {
		t.Errorf("DeviceID() = %q, want %q", m.DeviceID(), "beef")
	}
	if calls != 1 {
		t.Errorf("IDProvider called %d times, want 1", calls)
	}
}

func TestDeviceID_PresetNotRegenerated(t *testing.T) {
	calls := 0
	provider := HardwareIDFunc(func() (uint64, bool) {
		calls++
		return 1, true
	})
	m, _, _ := newTestManager(Options{DeviceID: "preset", IDProvider: provider})

	m.OnNetworkConnected()

	if m.DeviceID() != "preset" {
		t.Errorf("DeviceID() = %q, want %q", m.DeviceID(), "preset")
	}
	if calls != 0 {
		t.Errorf("IDProvider called %d times, want 0", calls)
	}
}

func TestHandleConnect_OnlineBeforeHandlers(t *testing.T) {
	m, transport, _ := newTestManager(Options{})

	var gotSession []bool
	m.SubscribeToConnect(func(sessionPresent bool) {
		transport.record("handler")
		gotSession = append(gotSession, sessionPresent)
	})

	m.OnNetworkConnected()
	*transport.journal = (*transport.journal)[:0]
	m.HandleConnect(true)

	if !m.IsMqttConnected() {
		t.Error("IsMqttConnected() = false, want true")
	}

	journal := *transport.journal
	want := []string{"publish MegunoLink/abc123/status online", "handler"}
	if fmt.Sprint(journal) != fmt.Sprint(want) {
		t.Errorf("journal = %v, want %v", journal, want)
	}

	online := 0
	for _, p := range transport.published {
		if p.Topic == "MegunoLink/abc123/status" && p.Payload == StatusOnline {
			online++
			if !p.Retained || p.QoS != 1 {
				t.Errorf("online publish qos=%d retained=%t, want qos=1 retained=true", p.QoS, p.Retained)
			}
		}
	}
	if online != 1 {
		t.Errorf("online publishes = %d, want 1", online)
	}

	if len(gotSession) != 1 || !gotSession[0] {
		t.Errorf("connect handler args = %v, want [true]", gotSession)
	}
}

func TestHandleDisconnect_NetworkUpSchedulesOneReconnect(t *testing.T) {
	m, transport, ticker := newTestManager(Options{ReconnectDelay: 5 * time.Second})

	var reasons []error
	m.SubscribeToDisconnect(func(reason error) { reasons = append(reasons, reason) })

	m.OnNetworkConnected()
	m.HandleConnect(false)

	lost := errors.New("keepalive timeout")
	m.HandleDisconnect(lost)

	if m.IsMqttConnected() {
		t.Error("IsMqttConnected() = true after disconnect, want false")
	}
	if len(reasons) != 1 || !errors.Is(reasons[0], lost) {
		t.Errorf("disconnect handler reasons = %v, want [%v]", reasons, lost)
	}
	if len(ticker.onceCalls) != 1 {
		t.Fatalf("Once() called %d times, want 1", len(ticker.onceCalls))
	}
	if ticker.onceCalls[0] != 5*time.Second {
		t.Errorf("reconnect delay = %v, want 5s", ticker.onceCalls[0])
	}

	if !ticker.fire() {
		t.Fatal("no reconnect callback pending")
	}
	if transport.connects != 2 {
		t.Errorf("Connect() called %d times, want 2", transport.connects)
	}
}

func TestHandleDisconnect_NetworkDownSchedulesNothing(t *testing.T) {
	m, _, ticker := newTestManager(Options{})

	m.OnNetworkConnected()
	m.HandleConnect(false)
	m.OnNetworkConnectionLost()
	m.HandleDisconnect(errors.New("link down"))

	if len(ticker.onceCalls) != 0 {
		t.Errorf("Once() called %d times, want 0", len(ticker.onceCalls))
	}
}

func TestOnNetworkConnectionLost_CancelsPendingReconnect(t *testing.T) {
	m, transport, ticker := newTestManager(Options{})

	m.OnNetworkConnected()
	m.HandleDisconnect(errors.New("refused"))
	if ticker.pending == nil {
		t.Fatal("expected a pending reconnect")
	}

	m.OnNetworkConnectionLost()

	if m.IsNetworkConnected() {
		t.Error("IsNetworkConnected() = true, want false")
	}
	if ticker.detaches != 1 {
		t.Errorf("Detach() called %d times, want 1", ticker.detaches)
	}
	if ticker.fire() {
		t.Error("reconnect still pending after network loss")
	}
	if transport.connects != 1 {
		t.Errorf("Connect() called %d times, want 1", transport.connects)
	}
}

func TestReconnect_StaleCallbackIgnored(t *testing.T) {
	m, transport, ticker := newTestManager(Options{})

	m.OnNetworkConnected()
	m.HandleDisconnect(nil)
	stale := ticker.pending

	// Network drops but the timer already fired concurrently.
	m.OnNetworkConnectionLost()
	stale()

	if transport.connects != 1 {
		t.Errorf("Connect() called %d times, want 1", transport.connects)
	}
}

func TestNetworkFlap_LiveSessionKept(t *testing.T) {
	m, transport, ticker := newTestManager(Options{})

	connects, disconnects := 0, 0
	m.SubscribeToConnect(func(bool) { connects++ })
	m.SubscribeToDisconnect(func(error) { disconnects++ })

	m.OnNetworkConnected()
	m.HandleConnect(false)

	m.OnNetworkConnectionLost()
	m.OnNetworkConnected()

	if transport.connects != 1 {
		t.Errorf("Connect() called %d times, want 1", transport.connects)
	}
	if !m.IsMqttConnected() {
		t.Error("IsMqttConnected() = false after flap, want true")
	}
	if connects != 1 || disconnects != 0 {
		t.Errorf("handlers fired connect=%d disconnect=%d, want 1 and 0", connects, disconnects)
	}

	// The session died during the outage: the transport reports it and the
	// reconnect timer starts the next attempt.
	m.HandleDisconnect(errors.New("keepalive timeout"))
	if !ticker.fire() {
		t.Fatal("no reconnect callback pending")
	}
	if transport.connects != 2 {
		t.Errorf("Connect() called %d times, want 2", transport.connects)
	}
}

func TestConnectStartError_SchedulesReconnect(t *testing.T) {
	m, transport, ticker := newTestManager(Options{})
	transport.connectErr = errors.New("no route")

	m.OnNetworkConnected()

	if len(ticker.onceCalls) != 1 {
		t.Errorf("Once() called %d times, want 1", len(ticker.onceCalls))
	}
}

func TestHandleMessage_FanOut(t *testing.T) {
	m, _, _ := newTestManager(Options{})

	var order []string
	m.SubscribeToMessage(func(msg Message) { order = append(order, "first:"+msg.Topic) })
	m.SubscribeToMessage(func(msg Message) { order = append(order, "second:"+string(msg.Payload)) })

	m.HandleMessage("a/b/c", []byte("hello"), 2, true, false)

	want := []string{"first:a/b/c", "second:hello"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("handler order = %v, want %v", order, want)
	}
}

func TestSubscribe_NoDedupeNilIgnored(t *testing.T) {
	m, _, _ := newTestManager(Options{})

	count := 0
	handler := func(bool) { count++ }
	m.SubscribeToConnect(handler)
	m.SubscribeToConnect(handler)
	m.SubscribeToConnect(nil)

	m.HandleConnect(false)

	if count != 2 {
		t.Errorf("handler called %d times, want 2", count)
	}
	if got := m.connectHandlers.len(); got != 2 {
		t.Errorf("registered connect handlers = %d, want 2", got)
	}
}

func TestHandler_PanicPropagates(t *testing.T) {
	m, _, _ := newTestManager(Options{})

	later := false
	m.SubscribeToMessage(func(Message) { panic("boom") })
	m.SubscribeToMessage(func(Message) { later = true })

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic to propagate")
		}
		if later {
			t.Error("handler after panicking handler ran")
		}
	}()

	m.HandleMessage("t", nil, 0, false, false)
}

// =============================================================================
// Device id updates
// =============================================================================

func TestUpdateDeviceID_PublishOrderWhileConnected(t *testing.T) {
	m, transport, _ := newTestManager(Options{DeviceID: "old"})

	m.SubscribeToDeviceIDChanged(func(connected bool, oldID, newID string) {
		transport.record(fmt.Sprintf("changed %t %s->%s", connected, oldID, newID))
		if m.DeviceID() != "new" {
			t.Errorf("DeviceID() inside handler = %q, want %q", m.DeviceID(), "new")
		}
	})

	m.OnNetworkConnected()
	m.HandleConnect(false)
	*transport.journal = (*transport.journal)[:0]

	m.UpdateDeviceID("new")

	want := []string{
		"publish MegunoLink/old/status offline",
		"will MegunoLink/new/status offline qos=1 retained=true",
		"changed true old->new",
		"publish MegunoLink/new/status online",
	}
	if fmt.Sprint(*transport.journal) != fmt.Sprint(want) {
		t.Errorf("journal = %v, want %v", *transport.journal, want)
	}
	if m.DeviceID() != "new" {
		t.Errorf("DeviceID() = %q, want %q", m.DeviceID(), "new")
	}
}

func TestUpdateDeviceID_Disconnected(t *testing.T) {
	m, transport, _ := newTestManager(Options{DeviceID: "old"})

	var gotConnected []bool
	m.SubscribeToDeviceIDChanged(func(connected bool, _, _ string) {
		gotConnected = append(gotConnected, connected)
	})

	m.UpdateDeviceID("new")

	if len(transport.published) != 0 {
		t.Errorf("published %d messages while disconnected, want 0", len(transport.published))
	}
	if len(gotConnected) != 1 || gotConnected[0] {
		t.Errorf("handler connected args = %v, want [false]", gotConnected)
	}

	// Next connect attempt uses the new id for the will.
	m.OnNetworkConnected()
	if transport.willTopic != "MegunoLink/new/status" {
		t.Errorf("will topic = %q, want %q", transport.willTopic, "MegunoLink/new/status")
	}
}

func TestUpdateDeviceID_RearmsWill(t *testing.T) {
	m, transport, _ := newTestManager(Options{DeviceID: "old"})

	m.OnNetworkConnected()
	m.HandleConnect(false)

	m.UpdateDeviceID("new")

	if transport.willTopic != "MegunoLink/new/status" {
		t.Errorf("will topic = %q, want %q", transport.willTopic, "MegunoLink/new/status")
	}
	if transport.willBody != StatusOffline {
		t.Errorf("will payload = %q, want %q", transport.willBody, StatusOffline)
	}
	if transport.connects != 1 {
		t.Errorf("Connect() called %d times, want 1", transport.connects)
	}
}

func TestUpdateDeviceID_HandlerMayReenter(t *testing.T) {
	m, _, _ := newTestManager(Options{DeviceID: "old"})

	var seen string
	m.SubscribeToDeviceIDChanged(func(bool, string, string) {
		seen = m.BuildTopic(TopicCommand)
	})

	m.UpdateDeviceID("new")

	if seen != "MegunoLink/new/command" {
		t.Errorf("topic seen in handler = %q, want %q", seen, "MegunoLink/new/command")
	}
}

// =============================================================================
// Close
// =============================================================================

func TestClose_PublishesOfflineAndStopsReconnect(t *testing.T) {
	m, transport, ticker := newTestManager(Options{})

	m.OnNetworkConnected()
	m.HandleConnect(false)

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	last := transport.published[len(transport.published)-1]
	if last.Topic != "MegunoLink/abc123/status" || last.Payload != StatusOffline || !last.Retained {
		t.Errorf("last publish = %+v, want retained offline status", last)
	}
	if !transport.closed {
		t.Error("transport not closed")
	}
	if m.IsNetworkConnected() || m.IsMqttConnected() {
		t.Error("connection flags still set after Close()")
	}
	if ticker.detaches == 0 {
		t.Error("Detach() not called on Close()")
	}
}

func TestTimerTicker_OnceAndDetach(t *testing.T) {
	ticker := NewTicker()

	fired := make(chan struct{}, 1)
	ticker.Once(10*time.Millisecond, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("Once() callback did not fire")
	}

	ticker.Once(50*time.Millisecond, func() { fired <- struct{}{} })
	ticker.Detach()

	select {
	case <-fired:
		t.Error("callback fired after Detach()")
	case <-time.After(150 * time.Millisecond):
	}
}
