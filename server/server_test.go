package server

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelforge/ptouchd/adapter"
	"github.com/labelforge/ptouchd/protocol"
	"github.com/labelforge/ptouchd/session"
)

// mockTransport is a scripted printer: it records command writes and plays
// back queued status frames.
type mockTransport struct {
	open     bool
	writes   [][]byte
	replies  [][]byte
	replyIdx int
}

func (m *mockTransport) Open() error {
	m.open = true
	return nil
}

func (m *mockTransport) Write(data []byte) (int, error) {
	m.writes = append(m.writes, append([]byte(nil), data...))
	return len(data), nil
}

func (m *mockTransport) ReadStatus(time.Duration) ([]byte, error) {
	if m.replyIdx >= len(m.replies) {
		return nil, adapter.ErrTimeout
	}
	r := m.replies[m.replyIdx]
	m.replyIdx++
	return r, nil
}

func (m *mockTransport) Close() error {
	m.open = false
	return nil
}

func (m *mockTransport) IsOpen() bool {
	return m.open
}

func statusFrame(typ protocol.StatusType, kind protocol.MediaKind, widthMM byte) []byte {
	buf := make([]byte, protocol.StatusReplySize)
	buf[0] = 0x80
	buf[1] = 0x20
	buf[10] = widthMM
	buf[11] = byte(kind)
	buf[18] = byte(typ)
	return buf
}

func readyTransport() *mockTransport {
	return &mockTransport{
		replies: [][]byte{
			statusFrame(protocol.StatusReplyToRequest, protocol.KindLaminatedTape, 12),
			statusFrame(protocol.StatusCompleted, protocol.KindLaminatedTape, 12),
		},
	}
}

// jobPayload frames a print job the way a client would.
func jobPayload(flags byte, hintWidth byte, lines [][]byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{'P', 'T', payloadVersion, flags})
	buf.WriteByte(0)         // kind hint
	buf.WriteByte(hintWidth) // width hint
	buf.WriteByte(0)         // length hint
	var margin [2]byte
	buf.Write(margin[:])
	var count [2]byte
	binary.BigEndian.PutUint16(count[:], uint16(len(lines)))
	buf.Write(count[:])
	for _, line := range lines {
		buf.Write(line)
	}
	return buf.Bytes()
}

func testLines(n int) [][]byte {
	lines := make([][]byte, n)
	for i := range lines {
		lines[i] = bytes.Repeat([]byte{0xA5}, protocol.BytesPerLine)
	}
	return lines
}

func fastSessionOpts() []session.Option {
	return []session.Option{
		session.WithPollInterval(time.Millisecond),
		session.WithStatusTimeout(10 * time.Millisecond),
		session.WithCompletionWait(time.Second),
	}
}

// sendJob dials the server, sends a payload and returns the result byte.
func sendJob(t *testing.T, address string, payload []byte) byte {
	t.Helper()

	conn, err := net.Dial("tcp", address)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(payload)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	result := make([]byte, 1)
	_, err = io.ReadFull(conn, result)
	require.NoError(t, err)
	return result[0]
}

func TestNewServer(t *testing.T) {
	transport := &mockTransport{}
	address := "localhost:9100"

	server := New(transport, address, zerolog.Nop())

	assert.NotNil(t, server)
	assert.Equal(t, address, server.Address())
	assert.False(t, server.IsRunning())
}

func TestServerStartStop(t *testing.T) {
	transport := &mockTransport{}
	server := New(transport, "localhost:9101", zerolog.Nop())

	err := server.StartAsync()
	require.NoError(t, err)
	assert.True(t, server.IsRunning())
	assert.True(t, transport.IsOpen())

	// Test double start
	err = server.StartAsync()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	err = server.Stop()
	require.NoError(t, err)
	assert.False(t, server.IsRunning())
	assert.False(t, transport.IsOpen())

	// Test double stop (should not error)
	err = server.Stop()
	assert.NoError(t, err)
}

func TestServerPrintsJob(t *testing.T) {
	transport := readyTransport()
	server := New(transport, "localhost:9102", zerolog.Nop(), fastSessionOpts()...)

	require.NoError(t, server.StartAsync())
	defer server.Stop()

	lines := testLines(3)
	result := sendJob(t, server.Address(), jobPayload(flagAutoCut, 0, lines))
	assert.Equal(t, byte(ResultOK), result)

	// The device saw a full command stream ending in print-and-feed.
	var rasterCount int
	var sawPrint bool
	for _, w := range transport.writes {
		if w[0] == 0x47 {
			rasterCount++
		}
		if len(w) == 1 && w[0] == 0x1A {
			sawPrint = true
		}
	}
	assert.Equal(t, 3, rasterCount)
	assert.True(t, sawPrint)
}

func TestServerRejectsBadMagic(t *testing.T) {
	transport := readyTransport()
	server := New(transport, "localhost:9103", zerolog.Nop(), fastSessionOpts()...)

	require.NoError(t, server.StartAsync())
	defer server.Stop()

	payload := jobPayload(0, 0, testLines(1))
	payload[0] = 'X'

	result := sendJob(t, server.Address(), payload)
	assert.Equal(t, byte(ResultBadRequest), result)
	assert.Empty(t, transport.writes, "nothing reaches the printer for a bad payload")
}

func TestServerRejectsWrongVersion(t *testing.T) {
	transport := readyTransport()
	server := New(transport, "localhost:9104", zerolog.Nop(), fastSessionOpts()...)

	require.NoError(t, server.StartAsync())
	defer server.Stop()

	payload := jobPayload(0, 0, testLines(1))
	payload[2] = 99

	result := sendJob(t, server.Address(), payload)
	assert.Equal(t, byte(ResultBadRequest), result)
}

func TestServerMediaMismatch(t *testing.T) {
	transport := readyTransport() // reports 12mm
	server := New(transport, "localhost:9105", zerolog.Nop(), fastSessionOpts()...)

	require.NoError(t, server.StartAsync())
	defer server.Stop()

	result := sendJob(t, server.Address(), jobPayload(0, 24, testLines(1)))
	assert.Equal(t, byte(ResultMediaMismatch), result)

	for _, w := range transport.writes {
		assert.NotEqual(t, byte(0x47), w[0], "no raster data on mismatched media")
	}
}

func TestServerDeviceFault(t *testing.T) {
	frame := statusFrame(protocol.StatusErrorOccurred, protocol.KindLaminatedTape, 12)
	frame[9] = 0x10 // cover open
	transport := &mockTransport{replies: [][]byte{frame}}
	server := New(transport, "localhost:9106", zerolog.Nop(), fastSessionOpts()...)

	require.NoError(t, server.StartAsync())
	defer server.Stop()

	result := sendJob(t, server.Address(), jobPayload(0, 0, testLines(1)))
	assert.Equal(t, byte(ResultDeviceFault), result)
}

func TestServerInvalidAddress(t *testing.T) {
	server := New(&mockTransport{}, "invalid:address:9100", zerolog.Nop())

	err := server.StartAsync()
	assert.Error(t, err)
	assert.False(t, server.IsRunning())
}

func TestServerStartBlocking(t *testing.T) {
	transport := readyTransport()
	server := New(transport, "localhost:9107", zerolog.Nop(), fastSessionOpts()...)

	started := make(chan error)
	go func() {
		started <- server.Start()
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)
	assert.True(t, server.IsRunning())

	result := sendJob(t, server.Address(), jobPayload(0, 0, testLines(1)))
	assert.Equal(t, byte(ResultOK), result)

	require.NoError(t, server.Stop())

	select {
	case err := <-started:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestResultForErrorMapping(t *testing.T) {
	assert.Equal(t, byte(ResultOK), resultFor(nil))
	assert.Equal(t, byte(ResultMediaMismatch), resultFor(&session.MediaMismatchError{}))
	assert.Equal(t, byte(ResultDeviceFault), resultFor(&session.DeviceFaultError{Flags: protocol.FlagCoverOpen}))
	assert.Equal(t, byte(ResultTransportErr), resultFor(&session.TransportError{}))
	assert.Equal(t, byte(ResultTimeout), resultFor(&session.TimeoutError{}))
}
