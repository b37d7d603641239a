package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/harness/internal/protocol"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func TestRegisterAndUnregister(t *testing.T) {
	h, _ := startHub(t)
	conn := h.NewConnection(nil)
	require.NotEmpty(t, conn.ID)

	h.Register(conn)
	assert.Eventually(t, func() bool { return h.GetConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Unregister(conn)
	assert.Eventually(t, func() bool { return h.GetConnectionCount() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-conn.Send
	assert.False(t, ok, "send queue is closed on unregister")
	assert.ErrorIs(t, conn.SendJSON(map[string]string{"type": "pong"}), ErrConnectionClosed)

	// A second unregister is a no-op.
	h.Unregister(conn)
}

func TestSendJSONQueuesEncodedMessage(t *testing.T) {
	h, _ := startHub(t)
	conn := h.NewConnection(nil)

	require.NoError(t, conn.SendJSON(map[string]string{"type": "connected"}))

	var got map[string]string
	require.NoError(t, json.Unmarshal(<-conn.Send, &got))
	assert.Equal(t, "connected", got["type"])
}

func fill(t *testing.T, conn *Connection) {
	t.Helper()
	for i := 0; i < DefaultSendBuffer; i++ {
		require.NoError(t, conn.enqueue([]byte("{}"), 0))
	}
}

func TestSendReportsFullBuffer(t *testing.T) {
	conn := NewHub().NewConnection(nil)
	fill(t, conn)

	assert.ErrorIs(t, conn.SendJSON(map[string]string{"type": "status"}), ErrBufferFull)
	// Emit swallows the failure.
	conn.Emit(map[string]string{"type": "status"})
	assert.Len(t, conn.Send, DefaultSendBuffer)
}

func TestEmitWaitsForTerminalEvents(t *testing.T) {
	conn := NewHub().NewConnection(nil)
	fill(t, conn)

	// A slow writer frees one slot after the queue filled up.
	go func() {
		time.Sleep(50 * time.Millisecond)
		<-conn.Send
	}()
	conn.Emit(protocol.ResetComplete())

	var last []byte
	for len(conn.Send) > 0 {
		last = <-conn.Send
	}
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(last, &got))
	assert.Equal(t, protocol.TypeResetComplete, got["type"])
}

func TestEmitDropsNonTerminalEventsWhenFull(t *testing.T) {
	conn := NewHub().NewConnection(nil)
	fill(t, conn)

	done := make(chan struct{})
	go func() {
		conn.Emit(protocol.Status(protocol.AgentTaskExecutor, protocol.StatusWorking, "busy"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("non-terminal emit blocked on a full queue")
	}
	assert.Len(t, conn.Send, DefaultSendBuffer)
}

func TestTerminalSendGivesUpWhenClosed(t *testing.T) {
	conn := NewHub().NewConnection(nil)
	fill(t, conn)

	errc := make(chan error, 1)
	go func() { errc <- conn.SendJSONWait(protocol.ResetComplete(), time.Minute) }()
	time.Sleep(20 * time.Millisecond)
	conn.closeSend()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrConnectionClosed)
	case <-time.After(time.Second):
		t.Fatal("waiting sender was not released on close")
	}
}

func TestTerminalSendTimesOut(t *testing.T) {
	conn := NewHub().NewConnection(nil)
	fill(t, conn)

	err := conn.SendJSONWait(protocol.ResetComplete(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrBufferFull)
}

func TestEmitDropsUnencodableEvents(t *testing.T) {
	conn := NewHub().NewConnection(nil)
	conn.Emit(map[string]interface{}{"bad": make(chan int)})
	assert.Len(t, conn.Send, 0)
}

func TestRunClosesConnectionsOnShutdown(t *testing.T) {
	h, cancel := startHub(t)
	conn := h.NewConnection(nil)
	h.Register(conn)
	require.Eventually(t, func() bool { return h.GetConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case _, ok := <-conn.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send queue was not closed")
	}

	// Registration after shutdown closes the queue instead of blocking.
	late := h.NewConnection(nil)
	h.Register(late)
	_, ok := <-late.Send
	assert.False(t, ok)
}
