package obsws

import (
	"encoding/json"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelworks/logisim/internal/core"
	"github.com/parcelworks/logisim/internal/sim"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestBroadcastReachesClient(t *testing.T) {
	s := NewServer(log.New(testWriter{t}, "[obsws] ", 0))
	defer s.Close()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)

	agent := core.NewAgent(1, "R1", core.Cell{Row: 2, Col: 3})
	pkg := core.NewPackage(0, "P1", core.Cell{Row: 0, Col: 0}, core.Cell{Row: 5, Col: 5})
	msg := Snapshot(7, false, []*core.Agent{agent}, []*core.Package{pkg}, sim.Stats{Moves: 9})

	// The subscription races the dial; retry until the client is
	// registered.
	got := make(chan []byte, 1)
	go func() {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, b, err := conn.ReadMessage()
		if err == nil {
			got <- b
		}
	}()
	deadline := time.After(5 * time.Second)
	for {
		s.Broadcast(msg)
		select {
		case b := <-got:
			var decoded TickMsg
			require.NoError(t, json.Unmarshal(b, &decoded))
			assert.Equal(t, "tick", decoded.Type)
			assert.Equal(t, 7, decoded.Tick)
			require.Len(t, decoded.Agents, 1)
			assert.Equal(t, [2]int{2, 3}, decoded.Agents[0].Pos)
			assert.Equal(t, "IDLE", decoded.Agents[0].State)
			require.Len(t, decoded.Packages, 1)
			assert.Equal(t, "WAITING", decoded.Packages[0].State)
			assert.Equal(t, 9, decoded.Stats.Moves)
			return
		case <-deadline:
			t.Fatal("no broadcast received")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestCloseDisconnectsClients(t *testing.T) {
	s := NewServer(log.New(testWriter{t}, "[obsws] ", 0))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	s.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return // server closed the connection
		}
	}
}

func TestBroadcastWithNoClients(t *testing.T) {
	s := NewServer(log.New(testWriter{t}, "[obsws] ", 0))
	defer s.Close()
	s.Broadcast(Snapshot(1, true, nil, nil, sim.Stats{}))
}

// testWriter routes server logs through the test output.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
