// Package obsws streams live tick snapshots to websocket observer
// clients. The stream is advisory: a slow or dead client is dropped, the
// simulation never blocks on the network.
package obsws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const clientBuffer = 64

type Server struct {
	log      *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	out  chan []byte
}

func NewServer(logger *log.Logger) *Server {
	return &Server{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler upgrades observer connections and keeps them subscribed until
// they disconnect.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		c := &client{conn: conn, out: make(chan []byte, clientBuffer)}
		if !s.add(c) {
			_ = conn.Close()
			return
		}
		s.log.Printf("observer connected: %s", conn.RemoteAddr())

		// Writer goroutine.
		go func() {
			for b := range c.out {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					s.drop(c)
					return
				}
			}
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		}()

		// Reader loop, drained only to detect disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		s.drop(c)
	}
}

// Broadcast marshals v once and queues it to every client. Clients whose
// buffers are full are dropped rather than awaited.
func (s *Server) Broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Printf("broadcast marshal: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.out <- b:
		default:
			s.log.Printf("observer too slow, dropping: %s", c.conn.RemoteAddr())
			delete(s.clients, c)
			close(c.out)
		}
	}
}

// Close disconnects every client and rejects future ones.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for c := range s.clients {
		delete(s.clients, c)
		close(c.out)
	}
}

func (s *Server) add(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.out)
	}
}
