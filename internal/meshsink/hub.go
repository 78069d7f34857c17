package meshsink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans encoded frames out to every connected viewer.
type Hub struct {
	clients    map[*websocket.Conn]*sync.Mutex
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex

	// Welcome, when set, produces the frames a viewer receives right after connecting.
	Welcome func() [][]byte
}

// NewHub creates a hub whose broadcast queue holds up to queue frames.
func NewHub(queue int) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*sync.Mutex),
		broadcast:  make(chan []byte, max(queue, 1)),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = &sync.Mutex{}
			h.mu.Unlock()
			log.Printf("[Hub] viewer connected: %s", client.RemoteAddr())
		case client := <-h.unregister:
			h.drop(client)
		case message := <-h.broadcast:
			h.mu.Lock()
			type clientEntry struct {
				conn *websocket.Conn
				lock *sync.Mutex
			}
			targets := make([]clientEntry, 0, len(h.clients))
			for c, l := range h.clients {
				targets = append(targets, clientEntry{c, l})
			}
			h.mu.Unlock()

			for _, target := range targets {
				target.lock.Lock()
				err := target.conn.WriteMessage(websocket.BinaryMessage, message)
				target.lock.Unlock()
				if err != nil {
					log.Printf("[Hub] write to %s failed: %v", target.conn.RemoteAddr(), err)
					h.drop(target.conn)
				}
			}
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	lock, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	lock.Lock()
	conn.Close()
	lock.Unlock()
	log.Printf("[Hub] viewer disconnected: %s", conn.RemoteAddr())
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		h.drop(c)
	}
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues an encoded frame for every viewer. It reports false when the queue is full and
// the frame was dropped.
func (h *Hub) Broadcast(data []byte) bool {
	select {
	case h.broadcast <- data:
		return true
	default:
		log.Printf("[Hub] broadcast queue full, dropping %d byte frame", len(data))
		return false
	}
}

// WriteSafe sends to a single viewer, serialized with broadcasts to the same connection.
func (h *Hub) WriteSafe(conn *websocket.Conn, data []byte) error {
	h.mu.Lock()
	lock, ok := h.clients[conn]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("viewer %s not registered", conn.RemoteAddr())
	}
	lock.Lock()
	defer lock.Unlock()
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// ServeHTTP upgrades the request to a websocket and keeps the viewer registered until it hangs up.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Hub] websocket upgrade failed: %v", err)
		return
	}
	select {
	case h.register <- conn:
	case <-r.Context().Done():
		conn.Close()
		return
	}

	if h.Welcome != nil {
		for _, frame := range h.Welcome() {
			if err := h.WriteSafe(conn, frame); err != nil {
				log.Printf("[Hub] welcome to %s failed: %v", conn.RemoteAddr(), err)
				break
			}
		}
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			default:
				h.drop(conn)
			}
		}()
		for {
			// Viewers only send control frames; anything else is read and ignored.
			if _, _, err := conn.ReadMessage(); err != nil {
				var ce *websocket.CloseError
				if !errors.As(err, &ce) {
					log.Printf("[Hub] read from %s: %v", conn.RemoteAddr(), err)
				}
				return
			}
		}
	}()
}

// Subscribe connects to a hub at url and calls fn for every decoded frame until ctx is done or the
// connection fails.
func Subscribe(ctx context.Context, url string, fn func(*MeshFrame)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read %s: %w", url, err)
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		var frame MeshFrame
		if err := frame.Unmarshal(data); err != nil {
			log.Printf("[Subscribe] dropping frame: %v", err)
			continue
		}
		fn(&frame)
	}
}
