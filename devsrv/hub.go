package devsrv

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	MsgReload = "reload"
	MsgCSS    = "css"
)

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// hub keeps the connected live reload clients.
type hub struct {
	srv      *Server
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[string]*client
}

func newHub(srv *Server) *hub {
	return &hub{
		srv: srv,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  256,
			WriteBufferSize: 256,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: uuid.NewString(), conn: conn}
	h.mu.Lock()
	h.clients[c.id] = c
	h.srv.clients.Set(float64(len(h.clients)))
	h.mu.Unlock()
	h.srv.debug("live reload `client` connected from `addr`", `client`, c.id, `addr`, r.RemoteAddr)
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.conn.Close()
	}
	h.srv.clients.Set(float64(len(h.clients)))
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) broadcast(msg string) int {
	h.mu.Lock()
	cs := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		cs = append(cs, c)
	}
	h.mu.Unlock()
	n := 0
	for _, c := range cs {
		if err := c.send(msg); err != nil {
			h.remove(c)
		} else {
			n++
		}
	}
	return n
}

func (h *hub) close() {
	h.mu.Lock()
	cs := h.clients
	h.clients = make(map[string]*client)
	h.srv.clients.Set(0)
	h.mu.Unlock()
	for _, c := range cs {
		c.conn.Close()
	}
}
