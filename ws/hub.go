package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"powerbi-insight/logging"

	"github.com/coder/websocket"
)

// Types de messages échangés avec le client (mêmes noms que le front)
const (
	TypeUserOnline     = "USER_ONLINE"
	TypeAdminToUser    = "ADMIN_TO_USER"
	TypeUserToAdmin    = "USER_TO_ADMIN"
	TypeActiveUsers    = "ACTIVE_USERS"
	TypePrivateMessage = "PRIVATE_MESSAGE"
)

type wsMessage struct {
	Type     string         `json:"type"`
	UserID   string         `json:"userId,omitempty"`
	Name     string         `json:"name,omitempty"`
	Role     string         `json:"role,omitempty"`
	ToUserID string         `json:"toUserId,omitempty"`
	Message  string         `json:"message,omitempty"`
	From     string         `json:"from,omitempty"`
	Users    []UserPresence `json:"users,omitempty"`
}

// UserPresence : un utilisateur connecté, tel que diffusé aux clients
type UserPresence struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type client struct {
	UserPresence
	conn *websocket.Conn
}

// Hub : registre de présence + relais de messages privés admin<->user.
// Simple fan-out, tout l'état derrière un mutex.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	logger  *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		clients: map[string]*client{},
		logger:  logger,
	}
}

func (h *Hub) log(msg string) {
	if h.logger != nil {
		h.logger.Write(msg)
	}
}

// Handler accepte la connexion et boucle sur les messages jusqu'à la
// déconnexion. Un client n'apparaît dans la présence qu'après son
// USER_ONLINE.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // même origine servie par static/
		})
		if err != nil {
			h.log("[WS] accept failed: " + err.Error())
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx := r.Context()
		var userID string
		h.log("[WS] client connected")

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				break
			}
			var msg wsMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				h.log("[WS] bad message: " + err.Error())
				continue
			}
			switch msg.Type {
			case TypeUserOnline:
				if msg.UserID == "" {
					continue
				}
				userID = msg.UserID
				h.register(&client{
					UserPresence: UserPresence{UserID: msg.UserID, Name: msg.Name, Role: msg.Role},
					conn:         conn,
				})
				h.broadcastUsers()
			case TypeAdminToUser:
				h.sendTo(msg.ToUserID, wsMessage{
					Type:    TypePrivateMessage,
					From:    "Admin",
					Message: msg.Message,
				})
			case TypeUserToAdmin:
				h.sendToRole("admin", wsMessage{
					Type:    TypePrivateMessage,
					From:    "User",
					Message: msg.Message,
				})
			}
		}

		if userID != "" {
			h.remove(userID)
			h.broadcastUsers()
		}
		h.log("[WS] client disconnected user=" + userID)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.UserID] = c
	h.mu.Unlock()
	h.log("[WS] online user=" + c.UserID + " role=" + c.Role)
}

func (h *Hub) remove(userID string) {
	h.mu.Lock()
	delete(h.clients, userID)
	h.mu.Unlock()
}

// ActiveUsers : snapshot trié de la présence
func (h *Hub) ActiveUsers() []UserPresence {
	h.mu.Lock()
	defer h.mu.Unlock()
	users := make([]UserPresence, 0, len(h.clients))
	for _, c := range h.clients {
		users = append(users, c.UserPresence)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

func (h *Hub) broadcastUsers() {
	payload := wsMessage{Type: TypeActiveUsers, Users: h.ActiveUsers()}
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.Unlock()
	for _, conn := range conns {
		h.write(conn, payload)
	}
}

func (h *Hub) sendTo(userID string, msg wsMessage) {
	h.mu.Lock()
	c, ok := h.clients[userID]
	h.mu.Unlock()
	if !ok {
		return
	}
	h.write(c.conn, msg)
}

func (h *Hub) sendToRole(role string, msg wsMessage) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0)
	for _, c := range h.clients {
		if c.Role == role {
			conns = append(conns, c.conn)
		}
	}
	h.mu.Unlock()
	for _, conn := range conns {
		h.write(conn, msg)
	}
}

func (h *Hub) write(conn *websocket.Conn, msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		h.log("[WS] write failed: " + err.Error())
	}
}
