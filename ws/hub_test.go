package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func dialTest(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg wsMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	data, _ := json.Marshal(msg)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return msg
}

func TestHub_PresenceAndRelay(t *testing.T) {
	hub := NewHub(nil)
	ts := httptest.NewServer(hub.Handler())
	defer ts.Close()
	url := strings.Replace(ts.URL, "http", "ws", 1)

	user := dialTest(t, url)
	defer user.Close(websocket.StatusNormalClosure, "")
	send(t, user, wsMessage{Type: TypeUserOnline, UserID: "u1", Name: "Alice", Role: "user"})

	msg := recv(t, user)
	if msg.Type != TypeActiveUsers || len(msg.Users) != 1 {
		t.Fatalf("Expected ACTIVE_USERS with 1 user, got %+v", msg)
	}

	admin := dialTest(t, url)
	defer admin.Close(websocket.StatusNormalClosure, "")
	send(t, admin, wsMessage{Type: TypeUserOnline, UserID: "a1", Name: "Root", Role: "admin"})

	// les deux clients reçoivent la présence mise à jour
	msg = recv(t, user)
	if msg.Type != TypeActiveUsers || len(msg.Users) != 2 {
		t.Fatalf("Expected ACTIVE_USERS with 2 users, got %+v", msg)
	}
	msg = recv(t, admin)
	if msg.Type != TypeActiveUsers || len(msg.Users) != 2 {
		t.Fatalf("Expected ACTIVE_USERS with 2 users on admin side, got %+v", msg)
	}

	// user -> tous les admins
	send(t, user, wsMessage{Type: TypeUserToAdmin, Message: "help"})
	msg = recv(t, admin)
	if msg.Type != TypePrivateMessage || msg.From != "User" || msg.Message != "help" {
		t.Fatalf("Expected private message from User, got %+v", msg)
	}

	// admin -> user ciblé
	send(t, admin, wsMessage{Type: TypeAdminToUser, ToUserID: "u1", Message: "hello"})
	msg = recv(t, user)
	if msg.Type != TypePrivateMessage || msg.From != "Admin" || msg.Message != "hello" {
		t.Fatalf("Expected private message from Admin, got %+v", msg)
	}
}

func TestHub_ActiveUsersSorted(t *testing.T) {
	hub := NewHub(nil)
	hub.register(&client{UserPresence: UserPresence{UserID: "b", Name: "Bob", Role: "user"}})
	hub.register(&client{UserPresence: UserPresence{UserID: "a", Name: "Ann", Role: "admin"}})

	users := hub.ActiveUsers()
	if len(users) != 2 || users[0].UserID != "a" || users[1].UserID != "b" {
		t.Errorf("Expected sorted presence [a b], got %+v", users)
	}

	hub.remove("a")
	users = hub.ActiveUsers()
	if len(users) != 1 || users[0].UserID != "b" {
		t.Errorf("Expected only b after removal, got %+v", users)
	}
}
