package testtool

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"giveback_client/pkg"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
)

// 模擬外部協作者 (REST 後端 + live channel server)，整合測試用
// 不屬於交付的產品邏輯，語意只到測試需要的深度

// FakeUser seed 進假後端的帳號
type FakeUser struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     string
}

type fakeGroup struct {
	ID          string   `json:"_id"`
	GroupName   string   `json:"groupName"`
	Members     []string `json:"members"`
	LastMessage string   `json:"lastMessage"`
}

type fakeMessage struct {
	ID          string    `json:"_id"`
	ChatGroupID string    `json:"chatGroupId"`
	Sender      string    `json:"sender"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

type fakeNotification struct {
	ID          string    `json:"_id"`
	Sender      string    `json:"sender"`
	Content     string    `json:"content"`
	ChatGroupID string    `json:"chatGroupId"`
	CreatedAt   time.Time `json:"createdAt"`
	Read        bool      `json:"read"`
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// FakeBackend in-process 的假後端
type FakeBackend struct {
	App     *fiber.App
	BaseURL string
	WSURL   string

	secret []byte

	mu          sync.Mutex
	users       map[string]FakeUser           // email → user
	groups      map[string]*fakeGroup         // group id → group
	messages    map[string][]fakeMessage      // group id → messages
	notes       map[string][]fakeNotification // user id → notifications
	initiated   map[string]string             // donee/donor/donation → group id
	idempotency map[string]string             // idempotency key → group id
	conns       map[*websocket.Conn]string    // conn → user id
	rooms       map[string][]*websocket.Conn  // group id → joined conns
	nextID      int
}

// StartFakeBackend 啟動假後端，回傳關閉函式
func StartFakeBackend() (*FakeBackend, func(), error) {
	b := &FakeBackend{
		App:         fiber.New(fiber.Config{DisableStartupMessage: true}),
		secret:      []byte("fake-backend-secret"),
		users:       map[string]FakeUser{},
		groups:      map[string]*fakeGroup{},
		messages:    map[string][]fakeMessage{},
		notes:       map[string][]fakeNotification{},
		initiated:   map[string]string{},
		idempotency: map[string]string{},
		conns:       map[*websocket.Conn]string{},
		rooms:       map[string][]*websocket.Conn{},
	}
	b.registerRoutes()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, err
	}
	b.BaseURL = "http://" + ln.Addr().String()
	b.WSURL = "ws://" + ln.Addr().String() + "/socket"

	go func() {
		_ = b.App.Listener(ln)
	}()
	// 等 fiber 起來
	time.Sleep(50 * time.Millisecond)

	return b, func() { _ = b.App.Shutdown() }, nil
}

func (b *FakeBackend) newID(prefix string) string {
	b.nextID++
	return fmt.Sprintf("%s-%d", prefix, b.nextID)
}

// AddUser seed 帳號
func (b *FakeBackend) AddUser(name, email, password, role string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.newID("user")
	b.users[email] = FakeUser{ID: id, Name: name, Email: email, Password: password, Role: role}
	return id
}

// AddNotification seed 歷史通知
func (b *FakeBackend) AddNotification(userID, sender, content, groupID string, read bool) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.newID("note")
	b.notes[userID] = append(b.notes[userID], fakeNotification{
		ID: id, Sender: sender, Content: content, ChatGroupID: groupID,
		CreatedAt: time.Now(), Read: read,
	})
	return id
}

// AddGroup seed 聊天群組
func (b *FakeBackend) AddGroup(name string, members ...string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.newID("group")
	b.groups[id] = &fakeGroup{ID: id, GroupName: name, Members: members}
	return id
}

// Group 取群組目前狀態 (preview 驗證用)
func (b *FakeBackend) Group(id string) fakeGroup {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.groups[id]
}

// RoomSize 房間目前的連線數，測試等 join 生效用
func (b *FakeBackend) RoomSize(groupID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rooms[groupID])
}

func (b *FakeBackend) mintToken(u FakeUser) string {
	claims := jwt.MapClaims{
		"user_id": u.ID,
		"role":    u.Role,
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := t.SignedString(b.secret)
	return signed
}

func (b *FakeBackend) authorized(c *fiber.Ctx) bool {
	return len(c.Get("Authorization")) > 7
}

func (b *FakeBackend) registerRoutes() {
	app := b.App

	app.Post("/api/auth/login", func(c *fiber.Ctx) error {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"msg": "bad request"})
		}
		b.mu.Lock()
		u, ok := b.users[body.Email]
		b.mu.Unlock()
		if !ok || u.Password != body.Password {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"msg": "Invalid credentials"})
		}
		return c.JSON(fiber.Map{
			"token":    b.mintToken(u),
			"id":       u.ID,
			"email":    u.Email,
			"userType": u.Role,
		})
	})

	app.Post("/api/auth/register", func(c *fiber.Ctx) error {
		var body struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"userType"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"msg": "bad request"})
		}
		b.AddUser(body.Name, body.Email, body.Password, body.Role)
		return c.SendStatus(fiber.StatusCreated)
	})

	app.Get("/api/chats/user/:userID", func(c *fiber.Ctx) error {
		userID := c.Params("userID")
		b.mu.Lock()
		defer b.mu.Unlock()
		out := []fakeGroup{}
		for _, g := range b.groups {
			if pkg.Contains(g.Members, userID) {
				out = append(out, *g)
			}
		}
		return c.JSON(out)
	})

	app.Get("/api/chats/messages/:groupID", func(c *fiber.Ctx) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		msgs := b.messages[c.Params("groupID")]
		if msgs == nil {
			msgs = []fakeMessage{}
		}
		return c.JSON(msgs)
	})

	app.Post("/api/chats/messages", func(c *fiber.Ctx) error {
		var body struct {
			ChatGroupID string `json:"chatGroupId"`
			SenderID    string `json:"senderId"`
			Content     string `json:"content"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"msg": "bad request"})
		}
		b.mu.Lock()
		id := b.newID("msg")
		msg := fakeMessage{
			ID: id, ChatGroupID: body.ChatGroupID, Sender: body.SenderID,
			Content: body.Content, CreatedAt: time.Now(),
		}
		b.messages[body.ChatGroupID] = append(b.messages[body.ChatGroupID], msg)
		if g, ok := b.groups[body.ChatGroupID]; ok {
			g.LastMessage = body.Content
		}
		b.mu.Unlock()
		return c.JSON(fiber.Map{"messageId": id})
	})

	app.Post("/api/chats/initiate", func(c *fiber.Ctx) error {
		var body struct {
			DoneeID        string `json:"doneeId"`
			DonorID        string `json:"donorId"`
			DonationID     string `json:"donationId"`
			ItemName       string `json:"itemName"`
			InitialMessage string `json:"initialMessage"`
			IdempotencyKey string `json:"idempotencyKey"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"msg": "bad request"})
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		if id, ok := b.idempotency[body.IdempotencyKey]; ok && body.IdempotencyKey != "" {
			return c.JSON(fiber.Map{"chatGroupId": id})
		}
		// 同三元組只建一個群組
		triple := body.DoneeID + "/" + body.DonorID + "/" + body.DonationID
		if id, ok := b.initiated[triple]; ok {
			b.idempotency[body.IdempotencyKey] = id
			return c.JSON(fiber.Map{"chatGroupId": id})
		}

		id := b.newID("group")
		b.groups[id] = &fakeGroup{
			ID: id, GroupName: body.ItemName,
			Members: []string{body.DoneeID, body.DonorID}, LastMessage: body.InitialMessage,
		}
		b.messages[id] = append(b.messages[id], fakeMessage{
			ID: b.newID("msg"), ChatGroupID: id, Sender: body.DoneeID,
			Content: body.InitialMessage, CreatedAt: time.Now(),
		})
		b.initiated[triple] = id
		b.idempotency[body.IdempotencyKey] = id
		return c.JSON(fiber.Map{"chatGroupId": id})
	})

	app.Get("/api/chats/existence/:doneeID/:donorID/:donationID", func(c *fiber.Ctx) error {
		triple := c.Params("doneeID") + "/" + c.Params("donorID") + "/" + c.Params("donationID")
		b.mu.Lock()
		_, ok := b.initiated[triple]
		b.mu.Unlock()
		return c.JSON(fiber.Map{"exists": ok})
	})

	app.Get("/api/notifications/user/:userID", func(c *fiber.Ctx) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		notes := b.notes[c.Params("userID")]
		if notes == nil {
			notes = []fakeNotification{}
		}
		return c.JSON(notes)
	})

	app.Put("/api/notifications/:noteID/read", func(c *fiber.Ctx) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		for userID := range b.notes {
			for i := range b.notes[userID] {
				if b.notes[userID][i].ID == c.Params("noteID") {
					b.notes[userID][i].Read = true
				}
			}
		}
		return c.SendStatus(fiber.StatusOK)
	})

	app.Put("/api/notifications/user/:userID/read-all", func(c *fiber.Ctx) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.notes[c.Params("userID")] {
			b.notes[c.Params("userID")][i].Read = true
		}
		return c.SendStatus(fiber.StatusOK)
	})

	app.Get("/api/donations/donor/:donorID", func(c *fiber.Ctx) error {
		if !b.authorized(c) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"msg": "Missing token"})
		}
		return c.JSON([]fiber.Map{})
	})

	app.Get("/api/donations", func(c *fiber.Ctx) error {
		return c.JSON([]fiber.Map{})
	})

	// live channel
	app.Use("/socket", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/socket", websocket.New(b.handleSocket))
}

func (b *FakeBackend) handleSocket(conn *websocket.Conn) {
	userID := conn.Query("userId")

	b.mu.Lock()
	b.conns[conn] = userID
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.conns, conn)
		for gid := range b.rooms {
			b.leaveRoomLocked(gid, conn)
		}
		b.mu.Unlock()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}

		switch env.Event {
		case "joinChatGroup":
			var groupID string
			if err := json.Unmarshal(env.Data, &groupID); err != nil {
				continue
			}
			b.mu.Lock()
			b.rooms[groupID] = append(b.rooms[groupID], conn)
			b.mu.Unlock()

		case "leaveChatGroup":
			var groupID string
			if err := json.Unmarshal(env.Data, &groupID); err != nil {
				continue
			}
			b.mu.Lock()
			b.leaveRoomLocked(groupID, conn)
			b.mu.Unlock()

		case "sendMessage":
			var msg fakeMessage
			if err := json.Unmarshal(env.Data, &msg); err != nil {
				continue
			}
			b.broadcastMessage(msg)
		}
	}
}

func (b *FakeBackend) leaveRoomLocked(groupID string, conn *websocket.Conn) {
	members := b.rooms[groupID]
	for i, c := range members {
		if c == conn {
			b.rooms[groupID] = append(members[:i], members[i+1:]...)
			break
		}
	}
}

// broadcastMessage 把訊息 echo 給房間內所有連線 (含送出者)，
// 並對群組內其他成員的連線發 newNotification
func (b *FakeBackend) broadcastMessage(msg fakeMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	send := func(conn *websocket.Conn, event string, data interface{}) {
		payload, _ := json.Marshal(data)
		raw, _ := json.Marshal(envelope{Event: event, Data: payload})
		_ = conn.WriteMessage(websocket.TextMessage, raw)
	}

	for _, conn := range b.rooms[msg.ChatGroupID] {
		send(conn, "messageReceived", msg)
	}

	group, ok := b.groups[msg.ChatGroupID]
	if !ok {
		return
	}
	group.LastMessage = msg.Content
	for conn, userID := range b.conns {
		if userID != msg.Sender && pkg.Contains(group.Members, userID) {
			send(conn, "newNotification", map[string]string{
				"sender":      msg.Sender,
				"message":     msg.Content,
				"chatGroupId": msg.ChatGroupID,
			})
		}
	}
}
