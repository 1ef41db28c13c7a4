package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gridverse/internal/auth"
	"github.com/vovakirdan/gridverse/internal/config"
	"github.com/vovakirdan/gridverse/internal/core"
	"github.com/vovakirdan/gridverse/internal/proto"
	"github.com/vovakirdan/gridverse/internal/store"
	"github.com/vovakirdan/gridverse/internal/store/sqlite"
)

const testSecret = "testsecret"

type testEnv struct {
	ts    *httptest.Server
	store *sqlite.SQLiteStore
	hub   *core.Hub
	cfg   config.Config
}

// newTestEnv starts a server over a migrated in-memory store with
// space 1 (20x20, obstacle at 5,5 size 2x2) and map 7 (20x20).
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, name := range []string{"alice", "bob", "carol"} {
		if _, err := st.CreateUser(ctx, name, "https://cdn.example/"+name+".png"); err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
	}
	rooms := []*store.Room{
		{Kind: store.RoomKindSpace, ID: "1", Name: "lobby", Width: 20, Height: 20, Obstacles: []store.Obstacle{{X: 5, Y: 5, Width: 2, Height: 2}}},
		{Kind: store.RoomKindMap, ID: "7", Name: "plaza", Width: 20, Height: 20},
	}
	for _, r := range rooms {
		if err := st.UpsertRoom(ctx, r); err != nil {
			t.Fatalf("upsert room: %v", err)
		}
	}

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.JWTSecret = testSecret
	for _, fn := range mutate {
		fn(&cfg)
	}

	disabledLogger := zerolog.Nop()
	verifier := auth.NewVerifier(&auth.JWTConfig{Secret: []byte(cfg.JWTSecret)})
	hub := core.NewHub(st, verifier, core.Options{
		HistoryLimit:  cfg.HistoryLimit,
		MaxChatLength: cfg.MaxChatLength,
		MapSpawn:      core.Cell{X: cfg.MapSpawnX, Y: cfg.MapSpawnY},
	}, nil, &disabledLogger)

	server := NewServer(hub, verifier, st, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st, hub: hub, cfg: cfg}
}

func makeJWT(secret string, userID any, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"exp":    time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (e *testEnv) token(t *testing.T, userID any) string {
	t.Helper()

	token, err := makeJWT(testSecret, userID, time.Minute)
	if err != nil {
		t.Fatalf("make jwt: %v", err)
	}
	return token
}

func (e *testEnv) dial(ctx context.Context, t *testing.T) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Payload: raw}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

type outbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// readType reads until a message of typ arrives, skipping others.
func readType(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string) json.RawMessage {
	t.Helper()

	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if out.Type == typ {
			return out.Payload
		}
	}
}

// joinRoom dials, joins and returns the connection with its handshake reply.
func (e *testEnv) joinRoom(ctx context.Context, t *testing.T, userID int, room map[string]any) (*websocket.Conn, proto.JoinedData) {
	t.Helper()

	conn := e.dial(ctx, t)
	payload := map[string]any{"token": e.token(t, userID)}
	for k, v := range room {
		payload[k] = v
	}
	send(ctx, t, conn, proto.InboundTypeJoin, payload)

	typ := proto.OutboundTypeSpaceJoined
	if _, ok := room["mapId"]; ok {
		typ = proto.OutboundTypeMapJoined
	}
	var joined proto.JoinedData
	if err := json.Unmarshal(readType(ctx, t, conn, typ), &joined); err != nil {
		t.Fatalf("decode joined: %v", err)
	}
	return conn, joined
}
