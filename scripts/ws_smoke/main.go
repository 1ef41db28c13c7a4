package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/gridverse/internal/auth"
	"github.com/vovakirdan/gridverse/internal/core"
	"github.com/vovakirdan/gridverse/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	secret := flag.String("secret", os.Getenv("GRIDVERSE_JWT_SECRET"), "JWT secret shared with the server")
	userID := flag.String("user", "1", "user id to put into the token")
	spaceID := flag.String("space", "1", "space to join (ignored when -map is set)")
	mapID := flag.String("map", "", "map to join")
	text := flag.String("text", "hello from smoke test", "chat text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	token, err := auth.GenerateToken(&auth.JWTConfig{Secret: []byte(*secret), TTL: time.Minute}, *userID, "")
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, payload any) error {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Payload: raw}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	join := proto.JoinData{Token: token, SpaceID: proto.ID(*spaceID)}
	if *mapID != "" {
		join = proto.JoinData{Token: token, MapID: proto.ID(*mapID)}
	}
	if err := send(proto.InboundTypeJoin, join); err != nil {
		return err
	}

	var spawn proto.Cell
	for {
		var out struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("Received outbound: type=%s payload=%s\n", out.Type, out.Payload)

		switch out.Type {
		case proto.OutboundTypeSpaceJoined, proto.OutboundTypeMapJoined:
			var joined proto.JoinedData
			if err := json.Unmarshal(out.Payload, &joined); err != nil {
				return fmt.Errorf("decode joined: %w", err)
			}
			spawn = joined.Spawn
			x := float64((spawn.X + 1) * core.CellSize)
			y := float64(spawn.Y * core.CellSize)
			if err := send(proto.InboundTypeMove, map[string]float64{"x": x, "y": y}); err != nil {
				return err
			}
		case proto.OutboundTypeMovementAccepted, proto.OutboundTypeMovementRejected:
			if err := send(proto.InboundTypeChat, proto.ChatData{Text: *text}); err != nil {
				return err
			}
		case proto.OutboundTypeChat:
			fmt.Println("smoke test passed")
			return nil
		}
	}
}
