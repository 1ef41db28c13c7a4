package http

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/gridverse/internal/core"
	"github.com/vovakirdan/gridverse/internal/proto"
	"github.com/vovakirdan/gridverse/internal/store"
)

// inboundToCommand maps a client envelope to a core command. Malformed join
// payloads are reported with core.ErrBadJoin; everything else with core.ErrBadRequest.
func inboundToCommand(inbound proto.Inbound) (*core.Command, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Payload, &join); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrBadJoin, err)
		}
		return &core.Command{
			Kind: core.CommandJoin,
			Join: &core.JoinRequest{
				SpaceID: string(join.SpaceID),
				MapID:   string(join.MapID),
				Token:   join.Token,
			},
		}, nil
	case proto.InboundTypeMove:
		var move proto.MoveData
		if err := json.Unmarshal(inbound.Payload, &move); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrBadRequest, err)
		}
		if move.X == nil || move.Y == nil {
			return nil, fmt.Errorf("%w: x and y are required", core.ErrBadRequest)
		}
		return &core.Command{
			Kind: core.CommandMove,
			Move: &core.MoveRequest{X: *move.X, Y: *move.Y, Teleport: move.Teleport},
		}, nil
	case proto.InboundTypeChat:
		var chat proto.ChatData
		if err := json.Unmarshal(inbound.Payload, &chat); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrBadRequest, err)
		}
		tagged := make([]string, 0, len(chat.TaggedUserIDs))
		for _, id := range chat.TaggedUserIDs {
			if id != "" {
				tagged = append(tagged, string(id))
			}
		}
		return &core.Command{
			Kind: core.CommandChat,
			Chat: &core.ChatRequest{
				Text:          chat.Text,
				DisplayName:   chat.DisplayName,
				TaggedUserIDs: tagged,
			},
		}, nil
	default:
		if !core.IsSignal(inbound.Type) {
			return nil, fmt.Errorf("%w: unknown message type %q", core.ErrBadRequest, inbound.Type)
		}
		payload := make(map[string]json.RawMessage)
		raw := bytes.TrimSpace(inbound.Payload)
		if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, fmt.Errorf("%w: signal payload must be an object: %v", core.ErrBadRequest, err)
			}
		}
		return &core.Command{
			Kind:   core.CommandSignal,
			Signal: &core.Signal{Type: inbound.Type, Payload: payload},
		}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventJoined:
		typ := proto.OutboundTypeSpaceJoined
		if event.Room.Kind == store.RoomKindMap {
			typ = proto.OutboundTypeMapJoined
		}
		users := make([]proto.Occupant, 0, len(event.Joined.Users))
		for _, u := range event.Joined.Users {
			users = append(users, proto.Occupant{
				ID:        u.SessionID,
				UserID:    u.UserID,
				Username:  u.Username,
				X:         u.Cell.X,
				Y:         u.Cell.Y,
				AvatarURL: u.AvatarURL,
			})
		}
		messages := make([]proto.ChatMessage, 0, len(event.Joined.Messages))
		for i := range event.Joined.Messages {
			messages = append(messages, chatMessage(&event.Joined.Messages[i]))
		}
		return proto.Outbound{
			Type: typ,
			Payload: proto.JoinedData{
				Spawn:     proto.Cell{X: event.Joined.Spawn.X, Y: event.Joined.Spawn.Y},
				UserID:    event.Joined.UserID,
				AvatarURL: event.Joined.AvatarURL,
				Users:     users,
				Messages:  messages,
			},
		}
	case core.EventUserJoined:
		return proto.Outbound{
			Type: proto.OutboundTypeUserJoined,
			Payload: proto.UserJoinedData{
				UserID:    event.Occupant.UserID,
				Username:  event.Occupant.Username,
				X:         event.Occupant.Cell.X,
				Y:         event.Occupant.Cell.Y,
				AvatarURL: event.Occupant.AvatarURL,
			},
		}
	case core.EventUserLeft:
		return proto.Outbound{
			Type:    proto.OutboundTypeUserLeft,
			Payload: proto.UserLeftData{UserID: event.Occupant.UserID},
		}
	case core.EventMovement:
		return proto.Outbound{
			Type: proto.OutboundTypeMovement,
			Payload: proto.MovementData{
				UserID: event.Position.UserID,
				X:      event.Position.X,
				Y:      event.Position.Y,
			},
		}
	case core.EventMovementAccepted:
		return proto.Outbound{
			Type:    proto.OutboundTypeMovementAccepted,
			Payload: proto.Point{X: event.Position.X, Y: event.Position.Y},
		}
	case core.EventMovementRejected:
		return proto.Outbound{
			Type:    proto.OutboundTypeMovementRejected,
			Payload: proto.Point{X: event.Position.X, Y: event.Position.Y},
		}
	case core.EventChat:
		return proto.Outbound{
			Type:    proto.OutboundTypeChat,
			Payload: chatMessage(event.Message),
		}
	case core.EventSignal:
		return proto.Outbound{
			Type:    event.Signal.Type,
			Payload: event.Signal.Payload,
		}
	default:
		return proto.Outbound{Type: "unknown"}
	}
}

func chatMessage(msg *core.Message) proto.ChatMessage {
	tagged := msg.TaggedUsers
	if tagged == nil {
		tagged = []string{}
	}
	return proto.ChatMessage{
		ID:          msg.ID,
		UserID:      msg.UserID,
		DisplayName: msg.DisplayName,
		Text:        msg.Text,
		CreatedAt:   core.FormatCreatedAt(msg.CreatedAt),
		TaggedUsers: tagged,
	}
}
