package services

import (
	"context"

	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
	"github.com/fanlume/fanlume-backend/internal/realtime"
	"github.com/fanlume/fanlume-backend/internal/realtime/bus"
)

// SSEEmitter decouples services from the delivery fabric. In a single
// process the hub emitter broadcasts directly; with multiple replicas
// the redis emitter publishes and each replica's forwarder fans in.
type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

type hubEmitter struct {
	hub *realtime.SSEHub
}

func NewHubEmitter(hub *realtime.SSEHub) SSEEmitter {
	return &hubEmitter{hub: hub}
}

func (e *hubEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.hub.Broadcast(msg)
}

type redisEmitter struct {
	log *logger.Logger
	bus bus.Bus
}

func NewRedisEmitter(baseLog *logger.Logger, b bus.Bus) SSEEmitter {
	return &redisEmitter{log: baseLog.With("component", "RedisEmitter"), bus: b}
}

// Emit is fire-and-forget: publish failures are logged, never surfaced.
func (e *redisEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if err := e.bus.Publish(ctx, msg); err != nil {
		e.log.Warn("event publish failed", "event", msg.Event, "channel", msg.Channel, "error", err)
	}
}
