package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
	"github.com/fanlume/fanlume-backend/internal/realtime"
)

// HandoffNotifier pushes handoff lifecycle events to agent SSE channels.
// Delivery is fire-and-forget; a dropped event never rolls back state.
type HandoffNotifier struct {
	log     *logger.Logger
	emitter SSEEmitter
}

func NewHandoffNotifier(baseLog *logger.Logger, emitter SSEEmitter) *HandoffNotifier {
	return &HandoffNotifier{
		log:     baseLog.With("component", "HandoffNotifier"),
		emitter: emitter,
	}
}

func (n *HandoffNotifier) Notify(ctx context.Context, agentIDs []uuid.UUID, event realtime.SSEEvent, row *types.ConversationHandoff) {
	if n == nil || n.emitter == nil || row == nil {
		return
	}
	for _, agentID := range agentIDs {
		n.emitter.Emit(ctx, realtime.SSEMessage{
			Channel: agentID.String(),
			Event:   event,
			Data:    row,
		})
	}
	n.log.Debug("handoff event emitted", "event", event, "handoff_id", row.ID, "agents", len(agentIDs))
}
