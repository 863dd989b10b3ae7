package repos

import (
	"gorm.io/gorm"

	agentrepo "github.com/fanlume/fanlume-backend/internal/data/repos/agent"
	fanrepo "github.com/fanlume/fanlume-backend/internal/data/repos/fan"
	handoffrepo "github.com/fanlume/fanlume-backend/internal/data/repos/handoff"
	messagingrepo "github.com/fanlume/fanlume-backend/internal/data/repos/messaging"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

type FanProfileRepo = fanrepo.FanProfileRepo
type FanMemoryRepo = fanrepo.FanMemoryRepo

type MessageRepo = messagingrepo.MessageRepo
type ConversationRepo = messagingrepo.ConversationRepo
type TransactionRepo = messagingrepo.TransactionRepo
type SubscriptionRepo = messagingrepo.SubscriptionRepo
type SpendSummary = messagingrepo.SpendSummary

type HandoffRepo = handoffrepo.HandoffRepo

type AgentRepo = agentrepo.AgentRepo
type CreatorSettingsRepo = agentrepo.CreatorSettingsRepo

func NewFanProfileRepo(db *gorm.DB, baseLog *logger.Logger) FanProfileRepo {
	return fanrepo.NewFanProfileRepo(db, baseLog)
}
func NewFanMemoryRepo(db *gorm.DB, baseLog *logger.Logger) FanMemoryRepo {
	return fanrepo.NewFanMemoryRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return messagingrepo.NewMessageRepo(db, baseLog)
}
func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return messagingrepo.NewConversationRepo(db, baseLog)
}
func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	return messagingrepo.NewTransactionRepo(db, baseLog)
}
func NewSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionRepo {
	return messagingrepo.NewSubscriptionRepo(db, baseLog)
}
func NewHandoffRepo(db *gorm.DB, baseLog *logger.Logger) HandoffRepo {
	return handoffrepo.NewHandoffRepo(db, baseLog)
}
func NewAgentRepo(db *gorm.DB, baseLog *logger.Logger) AgentRepo {
	return agentrepo.NewAgentRepo(db, baseLog)
}
func NewCreatorSettingsRepo(db *gorm.DB, baseLog *logger.Logger) CreatorSettingsRepo {
	return agentrepo.NewCreatorSettingsRepo(db, baseLog)
}
