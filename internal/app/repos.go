package app

import (
	"gorm.io/gorm"

	"github.com/fanlume/fanlume-backend/internal/data/repos"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

type Repos struct {
	FanProfiles     repos.FanProfileRepo
	FanMemories     repos.FanMemoryRepo
	Messages        repos.MessageRepo
	Conversations   repos.ConversationRepo
	Transactions    repos.TransactionRepo
	Subscriptions   repos.SubscriptionRepo
	Handoffs        repos.HandoffRepo
	Agents          repos.AgentRepo
	CreatorSettings repos.CreatorSettingsRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		FanProfiles:     repos.NewFanProfileRepo(db, log),
		FanMemories:     repos.NewFanMemoryRepo(db, log),
		Messages:        repos.NewMessageRepo(db, log),
		Conversations:   repos.NewConversationRepo(db, log),
		Transactions:    repos.NewTransactionRepo(db, log),
		Subscriptions:   repos.NewSubscriptionRepo(db, log),
		Handoffs:        repos.NewHandoffRepo(db, log),
		Agents:          repos.NewAgentRepo(db, log),
		CreatorSettings: repos.NewCreatorSettingsRepo(db, log),
	}
}
