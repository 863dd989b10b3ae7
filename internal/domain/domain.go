package domain

import (
	"github.com/fanlume/fanlume-backend/internal/domain/agent"
	"github.com/fanlume/fanlume-backend/internal/domain/fan"
	"github.com/fanlume/fanlume-backend/internal/domain/handoff"
	"github.com/fanlume/fanlume-backend/internal/domain/messaging"
)

type FanProfile = fan.FanProfile
type FanMemory = fan.FanMemory

type SpendingTier = fan.SpendingTier
type ActivityLevel = fan.ActivityLevel
type Tone = fan.Tone
type QualityTier = fan.QualityTier
type MemoryCategory = fan.MemoryCategory
type MemorySource = fan.MemorySource

type Conversation = messaging.Conversation
type ConversationMode = messaging.ConversationMode
type Message = messaging.Message
type MessageSender = messaging.MessageSender
type Transaction = messaging.Transaction
type Subscription = messaging.Subscription

type ConversationHandoff = handoff.ConversationHandoff
type HandoffStatus = handoff.Status
type HandoffTriggerType = handoff.TriggerType

type Agent = agent.Agent
type AgentAssignment = agent.AgentAssignment
type CreatorAISettings = agent.CreatorAISettings

const (
	SpendingTierWhale   = fan.SpendingTierWhale
	SpendingTierRegular = fan.SpendingTierRegular
	SpendingTierFree    = fan.SpendingTierFree

	ActivityDaily      = fan.ActivityDaily
	ActivityWeekly     = fan.ActivityWeekly
	ActivityOccasional = fan.ActivityOccasional
	ActivityInactive   = fan.ActivityInactive
	ActivityUnknown    = fan.ActivityUnknown

	QualityTierVIP         = fan.QualityTierVIP
	QualityTierQualified   = fan.QualityTierQualified
	QualityTierUnqualified = fan.QualityTierUnqualified
	QualityTierUnknown     = fan.QualityTierUnknown

	MemoryCategoryPersonal     = fan.MemoryCategoryPersonal
	MemoryCategoryPreference   = fan.MemoryCategoryPreference
	MemoryCategoryEvent        = fan.MemoryCategoryEvent
	MemoryCategoryPurchase     = fan.MemoryCategoryPurchase
	MemoryCategoryRelationship = fan.MemoryCategoryRelationship

	MemorySourcePattern = fan.MemorySourcePattern
	MemorySourceAI      = fan.MemorySourceAI
	MemorySourceChatter = fan.MemorySourceChatter
	MemorySourceManual  = fan.MemorySourceManual

	ConversationModeAuto     = messaging.ConversationModeAuto
	ConversationModeAssisted = messaging.ConversationModeAssisted
	MessageSenderFan         = messaging.MessageSenderFan
	MessageSenderCreator     = messaging.MessageSenderCreator

	HandoffStatusPending      = handoff.StatusPending
	HandoffStatusAutoAssigned = handoff.StatusAutoAssigned
	HandoffStatusAccepted     = handoff.StatusAccepted
	HandoffStatusDeclined     = handoff.StatusDeclined
	HandoffStatusExpired      = handoff.StatusExpired

	TriggerSpendingThreshold = handoff.TriggerSpendingThreshold
	TriggerHighIntent        = handoff.TriggerHighIntent
	TriggerQualityUpgrade    = handoff.TriggerQualityUpgrade
	TriggerManual            = handoff.TriggerManual
)
