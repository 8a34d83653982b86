// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// NotificationType tags a notification with the domain event that produced it.
type NotificationType string

const (
	NotificationNewMessage        NotificationType = "NewMessage"
	NotificationNewProposal       NotificationType = "NewProposal"
	NotificationProposalSent      NotificationType = "ProposalSent"
	NotificationProposalAccepted  NotificationType = "ProposalAccepted"
	NotificationContractCompleted NotificationType = "ContractCompleted"
	NotificationNewProject        NotificationType = "NewProject"
)

// Notification is a per-user notification record. Immutable once created
// except IsRead, which only transitions false -> true.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NotificationPayload is implemented by the typed payload carried by each
// notification type. Payloads are serialized through EncodePayload so the
// event-to-payload contract stays in one place.
type NotificationPayload interface {
	NotificationType() NotificationType
}

// NewMessagePayload deep-links the client into a conversation.
type NewMessagePayload struct {
	ConversationKey string `json:"conversationKey"`
	MessageID       string `json:"messageId"`
	SenderID        string `json:"senderId"`
	ProjectID       string `json:"projectId,omitempty"`
}

func (NewMessagePayload) NotificationType() NotificationType { return NotificationNewMessage }

// NewProposalPayload is sent to the project owner when a proposal arrives.
type NewProposalPayload struct {
	ProposalID   string  `json:"proposalId"`
	ProjectID    string  `json:"projectId"`
	FreelancerID string  `json:"freelancerId"`
	BidAmount    float64 `json:"bidAmount"`
}

func (NewProposalPayload) NotificationType() NotificationType { return NotificationNewProposal }

// ProposalSentPayload confirms submission to the proposing freelancer.
type ProposalSentPayload struct {
	ProposalID string `json:"proposalId"`
	ProjectID  string `json:"projectId"`
}

func (ProposalSentPayload) NotificationType() NotificationType { return NotificationProposalSent }

// ProposalAcceptedPayload is sent to both parties on acceptance.
type ProposalAcceptedPayload struct {
	ProposalID      string `json:"proposalId"`
	ProjectID       string `json:"projectId"`
	ContractID      string `json:"contractId"`
	ConversationKey string `json:"conversationKey"`
}

func (ProposalAcceptedPayload) NotificationType() NotificationType {
	return NotificationProposalAccepted
}

// ContractCompletedPayload is sent to both parties on completion. ReviewUserID
// names the counterparty the recipient is prompted to review.
type ContractCompletedPayload struct {
	ContractID   string  `json:"contractId"`
	ProjectID    string  `json:"projectId"`
	ReviewUserID string  `json:"reviewUserId"`
	AgreedAmount float64 `json:"agreedAmount"`
}

func (ContractCompletedPayload) NotificationType() NotificationType {
	return NotificationContractCompleted
}

// NewProjectPayload is broadcast to eligible users when a project is posted.
type NewProjectPayload struct {
	ProjectID string  `json:"projectId"`
	OwnerID   string  `json:"ownerId"`
	Title     string  `json:"title"`
	Budget    float64 `json:"budget"`
}

func (NewProjectPayload) NotificationType() NotificationType { return NotificationNewProject }

// EncodePayload serializes a typed payload for storage on a Notification.
func EncodePayload(p NotificationPayload) (json.RawMessage, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", p.NotificationType(), err)
	}
	return raw, nil
}
