// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package dispatcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/lanserve/lanserve/internal/models"
)

// Topics carrying domain events. One consumer handler per topic.
const (
	TopicMessageSent       = "marketplace.message.sent"
	TopicProposalCreated   = "marketplace.proposal.created"
	TopicProposalAccepted  = "marketplace.proposal.accepted"
	TopicProposalCancelled = "marketplace.proposal.cancelled"
	TopicContractCompleted = "marketplace.contract.completed"
	TopicProjectCreated    = "marketplace.project.created"
)

// Event is a domain fact handed to the dispatcher. Events describe what
// happened; the dispatcher's mapping decides who gets notified.
type Event interface {
	Topic() string
}

// MessageSent fires after a message append is durable.
type MessageSent struct {
	Message models.Message `json:"message"`
}

func (MessageSent) Topic() string { return TopicMessageSent }

// ProposalCreated fires after a proposal insert is durable.
type ProposalCreated struct {
	Proposal models.Proposal `json:"proposal"`
	// ProjectOwnerID is resolved by the producer so the handler does not
	// re-read the project.
	ProjectOwnerID string `json:"projectOwnerId"`
	ProjectTitle   string `json:"projectTitle"`
}

func (ProposalCreated) Topic() string { return TopicProposalCreated }

// ProposalAccepted fires after the proposal flip and contract insert are
// durable.
type ProposalAccepted struct {
	Proposal        models.Proposal `json:"proposal"`
	ContractID      string          `json:"contractId"`
	ClientID        string          `json:"clientId"`
	ConversationKey string          `json:"conversationKey"`
}

func (ProposalAccepted) Topic() string { return TopicProposalAccepted }

// ProposalCancelled fires after a cancellation is durable. It produces no
// notifications today; the topic exists so the card-retraction audit trail
// shares the event path.
type ProposalCancelled struct {
	Proposal models.Proposal `json:"proposal"`
}

func (ProposalCancelled) Topic() string { return TopicProposalCancelled }

// ContractCompleted fires after the contract and project flips are durable.
type ContractCompleted struct {
	Contract models.Contract `json:"contract"`
}

func (ContractCompleted) Topic() string { return TopicContractCompleted }

// ProjectCreated fires after a project insert is durable.
type ProjectCreated struct {
	Project models.Project `json:"project"`
}

func (ProjectCreated) Topic() string { return TopicProjectCreated }

// Encode serializes an event into a watermill message.
func Encode(e Event) (*message.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", e.Topic(), err)
	}
	return message.NewMessage(watermill.NewUUID(), payload), nil
}

// Decode unmarshals a watermill message payload into the given event struct.
func Decode(msg *message.Message, out Event) error {
	if err := json.Unmarshal(msg.Payload, out); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", out.Topic(), err)
	}
	return nil
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

const previewMaxLen = 100

// messagePreview renders a message body for notification text: tags
// stripped, whitespace collapsed, truncated on a rune boundary with an
// ellipsis. Synthetic proposal cards are HTML, so the strip matters; the
// body is user-authored text, so byte slicing could split a rune.
func messagePreview(text string) string {
	plain := htmlTagPattern.ReplaceAllString(text, " ")
	plain = strings.Join(strings.Fields(plain), " ")
	if runes := []rune(plain); len(runes) > previewMaxLen {
		plain = strings.TrimSpace(string(runes[:previewMaxLen])) + "..."
	}
	return plain
}
