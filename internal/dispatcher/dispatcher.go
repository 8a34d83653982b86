// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

// Package dispatcher is the event fan-out core. Each domain event is
// published to a topic; one consumer handler per topic computes the
// recipient set, applies per-recipient notification preferences, persists
// notification records, and attempts a best-effort realtime push.
//
// Fan-out is a side effect of an already-committed primary write. Handlers
// therefore never return errors: every failure in here is logged, counted,
// and swallowed so it cannot reach the caller of the primary operation.
package dispatcher

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"golang.org/x/time/rate"

	"github.com/lanserve/lanserve/internal/config"
	"github.com/lanserve/lanserve/internal/logging"
	"github.com/lanserve/lanserve/internal/metrics"
	"github.com/lanserve/lanserve/internal/models"
	"github.com/lanserve/lanserve/internal/realtime"
)

// Notifications is the slice of the notification store the dispatcher needs.
type Notifications interface {
	Insert(ctx context.Context, n *models.Notification) (*models.Notification, error)
}

// Settings supplies per-recipient notification preferences.
type Settings interface {
	Ensure(ctx context.Context, userID string) (*models.UserSettings, error)
}

// Users resolves display names and the broadcast recipient set.
type Users interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Pusher is the best-effort realtime gateway.
type Pusher interface {
	SendToUser(userID, event string, data any)
}

// Dispatcher routes domain events to notification fan-out handlers over an
// in-process Pub/Sub.
type Dispatcher struct {
	pubsub        *gochannel.GoChannel
	router        *message.Router
	notifications Notifications
	settings      Settings
	users         Users
	pusher        Pusher
	broadcast     *rate.Limiter
}

// New builds the dispatcher, wires the router middleware, and registers one
// handler per event topic. Run must be called before events are consumed.
func New(cfg config.DispatcherConfig, notifications Notifications, settings Settings, users Users, pusher Pusher) (*Dispatcher, error) {
	wmLogger := watermill.NewStdLogger(false, false)

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.BufferSize,
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event router: %w", err)
	}

	// Recoverer only. There is deliberately no retry middleware: fan-out
	// failures are logged and swallowed, never replayed.
	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(middleware.CorrelationID)

	d := &Dispatcher{
		pubsub:        pubsub,
		router:        router,
		notifications: notifications,
		settings:      settings,
		users:         users,
		pusher:        pusher,
	}
	if cfg.BroadcastPerSecond > 0 {
		d.broadcast = rate.NewLimiter(rate.Limit(cfg.BroadcastPerSecond), cfg.BroadcastPerSecond)
	}

	handlers := []struct {
		name    string
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{"message-sent", TopicMessageSent, d.handleMessageSent},
		{"proposal-created", TopicProposalCreated, d.handleProposalCreated},
		{"proposal-accepted", TopicProposalAccepted, d.handleProposalAccepted},
		{"proposal-cancelled", TopicProposalCancelled, d.handleProposalCancelled},
		{"contract-completed", TopicContractCompleted, d.handleContractCompleted},
		{"project-created", TopicProjectCreated, d.handleProjectCreated},
	}
	for _, h := range handlers {
		router.AddNoPublisherHandler(h.name, h.topic, pubsub, h.handler)
	}

	return d, nil
}

// Run starts the router and blocks until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	return d.router.Run(ctx)
}

// Running returns a channel closed once the router is consuming. Tests and
// startup ordering wait on it.
func (d *Dispatcher) Running() chan struct{} {
	return d.router.Running()
}

// Close shuts down the router and the in-process Pub/Sub.
func (d *Dispatcher) Close() error {
	if err := d.router.Close(); err != nil {
		return fmt.Errorf("failed to close event router: %w", err)
	}
	return d.pubsub.Close()
}

// Publish hands a domain event to the dispatcher. Fire-and-forget: encoding
// or publish failures are logged and swallowed, because fan-out must never
// fail the primary operation that produced the event.
func (d *Dispatcher) Publish(ctx context.Context, e Event) {
	msg, err := Encode(e)
	if err != nil {
		metrics.DispatchFailures.WithLabelValues(e.Topic()).Inc()
		logging.CtxErr(ctx, err).Str("topic", e.Topic()).Msg("Failed to encode event")
		return
	}
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		middleware.SetCorrelationID(cid, msg)
	}
	if err := d.pubsub.Publish(e.Topic(), msg); err != nil {
		metrics.DispatchFailures.WithLabelValues(e.Topic()).Inc()
		logging.CtxErr(ctx, err).Str("topic", e.Topic()).Msg("Failed to publish event")
		return
	}
	metrics.EventsPublished.WithLabelValues(e.Topic()).Inc()
}

// ---- handlers ----

func (d *Dispatcher) handleMessageSent(msg *message.Message) error {
	var ev MessageSent
	if err := Decode(msg, &ev); err != nil {
		d.fail(TopicMessageSent, err)
		return nil
	}
	ctx := msg.Context()
	m := ev.Message

	// Realtime message delivery is not gated by notification preferences;
	// the message itself was already durably written.
	d.pusher.SendToUser(m.ReceiverID, realtime.EventReceiveMessage, m)

	if !d.allows(ctx, m.ReceiverID, models.NotificationNewMessage) {
		return nil
	}

	sender := "Someone"
	if u, err := d.users.GetUser(ctx, m.SenderID); err == nil && u.FullName != "" {
		sender = u.FullName
	}
	payload, err := models.EncodePayload(models.NewMessagePayload{
		ConversationKey: m.ConversationKey,
		MessageID:       m.ID,
		SenderID:        m.SenderID,
		ProjectID:       m.ProjectID,
	})
	if err != nil {
		d.fail(TopicMessageSent, err)
		return nil
	}
	d.notify(ctx, &models.Notification{
		UserID:  m.ReceiverID,
		Type:    models.NotificationNewMessage,
		Title:   "New message",
		Message: fmt.Sprintf("%s: %s", sender, messagePreview(m.Text)),
		Payload: payload,
	}, TopicMessageSent)
	return nil
}

func (d *Dispatcher) handleProposalCreated(msg *message.Message) error {
	var ev ProposalCreated
	if err := Decode(msg, &ev); err != nil {
		d.fail(TopicProposalCreated, err)
		return nil
	}
	ctx := msg.Context()
	p := ev.Proposal

	freelancer := "A freelancer"
	if u, err := d.users.GetUser(ctx, p.FreelancerID); err == nil && u.FullName != "" {
		freelancer = u.FullName
	}

	// Project owner: a new proposal arrived.
	if payload, err := models.EncodePayload(models.NewProposalPayload{
		ProposalID:   p.ID,
		ProjectID:    p.ProjectID,
		FreelancerID: p.FreelancerID,
		BidAmount:    p.BidAmount,
	}); err != nil {
		d.fail(TopicProposalCreated, err)
	} else {
		d.notify(ctx, &models.Notification{
			UserID:  ev.ProjectOwnerID,
			Type:    models.NotificationNewProposal,
			Title:   "New proposal",
			Message: fmt.Sprintf("%s submitted a proposal on %q", freelancer, ev.ProjectTitle),
			Payload: payload,
		}, TopicProposalCreated)
	}

	// Freelancer: submission confirmation.
	if payload, err := models.EncodePayload(models.ProposalSentPayload{
		ProposalID: p.ID,
		ProjectID:  p.ProjectID,
	}); err != nil {
		d.fail(TopicProposalCreated, err)
	} else {
		d.notify(ctx, &models.Notification{
			UserID:  p.FreelancerID,
			Type:    models.NotificationProposalSent,
			Title:   "Proposal sent",
			Message: fmt.Sprintf("Your proposal on %q was submitted", ev.ProjectTitle),
			Payload: payload,
		}, TopicProposalCreated)
	}
	return nil
}

func (d *Dispatcher) handleProposalAccepted(msg *message.Message) error {
	var ev ProposalAccepted
	if err := Decode(msg, &ev); err != nil {
		d.fail(TopicProposalAccepted, err)
		return nil
	}
	ctx := msg.Context()

	payload, err := models.EncodePayload(models.ProposalAcceptedPayload{
		ProposalID:      ev.Proposal.ID,
		ProjectID:       ev.Proposal.ProjectID,
		ContractID:      ev.ContractID,
		ConversationKey: ev.ConversationKey,
	})
	if err != nil {
		d.fail(TopicProposalAccepted, err)
		return nil
	}
	// Both parties are told; payloads are identical.
	for _, recipient := range []string{ev.Proposal.FreelancerID, ev.ClientID} {
		d.notify(ctx, &models.Notification{
			UserID:  recipient,
			Type:    models.NotificationProposalAccepted,
			Title:   "Proposal accepted",
			Message: "The proposal was accepted and a contract was created",
			Payload: payload,
		}, TopicProposalAccepted)
	}
	return nil
}

// handleProposalCancelled keeps an audit log line only; cancellation
// produces no notifications.
func (d *Dispatcher) handleProposalCancelled(msg *message.Message) error {
	var ev ProposalCancelled
	if err := Decode(msg, &ev); err != nil {
		d.fail(TopicProposalCancelled, err)
		return nil
	}
	logging.Ctx(msg.Context()).Info().
		Str("proposal_id", ev.Proposal.ID).
		Str("project_id", ev.Proposal.ProjectID).
		Msg("Proposal cancelled")
	return nil
}

func (d *Dispatcher) handleContractCompleted(msg *message.Message) error {
	var ev ContractCompleted
	if err := Decode(msg, &ev); err != nil {
		d.fail(TopicContractCompleted, err)
		return nil
	}
	ctx := msg.Context()
	c := ev.Contract

	// Each party is prompted to review the other.
	pairs := []struct {
		recipient string
		review    string
		text      string
	}{
		{c.ClientID, c.FreelancerID, "Your contract is complete. Leave a review for the freelancer."},
		{c.FreelancerID, c.ClientID, "Your contract is complete. Leave a review for the client."},
	}
	for _, pair := range pairs {
		payload, err := models.EncodePayload(models.ContractCompletedPayload{
			ContractID:   c.ID,
			ProjectID:    c.ProjectID,
			ReviewUserID: pair.review,
			AgreedAmount: c.AgreedAmount,
		})
		if err != nil {
			d.fail(TopicContractCompleted, err)
			continue
		}
		d.notify(ctx, &models.Notification{
			UserID:  pair.recipient,
			Type:    models.NotificationContractCompleted,
			Title:   "Contract completed",
			Message: pair.text,
			Payload: payload,
		}, TopicContractCompleted)
	}
	return nil
}

func (d *Dispatcher) handleProjectCreated(msg *message.Message) error {
	var ev ProjectCreated
	if err := Decode(msg, &ev); err != nil {
		d.fail(TopicProjectCreated, err)
		return nil
	}
	ctx := msg.Context()
	p := ev.Project

	users, err := d.users.ListUsers(ctx)
	if err != nil {
		d.fail(TopicProjectCreated, err)
		return nil
	}

	payload, err := models.EncodePayload(models.NewProjectPayload{
		ProjectID: p.ID,
		OwnerID:   p.OwnerID,
		Title:     p.Title,
		Budget:    p.Budget,
	})
	if err != nil {
		d.fail(TopicProjectCreated, err)
		return nil
	}

	for _, u := range users {
		if u.ID == p.OwnerID {
			continue
		}
		if !d.allows(ctx, u.ID, models.NotificationNewProject) {
			continue
		}
		// Pace the broadcast so one project post cannot monopolize the
		// store.
		if d.broadcast != nil {
			if err := d.broadcast.Wait(ctx); err != nil {
				d.fail(TopicProjectCreated, err)
				return nil
			}
		}
		d.notify(ctx, &models.Notification{
			UserID:  u.ID,
			Type:    models.NotificationNewProject,
			Title:   "New project posted",
			Message: fmt.Sprintf("%q is open for proposals", p.Title),
			Payload: payload,
		}, TopicProjectCreated)
	}
	return nil
}

// ---- fan-out plumbing ----

// allows applies the recipient's preference gate for a notification type.
// A failed settings lookup counts as enabled: losing the gate must not lose
// the notification.
func (d *Dispatcher) allows(ctx context.Context, userID string, t models.NotificationType) bool {
	settings, err := d.settings.Ensure(ctx, userID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("user_id", userID).
			Msg("Settings lookup failed, treating notifications as enabled")
		return true
	}
	enabled := true
	switch t {
	case models.NotificationNewMessage:
		enabled = settings.NotificationSettings.MessageNotifications
	case models.NotificationNewProject:
		enabled = settings.NotificationSettings.NewProjectNotifications
	}
	if !enabled {
		metrics.NotificationsSkipped.WithLabelValues(string(t)).Inc()
	}
	return enabled
}

// notify persists one notification record and then attempts the realtime
// push. Persist-then-push: the push is an acceleration of an already-durable
// record, never a substitute for it.
func (d *Dispatcher) notify(ctx context.Context, n *models.Notification, topic string) {
	created, err := d.notifications.Insert(ctx, n)
	if err != nil {
		d.fail(topic, err)
		return
	}
	metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	d.pusher.SendToUser(created.UserID, realtime.EventReceiveNotification, created)
}

func (d *Dispatcher) fail(topic string, err error) {
	metrics.DispatchFailures.WithLabelValues(topic).Inc()
	logging.Error().Err(err).Str("topic", topic).Msg("Fan-out side effect failed")
}
