package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/timesheet-approval/internal/application/dispatcher"
	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/domain/event"
)

// NotificationService turns timesheet transition and membership events into
// chat messages.
// Delivery failures are logged, never propagated to the transition.
type NotificationService interface {
	// Register subscribes the service's handlers on d
	Register(d dispatcher.Dispatcher)
	HandleSubmitted(ctx context.Context, evt *event.Event) error
	HandleDecision(ctx context.Context, evt *event.Event) error
	HandleMembershipChanged(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	profiles port.ProfileRepository
	notifier port.Notifier
	logger   Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(profiles port.ProfileRepository, notifier port.Notifier, logger Logger) NotificationService {
	return &notificationServiceImpl{
		profiles: profiles,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeTimesheetSubmitted, "notify-supervisor", s.HandleSubmitted)
	d.SubscribeNamed(event.TypeTimesheetApproved, "notify-owner-approved", s.HandleDecision)
	d.SubscribeNamed(event.TypeTimesheetRejected, "notify-owner-rejected", s.HandleDecision)
	d.SubscribeNamed(event.TypeMembershipChanged, "notify-member", s.HandleMembershipChanged)
}

// HandleSubmitted messages the owner's supervisor, if both have chat identities.
func (s *notificationServiceImpl) HandleSubmitted(ctx context.Context, evt *event.Event) error {
	ownerID := evt.GetPayloadString(event.KeyAccountID)

	owner, err := s.profiles.Get(ctx, ownerID)
	if err != nil {
		s.logger.Error("Failed to load owner profile", "account_id", ownerID, "error", err)
		return nil
	}
	if owner == nil || owner.SupervisorID == nil {
		return nil
	}

	supervisor, err := s.profiles.Get(ctx, *owner.SupervisorID)
	if err != nil {
		s.logger.Error("Failed to load supervisor profile", "account_id", *owner.SupervisorID, "error", err)
		return nil
	}
	if supervisor == nil || supervisor.LarkOpenID == "" {
		return nil
	}

	text := fmt.Sprintf("%s submitted the timesheet for the week of %s for your approval.",
		displayName(owner.Name, owner.AccountID), evt.GetPayloadString(event.KeyWeekStart))

	s.send(ctx, evt, supervisor.LarkOpenID, text)
	return nil
}

// HandleDecision messages the owner with the approver's comment.
func (s *notificationServiceImpl) HandleDecision(ctx context.Context, evt *event.Event) error {
	ownerID := evt.GetPayloadString(event.KeyAccountID)

	owner, err := s.profiles.Get(ctx, ownerID)
	if err != nil {
		s.logger.Error("Failed to load owner profile", "account_id", ownerID, "error", err)
		return nil
	}
	if owner == nil || owner.LarkOpenID == "" {
		return nil
	}

	verb := "approved"
	if evt.Type == event.TypeTimesheetRejected {
		verb = "rejected"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your timesheet for the week of %s was %s.", evt.GetPayloadString(event.KeyWeekStart), verb)
	if c := evt.GetPayloadString(event.KeyComment); c != "" {
		fmt.Fprintf(&b, "\nComment: %s", c)
	}

	s.send(ctx, evt, owner.LarkOpenID, b.String())
	return nil
}

// HandleMembershipChanged tells the member their new roles on the team, or
// that they were removed when no roles remain.
func (s *notificationServiceImpl) HandleMembershipChanged(ctx context.Context, evt *event.Event) error {
	memberID := evt.SubjectID

	member, err := s.profiles.Get(ctx, memberID)
	if err != nil {
		s.logger.Error("Failed to load member profile", "account_id", memberID, "error", err)
		return nil
	}
	if member == nil || member.LarkOpenID == "" {
		return nil
	}

	team := evt.GetPayloadString(event.KeyTeamID)
	text := fmt.Sprintf("You were removed from team %s.", team)
	if roles := evt.GetPayloadString(event.KeyRoles); roles != "" {
		text = fmt.Sprintf("Your roles on team %s are now: %s.", team, strings.ReplaceAll(roles, ",", ", "))
	}

	s.send(ctx, evt, member.LarkOpenID, text)
	return nil
}

func (s *notificationServiceImpl) send(ctx context.Context, evt *event.Event, openID, text string) {
	if err := s.notifier.SendText(ctx, openID, text); err != nil {
		s.logger.Error("Failed to send notification",
			"event_type", evt.Type,
			"subject_id", evt.SubjectID,
			"open_id", openID,
			"error", err,
		)
		return
	}
	s.logger.Info("Notification sent", "event_type", evt.Type, "subject_id", evt.SubjectID, "open_id", openID)
}

func displayName(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
