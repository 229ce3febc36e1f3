// Package notify delivers user notifications. Every notification is stored
// in-app; email delivery is best effort on top and never fails the calling
// operation.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tenantry/rentd/internal/log"
	"github.com/tenantry/rentd/internal/store"
)

// Well-known notification types.
const (
	TypeMaintenanceAssigned = "maintenance_assigned"
	TypeMaintenanceStatus   = "maintenance_status"
	TypeRentDue             = "rent_due"
	TypeRentOverdue         = "rent_overdue"
	TypePaymentReceived     = "payment_received"
)

// EmailSender sends a plain-text email. Implementations must be safe for
// concurrent use.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Notifier fans a notification out to the in-app store and, when the user
// has an email address, to the mail sender.
type Notifier struct {
	store store.Store
	email EmailSender
}

// New creates a Notifier. email may be nil to disable mail delivery.
func New(s store.Store, email EmailSender) *Notifier {
	return &Notifier{store: s, email: email}
}

// Notify records an in-app notification for the user and emails them a copy.
// Email failures are logged, not returned; the stored notification is the
// delivery of record.
func (n *Notifier) Notify(ctx context.Context, userID, typ, title, message, deepLink string) error {
	notif := &store.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		DeepLink:  deepLink,
		CreatedAt: time.Now(),
	}
	if err := n.store.CreateNotification(ctx, notif); err != nil {
		return err
	}

	if n.email == nil {
		return nil
	}
	user, err := n.store.UserByID(ctx, userID)
	if err != nil || user.Email == "" {
		return nil
	}
	if err := n.email.Send(ctx, user.Email, title, message); err != nil {
		logger := log.WithComponentFromContext(ctx, "notify")
		logger.Warn().Err(err).Str("user_id", userID).Str("type", typ).Msg("email delivery failed")
	}
	return nil
}
