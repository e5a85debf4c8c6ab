package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
)

const dispatchTimeout = 15 * time.Second

// TextSender delivers a single SMS. Satisfied by the gateway client.
type TextSender interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// Service fans domain events out to the configured channels. Delivery is
// best effort: failures are logged, never surfaced to the caller.
type Service struct {
	mailer MailSender
	sms    TextSender
	logg   *logger.Logger
}

// ServiceParams groups dependencies for the notification service. Mailer and
// SMS may be nil when the corresponding channel is not configured.
type ServiceParams struct {
	Mailer MailSender
	SMS    TextSender
	Logger *logger.Logger
}

// NewService builds the notification service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		mailer: params.Mailer,
		sms:    params.SMS,
		logg:   params.Logger,
	}, nil
}

// PaymentSubmitted acknowledges a manual payment that is now awaiting review.
func (s *Service) PaymentSubmitted(ctx context.Context, user *models.User, payment *models.Payment, pkg *models.Package) {
	if user == nil || payment == nil || pkg == nil {
		return
	}

	subject := "Payment received"
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>We received your %s payment of %s %s for the <b>%s</b> package. Your subscription will be activated once the payment is verified.</p>",
		user.DisplayName, payment.Method, payment.FinalPrice.StringFixed(2), payment.Currency, pkg.DisplayName,
	)
	text := fmt.Sprintf("Easy Q: payment of %s %s for %s received. We will confirm after verification.",
		payment.FinalPrice.StringFixed(2), payment.Currency, pkg.DisplayName)

	s.dispatch(ctx, user, subject, body, text)
}

// PaymentReviewed informs the user of the admin verification outcome.
func (s *Service) PaymentReviewed(ctx context.Context, user *models.User, payment *models.Payment, pkg *models.Package) {
	if user == nil || payment == nil || pkg == nil {
		return
	}

	var subject, outcome string
	switch payment.Status {
	case enums.PaymentStatusCompleted:
		subject = "Payment confirmed"
		outcome = "has been confirmed"
	case enums.PaymentStatusFailed:
		subject = "Payment could not be verified"
		outcome = "could not be verified"
	case enums.PaymentStatusRefunded:
		subject = "Payment refunded"
		outcome = "has been refunded"
	default:
		return
	}

	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your payment of %s %s for the <b>%s</b> package %s.</p>",
		user.DisplayName, payment.FinalPrice.StringFixed(2), payment.Currency, pkg.DisplayName, outcome,
	)
	text := fmt.Sprintf("Easy Q: your payment for %s %s.", pkg.DisplayName, outcome)

	s.dispatch(ctx, user, subject, body, text)
}

// SubscriptionActivated confirms that a subscription is live and usable.
func (s *Service) SubscriptionActivated(ctx context.Context, user *models.User, sub *models.Subscription, pkg *models.Package) {
	if user == nil || sub == nil || pkg == nil {
		return
	}

	subject := "Subscription activated"
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your <b>%s</b> subscription is now active. You can create up to %d question sets until %s.</p>",
		user.DisplayName, pkg.DisplayName, sub.QuestionLimit, sub.EndDate.Format("2 January 2006"),
	)
	text := fmt.Sprintf("Easy Q: your %s subscription is active (%d question sets, valid until %s).",
		pkg.DisplayName, sub.QuestionLimit, sub.EndDate.Format("02 Jan 2006"))

	s.dispatch(ctx, user, subject, body, text)
}

func (s *Service) dispatch(ctx context.Context, user *models.User, subject, body, text string) {
	detached := context.WithoutCancel(ctx)

	go func() {
		sendCtx, cancel := context.WithTimeout(detached, dispatchTimeout)
		defer cancel()

		if s.mailer != nil && user.Email != "" {
			if err := s.mailer.Send(user.Email, subject, body); err != nil {
				s.logg.Error(sendCtx, "send notification email", err)
			}
		}
		if s.sms != nil && user.Phone != nil && *user.Phone != "" {
			if err := s.sms.Send(sendCtx, *user.Phone, text); err != nil {
				s.logg.Error(sendCtx, "send notification sms", err)
			}
		}
	}()
}
