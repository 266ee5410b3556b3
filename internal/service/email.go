package service

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"rentaldesk-bff/internal/config"
	"rentaldesk-bff/internal/domain"
	"rentaldesk-bff/internal/logger"
)

type mailSender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

type emailService struct {
	sender    mailSender
	fromEmail string
	fromName  string
}

// NewEmailService returns a SendGrid backed EmailService, or a no-op one when
// no API key is configured.
func NewEmailService(cfg config.EmailConfig) EmailService {
	if cfg.SendGridAPIKey == "" {
		return noopEmailService{}
	}
	return &emailService{
		sender:    sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

func (s *emailService) SendReturnReceipt(ctx context.Context, rental *domain.Rental, result *domain.ReturnResult, preview *domain.FinancialPreview) error {
	if rental.CustomerEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("Return receipt %s", result.TransactionNumber)
	plain := fmt.Sprintf("Hello %s,\n\nWe have received your return for rental %s.\n\nReturn transaction: %s\n",
		rental.CustomerName, rental.TransactionNumber, result.TransactionNumber)
	if preview != nil {
		plain += fmt.Sprintf("Rental subtotal: %s\nLate fees: %s\nDamage penalties: %s\nTotal: %s\nDeposit: %s\n",
			preview.RentalSubtotal.StringFixed(2), preview.LateFees.StringFixed(2), preview.DamagePenalties.StringFixed(2),
			preview.TotalAmount.StringFixed(2), preview.DepositAmount.StringFixed(2))
		if preview.IsRefund() {
			plain += fmt.Sprintf("Refund due: %s\n", preview.BalanceAmount.Neg().StringFixed(2))
		} else {
			plain += fmt.Sprintf("Balance due: %s\n", preview.BalanceAmount.StringFixed(2))
		}
	}
	plain += "\nThank you for renting with us."
	return s.send(ctx, "SendReturnReceipt", rental, subject, plain)
}

func (s *emailService) SendExtensionConfirmation(ctx context.Context, rental *domain.Rental, req *domain.ExtensionRequest, result *domain.ExtensionResult) error {
	if rental.CustomerEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("Rental %s extended", rental.TransactionNumber)
	plain := fmt.Sprintf("Hello %s,\n\nYour rental %s has been extended from %s to %s (%d days).\nExtension charge: %s\n",
		rental.CustomerName, rental.TransactionNumber, req.CurrentEndDate, req.NewEndDate, req.ExtensionDays,
		req.ExtensionCharge.StringFixed(2))
	if result.TransactionNumber != "" {
		plain += fmt.Sprintf("Reference: %s\n", result.TransactionNumber)
	}
	plain += "\nThank you for renting with us."
	return s.send(ctx, "SendExtensionConfirmation", rental, subject, plain)
}

func (s *emailService) send(ctx context.Context, op string, rental *domain.Rental, subject, plain string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(rental.CustomerName, rental.CustomerEmail)
	htmlContent := "<pre>" + html.EscapeString(plain) + "</pre>"
	message := mail.NewSingleEmail(from, subject, to, plain, htmlContent)

	logger.ExternalServiceCall(ctx, "sendgrid", op, "rental_id", rental.ID)
	response, err := s.sender.Send(message)
	if err != nil {
		err = fmt.Errorf("failed to send email: %w", err)
	} else if response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult(ctx, "sendgrid", op, err)
	return err
}

type noopEmailService struct{}

func (noopEmailService) SendReturnReceipt(context.Context, *domain.Rental, *domain.ReturnResult, *domain.FinancialPreview) error {
	return nil
}

func (noopEmailService) SendExtensionConfirmation(context.Context, *domain.Rental, *domain.ExtensionRequest, *domain.ExtensionResult) error {
	return nil
}
