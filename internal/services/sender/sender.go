// Package sender отправляет письма по событиям из очередей уведомлений.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/examprep/internal/lib/ist"
	"github.com/magabrotheeeer/examprep/internal/lib/sl"
	"github.com/magabrotheeeer/examprep/internal/lib/smtp"
	"github.com/magabrotheeeer/examprep/internal/metrics"
	"github.com/magabrotheeeer/examprep/internal/models"
)

// Виды уведомлений в метриках.
const (
	KindGiftCode = "giftcode"
	KindMockTest = "mocktest"
	KindExpiring = "expiring"
	KindRefund   = "refund"
)

// Service отправитель писем.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// New создает Service.
func New(transport smtp.TransportInterface, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

// SendGiftCodeRedeemed письмо о подключении подписки по подарочному коду.
func (s *Service) SendGiftCodeRedeemed(body []byte) error {
	const op = "sender.SendGiftCodeRedeemed"
	var event models.GiftCodeRedeemed
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal message body", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	if event.Email == "" {
		s.log.Warn("gift code event without email, skipped", sl.User(event.UserUID))
		return nil
	}

	subject := "Gold subscription activated"
	bodyText := fmt.Sprintf("Hello!\r\n\r\nGift code %s has been applied to your account.\r\n"+
		"Your %s subscription is active until %s (IST).\r\n\r\nHappy preparing!",
		event.Code, strings.ToUpper(string(event.Tier)), event.ExpiresAt.In(ist.Location).Format("02 Jan 2006"))

	return s.send(KindGiftCode, event.Email, subject, bodyText)
}

// SendMockTestSubmitted письмо с результатом пробного теста.
func (s *Service) SendMockTestSubmitted(body []byte) error {
	const op = "sender.SendMockTestSubmitted"
	var event models.MockTestSubmitted
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal message body", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	if event.Email == "" {
		s.log.Warn("mock test event without email, skipped", sl.User(event.UserUID))
		return nil
	}

	subject := fmt.Sprintf("Your result for %s", event.MockTestName)
	var b strings.Builder
	fmt.Fprintf(&b, "Hello!\r\n\r\nYou have submitted %s.\r\n", event.MockTestName)
	fmt.Fprintf(&b, "Score: %d\r\nCorrect: %d\r\nWrong: %d\r\nUnanswered: %d\r\n",
		event.Score, event.Correct, event.Wrong, event.Unanswered)
	if event.SubmittedLate {
		b.WriteString("Note: the test was submitted after the time limit.\r\n")
	}
	b.WriteString("\r\nOpen the review to see the answers and explanations.")

	return s.send(KindMockTest, event.Email, subject, b.String())
}

// SendSubscriptionExpiring напоминание о завтрашнем окончании подписки.
func (s *Service) SendSubscriptionExpiring(body []byte) error {
	const op = "sender.SendSubscriptionExpiring"
	var event models.SubscriptionExpiring
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal message body", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	if event.Email == "" {
		s.log.Warn("expiring subscription event without email, skipped", sl.User(event.UserUID))
		return nil
	}

	subject := "Your subscription ends tomorrow"
	bodyText := fmt.Sprintf("Hello!\r\n\r\nYour %s subscription ends on %s (IST).\r\n"+
		"After that the free daily limits apply. Renew the plan to keep full access.",
		strings.ToUpper(string(event.Tier)), event.ExpiresAt.In(ist.Location).Format("02 Jan 2006 15:04"))

	return s.send(KindExpiring, event.Email, subject, bodyText)
}

// SendRefundRequested подтверждение приема заявки на возврат.
func (s *Service) SendRefundRequested(body []byte) error {
	const op = "sender.SendRefundRequested"
	var event models.RefundRequested
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal message body", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	if event.Email == "" {
		s.log.Warn("refund request event without email, skipped", sl.User(event.UserUID))
		return nil
	}

	subject := "We received your refund request"
	bodyText := fmt.Sprintf("Hello!\r\n\r\nYour refund request %s from %s (IST) has been received.\r\n"+
		"Our team will review it and get back to you by email.",
		event.FeedbackID, event.CreatedAt.In(ist.Location).Format("02 Jan 2006 15:04"))

	return s.send(KindRefund, event.Email, subject, bodyText)
}

func (s *Service) send(kind, to, subject, bodyText string) error {
	err := s.sendEmail([]string{to}, subject, bodyText)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.NotificationsSent.WithLabelValues(kind, status).Inc()
	return err
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	const op = "sender.sendEmail"
	from := s.transport.GetSMTPUser()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		_ = wc.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
