package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// SMTPIntake accepts messages over SMTP and runs each through the triage pipeline.
// Clients authenticate with AUTH PLAIN, sending their bearer token as the password.
type SMTPIntake struct {
	service *core.TriageService
	cfg     config.SMTPIntakeConfig
	logger  *zap.Logger
	server  *smtp.Server
}

// NewSMTPIntake creates a new SMTP intake
func NewSMTPIntake(service *core.TriageService, cfg config.SMTPIntakeConfig, logger *zap.Logger) *SMTPIntake {
	i := &SMTPIntake{
		service: service,
		cfg:     cfg,
		logger:  logger,
	}

	i.server = smtp.NewServer(&smtpBackend{intake: i})
	i.server.Addr = cfg.ListenAddress
	i.server.Domain = cfg.Domain
	i.server.ReadTimeout = 30 * time.Second
	i.server.WriteTimeout = 30 * time.Second
	i.server.MaxMessageBytes = cfg.MaxMessageBytes
	i.server.MaxRecipients = 50
	i.server.AllowInsecureAuth = cfg.AllowInsecureAuth

	return i
}

// Name identifies the intake in logs
func (i *SMTPIntake) Name() string {
	return "smtp"
}

// Start binds the listen address and serves in the background
func (i *SMTPIntake) Start() error {
	ln, err := net.Listen("tcp", i.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", i.cfg.ListenAddress, err)
	}

	i.logger.Info("SMTP intake listening", zap.String("address", i.cfg.ListenAddress))
	go func() {
		if err := i.server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			i.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop closes the listener and all open sessions
func (i *SMTPIntake) Stop() error {
	i.logger.Info("Stopping SMTP intake")
	return i.server.Close()
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	intake *SMTPIntake
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{intake: b.intake}, nil
}

// smtpSession implements the go-smtp Session and AuthSession interfaces
type smtpSession struct {
	intake    *SMTPIntake
	token     string
	principal *core.Principal
	from      string
	rcpts     []string
}

// AuthMechanisms advertises PLAIN only
func (s *smtpSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

// Auth resolves the password as a bearer credential
func (s *smtpSession) Auth(mech string) (sasl.Server, error) {
	if mech != sasl.Plain {
		return nil, smtp.ErrAuthUnknownMechanism
	}

	return sasl.NewPlainServer(func(identity, username, password string) error {
		ctx, cancel := context.WithTimeout(context.Background(), s.intake.cfg.ProcessTimeout)
		defer cancel()

		principal, err := s.intake.service.Authorize(ctx, "Bearer "+password)
		if err != nil {
			s.intake.logger.Warn("SMTP authentication rejected",
				zap.String("username", username),
				zap.Error(err))
			if errors.Is(err, core.ErrProfileNotFound) {
				return &smtp.SMTPError{
					Code:         535,
					EnhancedCode: smtp.EnhancedCode{5, 7, 8},
					Message:      "User profile not found",
				}
			}
			return smtp.ErrAuthFailed
		}

		s.token = password
		s.principal = principal
		return nil
	}), nil
}

// Mail sets the envelope sender
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	if s.principal == nil {
		return smtp.ErrAuthRequired
	}
	s.from = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.rcpts = append(s.rcpts, to)
	return nil
}

// Data classifies and stores the message
func (s *smtpSession) Data(r io.Reader) error {
	logger := s.intake.logger

	raw, err := io.ReadAll(r)
	if err != nil {
		logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := ParseMessage(raw)
	if err != nil {
		logger.Info("Rejecting unparsable message", zap.Error(err))
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Message could not be parsed",
		}
	}

	payload, err := AnalysisPayload(msg, s.principal.ID, time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.intake.cfg.ProcessTimeout)
	defer cancel()

	record, err := s.intake.service.AnalyzeEmail(ctx, "Bearer "+s.token, payload)
	if err != nil {
		logger.Warn("SMTP message not analysed",
			zap.String("envelope_from", s.from),
			zap.String("message_id", msg.MessageID),
			zap.Error(err))
		return smtpError(err)
	}

	logger.Info("Processed email",
		zap.String("id", record.ID),
		zap.String("envelope_from", s.from),
		zap.Int("recipients", len(s.rcpts)),
		zap.Int("risk_score", record.RiskScore),
		zap.String("risk_level", string(record.RiskLevel)))
	return nil
}

// smtpError maps pipeline failures to permanent or transient SMTP replies
func smtpError(err error) *smtp.SMTPError {
	var validationErr *core.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Invalid message: " + validationErr.Error(),
		}
	case errors.Is(err, core.ErrProfileNotFound):
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      "User profile not found",
		}
	case errors.Is(err, core.ErrUnauthorized):
		return &smtp.SMTPError{
			Code:         535,
			EnhancedCode: smtp.EnhancedCode{5, 7, 8},
			Message:      "Unauthorized",
		}
	default:
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Analysis temporarily unavailable, try again later",
		}
	}
}

// Reset clears the envelope but keeps the authentication
func (s *smtpSession) Reset() {
	s.from = ""
	s.rcpts = nil
}

// Logout ends the session
func (s *smtpSession) Logout() error {
	return nil
}
