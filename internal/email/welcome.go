package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aylahq/ayla-agent/internal/config"
)

// Sender mails the welcome message with login credentials after
// account creation. It satisfies the tool registry's Mailer interface.
type Sender struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
}

// NewSender builds a welcome mail sender. Returns nil when SMTP is not
// configured; the registry treats a nil mailer as disabled.
func NewSender(cfg config.SMTPConfig, logger *slog.Logger) *Sender {
	if !cfg.Configured() {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{cfg: cfg, logger: logger}
}

const welcomeSubject = "Bem-vindo à Ayla! Suas credenciais de acesso"

const welcomeBody = `# Olá, %s!

Sua conta na **Ayla** foi criada com sucesso. 🎉

Suas credenciais de acesso:

- **Email:** %s
- **Senha temporária:** %s

Recomendamos alterar sua senha após o primeiro login.

Para montarmos seus planos de treino e alimentação, finalize seu cadastro aqui:

[Continuar meu onboarding](%s)

Até já!
Equipe Ayla`

// SendWelcome composes and delivers the credentials email. Errors are
// returned to the caller, which logs and carries on; a failed mail
// never blocks account creation.
func (s *Sender) SendWelcome(ctx context.Context, to, name, tempPassword, onboardingURL string) error {
	body := fmt.Sprintf(welcomeBody, name, to, tempPassword, onboardingURL)
	msg, err := ComposeMessage(ComposeOptions{
		From:    s.cfg.From,
		To:      to,
		Subject: welcomeSubject,
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("compose welcome mail: %w", err)
	}

	if err := SendMail(ctx, s.cfg, to, msg); err != nil {
		return fmt.Errorf("send welcome mail: %w", err)
	}
	s.logger.Info("welcome mail sent", "to", to)
	return nil
}
