package notify

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"goldbridge/internal/config"
	"goldbridge/internal/models"
)

// email.go - отправка уведомлений на почту
//
// Назначение:
// Письма о закрытии сделок и срабатывании предохранителя. Письмо
// собирается вручную (plain + HTML, multipart/alternative) и уходит
// через SMTP с STARTTLS. Без настроенных учётных данных отправка
// выключена.

// EmailSender шлёт письма через SMTP
type EmailSender struct {
	cfg    config.EmailConfig
	logger *zap.Logger

	// Подменяется в тестах
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailSender создаёт отправителя
func NewEmailSender(cfg config.EmailConfig, logger *zap.Logger) *EmailSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailSender{
		cfg:    cfg,
		logger: logger.Named("email"),
		send:   smtp.SendMail,
	}
}

// Enabled сообщает, настроена ли отправка
func (e *EmailSender) Enabled() bool {
	return e.cfg.Enabled()
}

// SendTradeClosed отправляет письмо о закрытой сделке
func (e *EmailSender) SendTradeClosed(rec models.TradeRecord) error {
	if !e.Enabled() {
		return nil
	}

	pl := 0.0
	if rec.ProfitLoss != nil {
		pl = *rec.ProfitLoss
	}
	exitPrice := 0.0
	if rec.ExitPrice != nil {
		exitPrice = *rec.ExitPrice
	}

	result := "ПРИБЫЛЬ"
	if pl < 0 {
		result = "УБЫТОК"
	}

	subject := fmt.Sprintf("Сделка закрыта: %s %.2f", result, pl)
	plain := fmt.Sprintf(
		"Сделка %s закрыта\n\nТип: %s\nОбъём: %.2f\nВход: %.2f\nВыход: %.2f\nP/L: %.2f\nПричина: %s\nДлительность: %s\n",
		rec.TradeID, rec.Type, rec.Volume, rec.EntryPrice, exitPrice, pl, rec.ExitReason, rec.Duration)
	html := fmt.Sprintf(
		`<h3>Сделка %s закрыта</h3><table border="0" cellpadding="4">`+
			`<tr><td>Тип</td><td>%s</td></tr>`+
			`<tr><td>Объём</td><td>%.2f</td></tr>`+
			`<tr><td>Вход</td><td>%.2f</td></tr>`+
			`<tr><td>Выход</td><td>%.2f</td></tr>`+
			`<tr><td><b>P/L</b></td><td><b>%.2f</b></td></tr>`+
			`<tr><td>Причина</td><td>%s</td></tr>`+
			`<tr><td>Длительность</td><td>%s</td></tr>`+
			`</table>`,
		rec.TradeID, rec.Type, rec.Volume, rec.EntryPrice, exitPrice, pl, rec.ExitReason, rec.Duration)

	return e.sendMail(subject, plain, html)
}

// SendBreakerPause отправляет письмо о паузе предохранителя
func (e *EmailSender) SendBreakerPause(state models.BreakerState) error {
	if !e.Enabled() {
		return nil
	}

	until := "не задано"
	if state.PauseEndTime != nil {
		until = state.PauseEndTime.Format("2006-01-02 15:04:05")
	}

	subject := "Торговля приостановлена"
	plain := fmt.Sprintf(
		"Предохранитель остановил торговлю\n\nПричина: %s\nДо: %s\nУбытков подряд: %d\n",
		state.PauseReason, until, state.ConsecutiveLosses)
	html := fmt.Sprintf(
		`<h3>Торговля приостановлена</h3><p>Причина: <b>%s</b></p><p>До: %s</p><p>Убытков подряд: %d</p>`,
		state.PauseReason, until, state.ConsecutiveLosses)

	return e.sendMail(subject, plain, html)
}

// sendMail собирает multipart письмо и отправляет его
func (e *EmailSender) sendMail(subject, plain, html string) error {
	boundary := fmt.Sprintf("goldbridge-%d", time.Now().UnixNano())

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.Sender)
	fmt.Fprintf(&b, "To: %s\r\n", e.cfg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(plain)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPServer, e.cfg.SMTPPort)
	auth := smtp.PlainAuth("", e.cfg.Sender, e.cfg.Password, e.cfg.SMTPServer)

	if err := e.send(addr, auth, e.cfg.Sender, []string{e.cfg.Recipient}, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	e.logger.Info("email sent", zap.String("subject", subject))
	return nil
}
