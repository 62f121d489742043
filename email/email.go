package email

import (
	"fmt"
	"log"
	"net/smtp"

	"cashier-backend/config"
)

// Notifier sends ops notifications over plain SMTP. When the SMTP vars are
// not configured it stays disabled and every send becomes a log line, so
// local environments work without a mail server.
type Notifier struct {
	host string
	port string
	user string
	pass string
	from string
	to   string
}

func NewNotifier(cfg *config.Config) *Notifier {
	n := &Notifier{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.SMTPFrom,
		to:   cfg.OpsEmail,
	}
	if n.from == "" {
		n.from = n.user
	}
	if !n.enabled() {
		log.Printf("[EMAIL] SMTP not configured, ops notifications go to the log only")
	}
	return n
}

func (n *Notifier) enabled() bool {
	return n.host != "" && n.port != "" && n.user != "" && n.pass != "" && n.to != ""
}

func (n *Notifier) send(subject, body string) error {
	if !n.enabled() {
		log.Printf("[EMAIL] (disabled) %s: %s", subject, body)
		return nil
	}
	addr := fmt.Sprintf("%s:%s", n.host, n.port)
	auth := smtp.PlainAuth("", n.user, n.pass, n.host)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", n.from, n.to, subject, body))
	return smtp.SendMail(addr, auth, n.from, []string{n.to}, msg)
}

// Alert is the operator-visible channel for state-divergence conditions.
func (n *Notifier) Alert(subject, body string) {
	if err := n.send("[cashier][alert] "+subject, body); err != nil {
		log.Printf("[EMAIL] alert send failed: %v", err)
	}
}

// NotifyCancellation mails ops about a cancelled subscription.
func (n *Notifier) NotifyCancellation(accountName, accountEmail, kind string) error {
	subject := fmt.Sprintf("Subscription cancelled (%s)", kind)
	body := fmt.Sprintf("The subscription for %s <%s> was cancelled.", accountName, accountEmail)
	if err := n.send(subject, body); err != nil {
		return err
	}
	log.Printf("[EMAIL] cancellation notice sent for %s", accountEmail)
	return nil
}
