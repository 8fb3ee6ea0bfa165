package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
)

// SMTPNotifier mails reset links over implicit TLS (port 465 style).
type SMTPNotifier struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPNotifier(host, port, username, password, from string) *SMTPNotifier {
	return &SMTPNotifier{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, email, resetLink string) error {
	body := fmt.Sprintf(
		"A password reset was requested for this address.\r\n\r\n"+
			"Follow this link within 15 minutes to choose a new password:\r\n%s\r\n\r\n"+
			"If you did not request a reset, ignore this message.\r\n", resetLink)

	msg := []byte(
		fmt.Sprintf("From: %s\r\n", n.from) +
			fmt.Sprintf("To: %s\r\n", email) +
			"Subject: Password reset\r\n" +
			"\r\n" +
			body,
	)

	serverAddr := n.host + ":" + n.port

	tlsConfig := &tls.Config{
		ServerName: n.host,
	}

	conn, err := tls.Dial("tcp", serverAddr, tlsConfig)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, n.host)
	if err != nil {
		return err
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", n.username, n.password, n.host)
	if err := client.Auth(auth); err != nil {
		return err
	}

	if err := client.Mail(n.from); err != nil {
		return err
	}
	if err := client.Rcpt(email); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}
