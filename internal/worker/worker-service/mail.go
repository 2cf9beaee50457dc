package worker_service

import (
	"fmt"

	"github.com/commune-hq/realtime/config"
	"gopkg.in/gomail.v2"
)

// SendOfflineMessageMail tells an offline user they have unread messages.
func SendOfflineMessageMail(to, senderName, preview string) error {
	host := config.Conf.MAILTRAP.SMTPHost
	port := config.Conf.MAILTRAP.SMTPPort
	username := config.Conf.MAILTRAP.Username
	password := config.Conf.MAILTRAP.Password
	from := config.Conf.MAILTRAP.From

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("New message from %s", senderName))
	body := fmt.Sprintf("You have a new message from %s while you were away.", senderName)
	if preview != "" {
		body = fmt.Sprintf("%s\n\n%q", body, preview)
	}
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(host, port, username, password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send offline message mail: %w", err)
	}

	return nil
}
