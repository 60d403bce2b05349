package utils

import "gopkg.in/gomail.v2"

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

func SendEmail(message *gomail.Message, smtp SMTPConfig) error {
	d := gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)

	if err := d.DialAndSend(message); err != nil {
		return err
	}

	return nil
}
