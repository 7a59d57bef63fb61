package utils

import (
	"fmt"
	"lms/config"
	"log"
	"net/smtp"
	"strings"
)

// SendEmail sends an HTML email through the configured SMTP account
func SendEmail(to []string, subject string, htmlBody string) error {
	smtpHost := "smtp.gmail.com"
	smtpPort := "587"

	from := config.AppConfig.EmailSender
	password := config.AppConfig.Password

	if from == "" || from == "defaultSecret" {
		log.Println("Email sender not configured, skipping email:", subject)
		return nil
	}

	// MIME basics
	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: Course Platform <%s>\r\n", from)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", from, password, smtpHost)

	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, to, []byte(msg))
	if err != nil {
		log.Println("Error sending email:", err)
		return err
	}
	return nil
}

// SendPurchaseConfirmationEmail notifies a buyer that their order completed
// and course access is unlocked
func SendPurchaseConfirmationEmail(email, userName string, courseTitles []string, orderCode int64, amount int64) error {
	items := ""
	for _, title := range courseTitles {
		items += fmt.Sprintf("<li style=\"margin: 6px 0; color: #555555;\">%s</li>", title)
	}

	body := fmt.Sprintf(`
		<html>
			<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
				<div style="max-width: 600px; margin: auto; background-color: #ffffff; border-radius: 8px; padding: 30px; box-shadow: 0 2px 8px rgba(0, 0, 0, 0.1);">
					<h2 style="color: #333333; text-align: center;">Payment Successful!</h2>
					<p style="font-size: 16px; color: #555555;">Dear %s,</p>
					<p style="font-size: 16px; color: #555555;">Your order <b>#%d</b> has been confirmed. You now have access to:</p>
					<ul style="font-size: 15px;">%s</ul>
					<p style="font-size: 14px; color: #666666;">Amount paid: <b>%d VND</b></p>
					<p style="font-size: 14px; color: #999999; text-align: center; margin-top: 30px;">Happy Learning!</p>
				</div>
			</body>
		</html>
	`, userName, orderCode, items, amount)

	return SendEmail([]string{email}, "Order Confirmation - Course Platform", body)
}
