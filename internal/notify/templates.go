package notify

import "fmt"

// Email is a rendered subject/body pair ready for Send.
type Email struct {
	Subject string
	HTML    string
}

func WelcomeEmail(name string) Email {
	return Email{
		Subject: "Welcome to Tarjuman!",
		HTML: fmt.Sprintf(`
			<h2>Welcome!</h2>
			<p>Hi %s,</p>
			<p>Your Tarjuman account is ready. Upload your documents whenever you are,
			and we will take care of the translation.</p>
			<br/>
			<p>Best regards,<br/>The Tarjuman Team</p>
		`, name),
	}
}

func OrderProcessingEmail(name, orderID string) Email {
	return Email{
		Subject: "We're processing your order!",
		HTML: fmt.Sprintf(`
			<h2>Payment Received</h2>
			<p>Hi %s,</p>
			<p>Thank you for your payment!</p>
			<p>Your order for translation services (Order ID: <b>%s</b>) is now being processed.</p>
			<p>We will notify you once your draft is ready for review.</p>
			<br/>
			<p>Best regards,<br/>The Tarjuman Team</p>
		`, name, orderID),
	}
}

func DraftReadyEmail(name, orderID string) Email {
	return Email{
		Subject: "Your draft is ready for review",
		HTML: fmt.Sprintf(`
			<h2>Draft Ready</h2>
			<p>Hi %s,</p>
			<p>The draft translation for your order (Order ID: <b>%s</b>) is ready.</p>
			<p>Please sign in and review it so we can finalize your documents.</p>
			<br/>
			<p>Best regards,<br/>The Tarjuman Team</p>
		`, name, orderID),
	}
}

func OrderCompletedEmail(name, orderID string) Email {
	return Email{
		Subject: "Your order is complete",
		HTML: fmt.Sprintf(`
			<h2>Order Completed</h2>
			<p>Hi %s,</p>
			<p>Your order (Order ID: <b>%s</b>) is complete. The final documents are
			available in your account.</p>
			<p>Thank you for choosing Tarjuman!</p>
			<br/>
			<p>Best regards,<br/>The Tarjuman Team</p>
		`, name, orderID),
	}
}
