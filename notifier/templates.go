package notifier

import (
	"fmt"
	"strings"
)

// OrderEmailItem is one line of an order summary email.
type OrderEmailItem struct {
	Title    string
	Quantity int
	Price    float64
}

// OrderEmailData carries the order fields rendered into templates.
type OrderEmailData struct {
	OrderNumber     string
	TotalAmount     float64
	Items           []OrderEmailItem
	ShippingAddress string
	PaymentMethod   string
}

func itemRows(items []OrderEmailItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b,
			"<tr><td>%s</td><td>%d</td><td>%.2f</td><td>%.2f</td></tr>",
			item.Title, item.Quantity, item.Price, item.Price*float64(item.Quantity))
	}
	return b.String()
}

// OrderConfirmation builds the email sent right after an order is placed.
func OrderConfirmation(name string, data OrderEmailData) Task {
	body := fmt.Sprintf(`
<h2>Thank you for your order, %s!</h2>
<p>Your order <strong>#%s</strong> has been placed successfully.</p>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Item</th><th>Qty</th><th>Unit price</th><th>Subtotal</th></tr>
%s
</table>
<p><strong>Total: %.2f</strong></p>
<p>Shipping to: %s</p>
<p>Payment method: %s</p>
`, name, data.OrderNumber, itemRows(data.Items), data.TotalAmount,
		data.ShippingAddress, data.PaymentMethod)

	return Task{
		Subject: fmt.Sprintf("Order Confirmation - #%s", data.OrderNumber),
		Body:    body,
	}
}

// StatusUpdate builds the generic order status change email.
func StatusUpdate(name, orderNumber, status, message string) Task {
	body := fmt.Sprintf(`
<h2>Hello %s,</h2>
<p>%s</p>
<p>Order: <strong>#%s</strong><br>New status: <strong>%s</strong></p>
`, name, message, orderNumber, status)

	return Task{
		Subject: fmt.Sprintf("Order Update - #%s", orderNumber),
		Body:    body,
	}
}

// Delivered builds the special email sent when an order reaches completed.
func Delivered(name string, data OrderEmailData) Task {
	body := fmt.Sprintf(`
<h2>Your order has been delivered, %s!</h2>
<p>Order <strong>#%s</strong> was delivered successfully. We hope you enjoy
your purchase.</p>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Item</th><th>Qty</th><th>Unit price</th><th>Subtotal</th></tr>
%s
</table>
<p><strong>Total: %.2f</strong></p>
<p>You can now leave a review for this order.</p>
`, name, data.OrderNumber, itemRows(data.Items), data.TotalAmount)

	return Task{
		Subject: fmt.Sprintf("Order Delivered - #%s", data.OrderNumber),
		Body:    body,
	}
}

// PasswordReset builds the email carrying a single-use reset link.
func PasswordReset(name, resetURL string) Task {
	body := fmt.Sprintf(`
<h2>Hello %s,</h2>
<p>We received a request to reset your password. Click the link below to set
a new one. The link expires in 15 minutes.</p>
<p><a href="%s">Reset your password</a></p>
<p>If you did not request this, you can safely ignore this email.</p>
`, name, resetURL)

	return Task{
		Subject: "Password Reset Request",
		Body:    body,
	}
}

// StatusMessage returns the human-facing message for a status transition.
func StatusMessage(orderNumber, status string) string {
	messages := map[string]string{
		"approved":         "Your order #%s has been approved by the seller and is being processed.",
		"processing":       "Your order #%s is now being processed and will be prepared for shipment soon.",
		"out-for-delivery": "Great news! Your order #%s is out for delivery and will arrive at your address soon.",
		"completed":        "Your order #%s has been delivered successfully!",
		"rejected":         "Unfortunately, your order #%s has been rejected by the seller.",
		"cancelled":        "Your order #%s has been cancelled.",
	}
	if msg, ok := messages[status]; ok {
		return fmt.Sprintf(msg, orderNumber)
	}
	return fmt.Sprintf("Your order #%s status has been updated to %s.", orderNumber, status)
}
