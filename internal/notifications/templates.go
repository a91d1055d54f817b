package notifications

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/neomercado/api/internal/domain"
)

// Customer-supplied values flow into email bodies; they are escaped and the
// assembled markup is run through a sanitizer before handing it to SMTP.
var emailPolicy = bluemonday.UGCPolicy()

func orderReceivedSubject(order domain.Order) string {
	return fmt.Sprintf("Seu pedido (%s) no NeoMercado", order.Code)
}

func orderReceivedBody(order domain.Order) string {
	var b strings.Builder
	b.WriteString("<h2>Pedido recebido</h2>")
	fmt.Fprintf(&b, "<p>Olá, %s. Recebemos seu pedido no NeoMercado.</p>", html.EscapeString(order.Customer.Name))

	if len(order.Items) > 0 {
		b.WriteString("<ul>")
		for _, item := range order.Items {
			fmt.Fprintf(&b, "<li>%dx %s — R$ %s</li>",
				item.Quantity,
				html.EscapeString(item.Title),
				formatReais(item.TotalCents()),
			)
		}
		b.WriteString("</ul>")
	}

	if order.Shipping.Label != "" {
		if order.Shipping.PriceCents > 0 {
			fmt.Fprintf(&b, "<p>%s: R$ %s</p>",
				html.EscapeString(order.Shipping.Label), formatReais(order.Shipping.PriceCents))
		} else {
			fmt.Fprintf(&b, "<p>%s: Grátis</p>", html.EscapeString(order.Shipping.Label))
		}
	}

	fmt.Fprintf(&b, "<p><strong>Total:</strong> R$ %s</p>", formatReais(order.AmountCents))
	if order.PaymentURL != "" {
		escaped := html.EscapeString(order.PaymentURL)
		fmt.Fprintf(&b, `<p>Finalize o pagamento no link: <a href="%s">%s</a></p>`, escaped, escaped)
	}
	b.WriteString("<p>Qualquer dúvida, responda este e-mail.</p>")

	return emailPolicy.Sanitize(b.String())
}

func paymentConfirmedSubject(order domain.Order) string {
	return fmt.Sprintf("Pagamento aprovado! Pedido %s", order.Code)
}

func paymentConfirmedBody(order domain.Order) string {
	var b strings.Builder
	b.WriteString("<h2>Pagamento aprovado!</h2>")
	fmt.Fprintf(&b, "<p>Olá, %s. Seu pedido (%s) foi confirmado e será processado em breve.</p>",
		html.EscapeString(order.Customer.Name), html.EscapeString(order.Code))
	return emailPolicy.Sanitize(b.String())
}

func formatReais(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d,%02d", sign, cents/100, cents%100)
}
