package orders

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/asala-storefront/internal/cart"
	"github.com/angelmondragon/asala-storefront/internal/customer"
	"github.com/angelmondragon/asala-storefront/pkg/telegram"
	"github.com/shopspring/decimal"
)

const (
	DefaultStoreName = "متجر الأصالة"
	NotesPlaceholder = "لا يوجد"
)

// Order is assembled at submit time and never stored.
type Order struct {
	Lines    []cart.Line
	Customer customer.Details
	Total    decimal.Decimal
}

// Payload is the message handed to the sender.
type Payload struct {
	Text      string
	ParseMode string
}

// Composer renders orders into the chat message format.
type Composer struct {
	StoreName string
}

// ComposeOrder renders with the default store name.
func ComposeOrder(lines []cart.Line, details customer.Details, total decimal.Decimal) Payload {
	return Composer{}.Compose(Order{Lines: lines, Customer: details, Total: total})
}

// Compose is pure: the same order always yields the same payload.
func (c Composer) Compose(order Order) Payload {
	storeName := strings.TrimSpace(c.StoreName)
	if storeName == "" {
		storeName = DefaultStoreName
	}

	notes := strings.TrimSpace(order.Customer.Notes)
	if notes == "" {
		notes = NotesPlaceholder
	} else {
		notes = escapeMarkdown(order.Customer.Notes)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🛒 *طلب جديد من %s*\n\n", escapeMarkdown(storeName))
	fmt.Fprintf(&b, "👤 *العميل:* %s\n", escapeMarkdown(order.Customer.Name))
	fmt.Fprintf(&b, "📱 *واتساب:* %s\n", escapeMarkdown(order.Customer.Contact))
	fmt.Fprintf(&b, "📅 *تاريخ التسليم:* %s\n", escapeMarkdown(order.Customer.DeliveryDate))
	fmt.Fprintf(&b, "📝 *ملاحظات:* %s\n\n", notes)

	b.WriteString("📋 *المنتجات:*\n")
	for _, line := range order.Lines {
		fmt.Fprintf(&b, "• %s: %d × %s€ = %s€\n",
			escapeMarkdown(line.Product.Name),
			line.Quantity,
			line.Product.Price.String(),
			line.Subtotal().StringFixed(2),
		)
	}

	fmt.Fprintf(&b, "\n💰 *المجموع الكلي: %s€*", order.Total.StringFixed(2))

	return Payload{Text: b.String(), ParseMode: telegram.ParseModeMarkdown}
}

var markdownEscaper = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	"`", "\\`",
	`[`, `\[`,
)

// escapeMarkdown neutralizes legacy Markdown entity markers in user text.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
