package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"farm-order-mailer/internal/order"
	"farm-order-mailer/internal/queue"
)

// Renderer maps a job's email type to a subject line and HTML body. The type
// set is closed; an unknown type is a programming error and is reported as a
// non-retryable render failure.
type Renderer struct {
	siteURL string
	tmpl    *template.Template
}

func NewRenderer(siteURL string) (*Renderer, error) {
	tmpl, err := template.New("email").Parse(layoutTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse layout template: %w", err)
	}
	for name, body := range map[string]string{
		"order_placed_user":  orderPlacedUserTemplate,
		"order_placed_admin": orderPlacedAdminTemplate,
		"order_status":       orderStatusTemplate,
	} {
		if _, err := tmpl.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
	}
	return &Renderer{siteURL: siteURL, tmpl: tmpl}, nil
}

// Render produces the subject and HTML body for a job.
func (r *Renderer) Render(job *queue.Job) (string, string, error) {
	switch job.Type {
	case queue.TypeOrderPlacedUser:
		subject := fmt.Sprintf("Order Received - #%s", job.Payload.OrderNumber)
		html, err := r.execute("order_placed_user", subject, r.placedData(&job.Payload))
		return subject, html, err
	case queue.TypeOrderPlacedAdmin:
		subject := fmt.Sprintf("New Order Received - #%s", job.Payload.OrderNumber)
		html, err := r.execute("order_placed_admin", subject, r.placedData(&job.Payload))
		return subject, html, err
	case queue.TypeOrderStatus:
		data := r.statusData(&job.Payload)
		subject := fmt.Sprintf("%s - Order #%s", data.Title, job.Payload.OrderNumber)
		html, err := r.execute("order_status", subject, data)
		return subject, html, err
	default:
		return "", "", fmt.Errorf("unknown email type: %s", job.Type)
	}
}

type itemRow struct {
	Name     string
	Quantity float64
	Unit     string
	Price    string
	Subtotal string
}

type placedEmailData struct {
	Title         string
	SiteURL       template.URL
	OrderURL      template.URL
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	BusinessName  string
	OrderType     string
	Items         []itemRow
	Notes         string
	PlacedOn      string
}

type statusEmailData struct {
	Title          string
	Message        string
	SiteURL        template.URL
	OrderNumber    string
	Status         string
	BadgeClass     string
	CustomerName   string
	Items          []itemRow
	PricingApplied bool
	Total          string
	Notes          string
	PlacedOn       string
	UpdatedOn      string
	Cancelled      bool
}

func (r *Renderer) placedData(p *order.Order) placedEmailData {
	return placedEmailData{
		SiteURL:       template.URL(r.siteURL),
		OrderURL:      template.URL(fmt.Sprintf("%s/admin/orders/%s", r.siteURL, p.OrderNumber)),
		OrderNumber:   p.OrderNumber,
		CustomerName:  p.CustomerName,
		CustomerEmail: p.CustomerEmail,
		CustomerPhone: p.CustomerPhone,
		BusinessName:  p.BusinessName,
		OrderType:     p.OrderType,
		Items:         itemRows(p.Items),
		Notes:         p.Notes,
		PlacedOn:      formatDate(p.CreatedAt),
	}
}

func (r *Renderer) statusData(p *order.Order) statusEmailData {
	title, message := statusInfo(p.Status)
	pricingApplied := p.TotalAmount > 0 && anyPriced(p.Items)

	data := statusEmailData{
		Title:          title,
		Message:        message,
		SiteURL:        template.URL(r.siteURL),
		OrderNumber:    p.OrderNumber,
		Status:         p.Status,
		BadgeClass:     statusBadgeClass(p.Status),
		CustomerName:   p.CustomerName,
		Items:          itemRows(p.Items),
		PricingApplied: pricingApplied,
		Total:          formatCurrency(p.TotalAmount),
		Notes:          p.Notes,
		PlacedOn:       formatDate(p.CreatedAt),
		Cancelled:      strings.EqualFold(p.Status, "cancelled"),
	}
	if !p.UpdatedAt.IsZero() {
		data.UpdatedOn = formatDate(p.UpdatedAt)
	}
	return data
}

func (r *Renderer) execute(name, title string, data interface{}) (string, error) {
	var content bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&content, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	var page bytes.Buffer
	err := r.tmpl.ExecuteTemplate(&page, "email", struct {
		Title   string
		SiteURL template.URL
		Content template.HTML
	}{title, template.URL(r.siteURL), template.HTML(content.String())})
	if err != nil {
		return "", fmt.Errorf("render layout: %w", err)
	}
	return page.String(), nil
}

func itemRows(items []order.Item) []itemRow {
	rows := make([]itemRow, 0, len(items))
	for _, it := range items {
		name := it.ProductName
		if name == "" {
			name = "Item"
		}
		unit := it.Unit
		if unit == "" {
			unit = "-"
		}
		rows = append(rows, itemRow{
			Name:     name,
			Quantity: it.Quantity,
			Unit:     unit,
			Price:    formatCurrency(it.UnitPrice),
			Subtotal: formatCurrency(it.Subtotal),
		})
	}
	return rows
}

func anyPriced(items []order.Item) bool {
	for _, it := range items {
		if it.UnitPrice > 0 {
			return true
		}
	}
	return false
}

func formatCurrency(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

func formatDate(t time.Time) string {
	return t.Format("Monday, 2 January 2006")
}

var statusMessages = map[string][2]string{
	"confirmed":  {"Order Confirmed!", "Great news! Your order has been confirmed and is being prepared."},
	"delivered":  {"Order Delivered!", "Your order has been successfully delivered. We hope you enjoy your fresh produce!"},
	"cancelled":  {"Order Cancelled", "Your order has been cancelled. If you have any questions, please contact us."},
	"processing": {"Order Processing", "Your order is now being processed and will be ready soon."},
	"shipped":    {"Order Shipped!", "Your order is on its way! You should receive it soon."},
	"pending":    {"Order Status Update", "There has been an update to your order."},
}

func statusInfo(status string) (string, string) {
	if m, ok := statusMessages[strings.ToLower(status)]; ok {
		return m[0], m[1]
	}
	return "Order Status Update", fmt.Sprintf("Your order status has been updated to: %s", status)
}

func statusBadgeClass(status string) string {
	switch strings.ToLower(status) {
	case "confirmed", "processing", "shipped", "delivered", "cancelled":
		return "status-badge status-" + strings.ToLower(status)
	default:
		return "status-badge status-pending"
	}
}

const layoutTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; background-color: #f4f4f4; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background-color: #16a34a; padding: 24px; text-align: center; }
    .header h1 { color: #ffffff; margin: 0; font-size: 28px; font-weight: 700; }
    .header p { color: #dcfce7; margin: 8px 0 0; font-size: 14px; }
    .content { padding: 32px 24px; }
    .footer { background-color: #f9fafb; padding: 24px; text-align: center; border-top: 1px solid #e5e7eb; }
    .footer p { margin: 0; font-size: 12px; color: #6b7280; }
    .footer a { color: #16a34a; text-decoration: none; }
    .button { display: inline-block; background-color: #16a34a; color: #ffffff; padding: 12px 24px; text-decoration: none; border-radius: 6px; font-weight: 600; margin: 16px 0; }
    .order-box { background-color: #f0fdf4; border: 1px solid #bbf7d0; border-radius: 8px; padding: 16px; margin: 16px 0; }
    .order-number { font-size: 18px; font-weight: 700; color: #16a34a; }
    .status-badge { display: inline-block; padding: 4px 12px; border-radius: 16px; font-size: 12px; font-weight: 600; text-transform: uppercase; }
    .status-pending { background-color: #fef3c7; color: #92400e; }
    .status-confirmed { background-color: #dbeafe; color: #1e40af; }
    .status-processing { background-color: #e0e7ff; color: #3730a3; }
    .status-shipped { background-color: #fae8ff; color: #86198f; }
    .status-delivered { background-color: #dcfce7; color: #166534; }
    .status-cancelled { background-color: #fee2e2; color: #991b1b; }
    table { width: 100%; border-collapse: collapse; margin: 16px 0; }
    th, td { padding: 12px; text-align: left; border-bottom: 1px solid #e5e7eb; }
    th { background-color: #f9fafb; font-weight: 600; font-size: 12px; text-transform: uppercase; color: #6b7280; }
    .total-row { font-weight: 700; background-color: #f0fdf4; }
    .info-section { margin: 24px 0; }
    .info-label { font-size: 12px; color: #6b7280; text-transform: uppercase; margin-bottom: 4px; }
    .info-value { font-size: 14px; color: #111827; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Sky Growers</h1>
      <p>Fresh Farm Produce</p>
    </div>
    <div class="content">
      {{.Content}}
    </div>
    <div class="footer">
      <p>Sky Growers - Fresh Farm Produce</p>
      <p style="margin-top: 8px;">
        <a href="{{.SiteURL}}">Visit our website</a> |
        <a href="{{.SiteURL}}/contact">Contact Us</a>
      </p>
      <p style="margin-top: 16px; font-size: 11px;">
        This email was sent from Sky Growers. If you have any questions, please reply to this email.
      </p>
    </div>
  </div>
</body>
</html>
`

const orderPlacedUserTemplate = `<h2 style="margin-top: 0; color: #111827;">Thank You for Your Order!</h2>
<p>Hi {{.CustomerName}},</p>
<p>We've received your order request and are reviewing it. Our team will contact you within <strong>24 hours</strong> to confirm your order details and pricing.</p>
<div class="order-box">
  <div class="order-number">Order #{{.OrderNumber}}</div>
  <p style="margin: 8px 0 0; color: #6b7280;">Placed on {{.PlacedOn}}</p>
</div>
<div class="info-section">
  <h3 style="margin-bottom: 16px; color: #111827;">Order Summary</h3>
  <table>
    <thead>
      <tr><th>Item</th><th>Quantity</th><th>Unit</th></tr>
    </thead>
    <tbody>
      {{range .Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.Unit}}</td></tr>
      {{end}}
    </tbody>
  </table>
</div>
{{if .Notes}}
<div class="info-section">
  <div class="info-label">Additional Notes</div>
  <div class="info-value">{{.Notes}}</div>
</div>
{{end}}
<div class="info-section">
  <h3 style="margin-bottom: 16px; color: #111827;">Your Information</h3>
  <div style="display: grid; gap: 12px;">
    <div><div class="info-label">Name</div><div class="info-value">{{.CustomerName}}</div></div>
    <div><div class="info-label">Email</div><div class="info-value">{{.CustomerEmail}}</div></div>
    <div><div class="info-label">Phone</div><div class="info-value">{{.CustomerPhone}}</div></div>
    {{if .BusinessName}}<div><div class="info-label">Business</div><div class="info-value">{{.BusinessName}}</div></div>{{end}}
    {{if .OrderType}}<div><div class="info-label">Order Type</div><div class="info-value">{{.OrderType}}</div></div>{{end}}
  </div>
</div>
<p style="color: #6b7280; font-size: 14px;">
  If you have any questions, feel free to reply to this email or contact us directly.
</p>
`

const orderPlacedAdminTemplate = `<h2 style="margin-top: 0; color: #111827;">New Order Received</h2>
<p>A new order has been placed and requires your attention.</p>
<div class="order-box">
  <div class="order-number">Order #{{.OrderNumber}}</div>
  <p style="margin: 8px 0 0; color: #6b7280;">Placed on {{.PlacedOn}}</p>
</div>
<a href="{{.OrderURL}}" class="button">View Order Details</a>
<div class="info-section">
  <h3 style="margin-bottom: 16px; color: #111827;">Customer Information</h3>
  <div style="display: grid; gap: 12px;">
    <div><div class="info-label">Name</div><div class="info-value">{{.CustomerName}}</div></div>
    <div><div class="info-label">Email</div><div class="info-value"><a href="mailto:{{.CustomerEmail}}">{{.CustomerEmail}}</a></div></div>
    <div><div class="info-label">Phone</div><div class="info-value"><a href="tel:{{.CustomerPhone}}">{{.CustomerPhone}}</a></div></div>
    {{if .BusinessName}}<div><div class="info-label">Business</div><div class="info-value">{{.BusinessName}}</div></div>{{end}}
    {{if .OrderType}}<div><div class="info-label">Order Type</div><div class="info-value">{{.OrderType}}</div></div>{{end}}
  </div>
</div>
<div class="info-section">
  <h3 style="margin-bottom: 16px; color: #111827;">Requested Items</h3>
  <table>
    <thead>
      <tr><th>Item</th><th>Quantity</th><th>Unit</th></tr>
    </thead>
    <tbody>
      {{range .Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.Unit}}</td></tr>
      {{end}}
    </tbody>
  </table>
</div>
{{if .Notes}}
<div class="info-section">
  <div class="info-label">Additional Notes</div>
  <div class="info-value">{{.Notes}}</div>
</div>
{{end}}
<p style="color: #6b7280; font-size: 14px;">
  Please review and set pricing for this order, then confirm with the customer.
</p>
`

const orderStatusTemplate = `<h2 style="margin-top: 0; color: #111827;">{{.Title}}</h2>
<p>Hi {{.CustomerName}},</p>
<p>{{.Message}}</p>
<div class="order-box">
  <div style="display: flex; justify-content: space-between; align-items: center; flex-wrap: wrap; gap: 8px;">
    <div class="order-number">Order #{{.OrderNumber}}</div>
    <span class="{{.BadgeClass}}">{{.Status}}</span>
  </div>
  <p style="margin: 8px 0 0; color: #6b7280;">
    Placed on {{.PlacedOn}}{{if .UpdatedOn}} &bull; Updated on {{.UpdatedOn}}{{end}}
  </p>
</div>
<div class="info-section">
  <h3 style="margin-bottom: 16px; color: #111827;">Order Details</h3>
  {{if .PricingApplied}}
  <table>
    <thead>
      <tr><th>Item</th><th>Quantity</th><th>Unit</th><th style="text-align: right;">Price</th><th style="text-align: right;">Subtotal</th></tr>
    </thead>
    <tbody>
      {{range .Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.Unit}}</td><td style="text-align: right;">{{.Price}}</td><td style="text-align: right;">{{.Subtotal}}</td></tr>
      {{end}}
      <tr class="total-row">
        <td colspan="4" style="text-align: right;"><strong>Total</strong></td>
        <td style="text-align: right;"><strong>{{.Total}}</strong></td>
      </tr>
    </tbody>
  </table>
  {{else}}
  <table>
    <thead>
      <tr><th>Item</th><th>Quantity</th><th>Unit</th></tr>
    </thead>
    <tbody>
      {{range .Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.Unit}}</td></tr>
      {{end}}
    </tbody>
  </table>
  {{end}}
</div>
{{if .PricingApplied}}
<div style="background-color: #f0fdf4; border-radius: 8px; padding: 16px; margin: 16px 0; text-align: center;">
  <div style="font-size: 14px; color: #6b7280;">Total Amount</div>
  <div style="font-size: 28px; font-weight: 700; color: #16a34a;">{{.Total}}</div>
</div>
{{end}}
{{if .Notes}}
<div class="info-section">
  <div class="info-label">Notes</div>
  <div class="info-value">{{.Notes}}</div>
</div>
{{end}}
{{if .Cancelled}}
<p style="color: #6b7280; font-size: 14px;">
  If you didn't request this cancellation or have any concerns, please contact us immediately.
</p>
{{else}}
<p style="color: #6b7280; font-size: 14px;">
  If you have any questions about your order, feel free to reply to this email or contact us directly.
</p>
{{end}}
`
