package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/atelierlumen/leadgate/internal/leads"
	"github.com/atelierlumen/leadgate/pkg/logging"
)

// Service composes and sends the operational emails: the internal
// new-lead notification and outbound quote emails.
type Service struct {
	email   EmailSender
	toEmail string
	toName  string
	replyTo string
	logger  *logging.Logger
}

// NewService creates a notification service. toEmail is the internal
// address that receives new-lead notifications.
func NewService(email EmailSender, toEmail, toName, replyTo string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:   email,
		toEmail: toEmail,
		toName:  toName,
		replyTo: replyTo,
		logger:  logger,
	}
}

var newLeadTemplate = template.Must(template.New("new_lead").Parse(
	`Nouvelle demande de contact

Nom         : {{.Name}}
Email       : {{.Email}}
{{- if .Phone}}
Téléphone   : {{.Phone}}
{{- end}}
{{- if .Company}}
Société     : {{.Company}}
{{- end}}
Prestation  : {{.Service}}
Budget      : {{.Budget}}
Délai       : {{.Timeline}}

Message :
{{.Message}}
`))

// NotifyNewLead sends the internal notification for a freshly stored lead.
// Callers treat failures as non-fatal: the lead is already persisted.
func (s *Service) NotifyNewLead(ctx context.Context, lead *leads.Lead) error {
	if s.email == nil || s.toEmail == "" {
		s.logger.Debug("lead notification skipped: no sender configured")
		return nil
	}

	var body bytes.Buffer
	if err := newLeadTemplate.Execute(&body, lead); err != nil {
		return fmt.Errorf("notify: render lead notification: %w", err)
	}

	msg := EmailMessage{
		To:      s.toEmail,
		ToName:  s.toName,
		Subject: fmt.Sprintf("Nouveau lead : %s (%s)", lead.Name, lead.Service),
		Body:    body.String(),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: lead notification: %w", err)
	}
	return nil
}

// QuoteItem is one line of an outbound quote.
type QuoteItem struct {
	Label       string `json:"label"`
	AmountCents int    `json:"amount_cents"`
}

// Quote is the payload of an outbound quote email.
type Quote struct {
	Reference string      `json:"reference"`
	Intro     string      `json:"intro,omitempty"`
	Items     []QuoteItem `json:"items"`
}

// TotalCents sums the quote lines.
func (q Quote) TotalCents() int {
	total := 0
	for _, it := range q.Items {
		total += it.AmountCents
	}
	return total
}

var quoteTemplate = template.Must(template.New("quote").Funcs(template.FuncMap{
	"euros": func(cents int) string {
		return fmt.Sprintf("%d,%02d €", cents/100, cents%100)
	},
}).Parse(
	`Bonjour {{.Lead.Name}},

{{if .Quote.Intro}}{{.Quote.Intro}}

{{end}}Veuillez trouver ci-dessous notre proposition (réf. {{.Quote.Reference}}) :

{{range .Quote.Items}}  - {{.Label}} : {{euros .AmountCents}}
{{end}}
Total : {{euros .Quote.TotalCents}}

Cette proposition reste ouverte à la discussion, n'hésitez pas à revenir vers nous.

Bien cordialement,
{{.Sender}}
`))

// SendQuote emails a quote to the lead. The caller records the CRM side
// effects (automatic note, status transition).
func (s *Service) SendQuote(ctx context.Context, lead *leads.Lead, quote Quote, sender string) error {
	if s.email == nil {
		return fmt.Errorf("notify: no email sender configured")
	}
	if len(quote.Items) == 0 {
		return fmt.Errorf("notify: quote has no line items")
	}
	if sender == "" {
		sender = s.toName
	}

	var body bytes.Buffer
	data := struct {
		Lead   *leads.Lead
		Quote  Quote
		Sender string
	}{lead, quote, sender}
	if err := quoteTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("notify: render quote: %w", err)
	}

	msg := EmailMessage{
		To:      lead.Email,
		ToName:  lead.Name,
		ReplyTo: s.replyTo,
		Subject: fmt.Sprintf("Votre devis %s", quote.Reference),
		Body:    body.String(),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send quote: %w", err)
	}
	s.logger.Info("quote sent", "lead_id", lead.ID, "reference", quote.Reference)
	return nil
}
