package notification

import (
	"bytes"
	"context"
	"embed"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/508dev/interview-service/internal/event_bus"
	"github.com/508dev/interview-service/internal/metrics"
	log "github.com/sirupsen/logrus"
)

//go:embed templates
var templatesFS embed.FS

const (
	customerConfirmation    = "customer_confirmation"
	interviewerNotification = "interviewer_notification"
)

var funcs = map[string]any{
	"datetime": func(t time.Time) string {
		return t.Format("January 02, 2006 at 03:04 PM MST")
	},
	"orDefault": func(value, fallback string) string {
		if strings.TrimSpace(value) == "" {
			return fallback
		}
		return value
	},
}

// Notifier sends the emails that follow a confirmed booking.
type Notifier struct {
	mailer Mailer
	text   *texttemplate.Template
	html   *htmltemplate.Template
}

func NewNotifier(mailer Mailer) (*Notifier, error) {
	text, err := texttemplate.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.txt")
	if err != nil {
		return nil, err
	}
	html, err := htmltemplate.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Notifier{mailer: mailer, text: text, html: html}, nil
}

// Subscribe sends both emails whenever a booking is confirmed. Delivery
// problems are logged and counted but never reported to the publisher.
func (n *Notifier) Subscribe(bus *event_bus.EventBus) (unsubscribe func()) {
	return event_bus.SubscribeTyped(bus, event_bus.BookingConfirmedEvent, func(e event_bus.EventT[event_bus.BookingConfirmed]) error {
		ctx := e.Context()
		if err := n.SendCustomerConfirmation(ctx, e.Data); err != nil {
			log.Errorf("failed to send confirmation for booking %d: %v", e.Data.BookingId, err)
		}
		if err := n.SendInterviewerNotification(ctx, e.Data); err != nil {
			log.Errorf("failed to notify interviewer of booking %d: %v", e.Data.BookingId, err)
		}
		return nil
	})
}

func (n *Notifier) SendCustomerConfirmation(ctx context.Context, b event_bus.BookingConfirmed) error {
	return n.send(ctx, customerConfirmation, Message{
		To:      b.CustomerEmail,
		Subject: "Interview Booking Confirmed - " + b.ScheduledAt.Format("January 02, 2006"),
	}, b)
}

func (n *Notifier) SendInterviewerNotification(ctx context.Context, b event_bus.BookingConfirmed) error {
	if b.InterviewerEmail == "" {
		log.Warnf("interviewer of booking %d has no email address", b.BookingId)
		metrics.RecordEmail(interviewerNotification, false)
		return nil
	}
	return n.send(ctx, interviewerNotification, Message{
		To:      b.InterviewerEmail,
		Subject: "New Interview Booking - " + b.CustomerName,
	}, b)
}

func (n *Notifier) send(ctx context.Context, kind string, msg Message, b event_bus.BookingConfirmed) error {
	err := n.render(kind, &msg, b)
	if err == nil {
		err = n.mailer.Send(ctx, msg)
	}
	metrics.RecordEmail(kind, err == nil)
	if err == nil {
		log.Infof("sent %s for booking %d to %s", kind, b.BookingId, msg.To)
	}
	return err
}

func (n *Notifier) render(kind string, msg *Message, b event_bus.BookingConfirmed) error {
	var text bytes.Buffer
	if err := n.text.ExecuteTemplate(&text, kind+".txt", b); err != nil {
		return err
	}
	var html bytes.Buffer
	if err := n.html.ExecuteTemplate(&html, kind+".html", b); err != nil {
		return err
	}
	msg.Text = strings.TrimSpace(text.String())
	msg.HTML = html.String()
	return nil
}
