package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/508dev/interview-service/internal/config"
	"github.com/508dev/interview-service/internal/event_bus"
	"github.com/508dev/interview-service/internal/metrics"
	"github.com/508dev/interview-service/internal/utils"
	"github.com/508dev/interview-service/internal/view"
	"github.com/508dev/interview-service/pkg/account"
	"github.com/508dev/interview-service/pkg/booking"
	"github.com/508dev/interview-service/pkg/dashboard"
	"github.com/508dev/interview-service/pkg/interviewer"
	"github.com/508dev/interview-service/pkg/notification"
	"github.com/508dev/interview-service/pkg/pages"
	"github.com/508dev/interview-service/pkg/payment"
	"github.com/508dev/interview-service/pkg/storage"
	"github.com/508dev/interview-service/pkg/user"
	"github.com/gorilla/csrf"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Backends are the replaceable edges of the application: persistence and
// the external services it talks to.
type Backends struct {
	Users        user.Repo
	Interviewers interviewer.Repository
	Bookings     booking.Repository
	Storage      storage.Storage
	Gateway      payment.Gateway
	Verifier     payment.WebhookVerifier
	Mailer       notification.Mailer
	DB           pages.Pinger
}

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus
	Storage  storage.Storage
	Sessions *account.SessionManager
	Views    *view.Renderer
	CSRFKey  []byte

	UserService    user.Service
	AccountHandler *account.Handler

	InterviewerService *interviewer.ServiceImpl
	InterviewerHandler *interviewer.Handler

	BookingService *booking.ServiceImpl
	BookingHandler *booking.Handler
	WebhookHandler *booking.WebhookHandler

	Notifier *notification.Notifier

	DashboardHandler *dashboard.Handler
	PagesHandler     *pages.Handler

	LoginLimiter *RateLimiter
}

// NewBackends creates the production backends from the configuration.
func NewBackends(ctx context.Context, db *pgxpool.Pool, cfg config.Application) (Backends, error) {
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return Backends{}, err
	}
	mailer, err := notification.NewMailer(cfg.Email)
	if err != nil {
		return Backends{}, err
	}
	return Backends{
		Users:        user.NewUserRepo(db),
		Interviewers: interviewer.NewRepository(db),
		Bookings:     booking.NewRepository(db),
		Storage:      store,
		Gateway:      payment.NewStripeGateway(cfg.Stripe),
		Verifier:     payment.NewStripeVerifier(cfg.Stripe.WebhookSecret),
		Mailer:       mailer,
		DB:           db,
	}, nil
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(backends Backends, cfg config.Application, clock utils.Clock) (*Dependencies, error) {
	deps := &Dependencies{Clock: clock, Storage: backends.Storage}

	deps.EventBus = event_bus.NewEventBus()
	deps.Sessions = account.NewSessionManager([]byte(cfg.SecretKey), cfg.SecureCookies)
	csrfKey := sha256.Sum256([]byte("csrf:" + cfg.SecretKey))
	deps.CSRFKey = csrfKey[:]

	views, err := view.NewRenderer(commonFunc(deps.Sessions))
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	deps.Views = views

	deps.UserService = user.NewUserService(backends.Users)
	deps.AccountHandler = account.NewHandler(deps.UserService, deps.Sessions, deps.Views)

	deps.InterviewerService = interviewer.NewService(backends.Interviewers, backends.Storage)
	deps.InterviewerHandler = interviewer.NewHandler(deps.InterviewerService, deps.Views, backends.Storage)

	deps.BookingService = booking.NewService(backends.Bookings, deps.InterviewerService, backends.Gateway,
		backends.Storage, deps.EventBus, clock, cfg.Host)
	deps.BookingHandler = booking.NewHandler(deps.BookingService, deps.InterviewerService, deps.Sessions, deps.Views, cfg.CalCom.EmbedOrigin)
	deps.WebhookHandler = booking.NewWebhookHandler(deps.BookingService, backends.Verifier)

	deps.Notifier, err = notification.NewNotifier(backends.Mailer)
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	deps.Notifier.Subscribe(deps.EventBus)
	subscribeMetrics(deps.EventBus)

	deps.DashboardHandler = dashboard.NewHandler(deps.InterviewerService, deps.BookingService, deps.Sessions, deps.Views)
	deps.PagesHandler = pages.NewHandler(deps.InterviewerService, deps.Views, backends.DB)

	deps.LoginLimiter = NewRateLimiter(loginRate, loginBurst)

	return deps, nil
}

func commonFunc(sessions *account.SessionManager) view.CommonFunc {
	return func(w http.ResponseWriter, r *http.Request) view.Common {
		common := view.Common{
			Messages:  sessions.Flashes(w, r),
			CSRFField: csrf.TemplateField(r),
			Path:      r.URL.Path,
		}
		if u, err := user.CurrentUser(r.Context()); err == nil {
			common.User = &u
		}
		return common
	}
}

func subscribeMetrics(bus *event_bus.EventBus) {
	bus.Subscribe(event_bus.BookingConfirmedEvent, func(event_bus.Event) error {
		metrics.RecordBookingEvent("confirmed")
		return nil
	})
	bus.Subscribe(event_bus.BookingCancelledEvent, func(event_bus.Event) error {
		metrics.RecordBookingEvent("cancelled")
		return nil
	})
}
