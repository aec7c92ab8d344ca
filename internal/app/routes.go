package app

import (
	"net/http"

	"github.com/508dev/interview-service/internal/config"
	"github.com/508dev/interview-service/internal/metrics"
	"github.com/508dev/interview-service/pkg/account"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all pages and endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Pages
	r.HandleFunc("/", deps.PagesHandler.Home).Methods("GET")
	r.HandleFunc("/health/", deps.PagesHandler.Health).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Interviewers
	r.HandleFunc("/interviewers/", deps.InterviewerHandler.List).Methods("GET")
	r.HandleFunc("/interviewers/featured/", deps.InterviewerHandler.Featured).Methods("GET")
	r.HandleFunc("/interviewers/{interviewerId:[0-9]+}/modal/", deps.InterviewerHandler.Modal).Methods("GET")
	r.HandleFunc("/media/interviewers/{name}", deps.InterviewerHandler.Photo).Methods("GET")

	// Bookings
	r.HandleFunc("/bookings/success/", deps.BookingHandler.Success).Methods("GET")
	r.HandleFunc("/bookings/cancel/", deps.BookingHandler.Cancel).Methods("GET")
	r.HandleFunc("/bookings/{interviewerId:[0-9]+}/", deps.BookingHandler.Start).Methods("GET")
	r.HandleFunc("/bookings/{interviewerId:[0-9]+}/form/", deps.BookingHandler.Form).Methods("GET")
	r.HandleFunc("/bookings/{interviewerId:[0-9]+}/create/", deps.BookingHandler.Create).Methods("POST")
	r.HandleFunc(webhookPath, deps.WebhookHandler.Stripe).Methods("POST")

	// Accounts
	r.HandleFunc(account.LoginURL, deps.LoginLimiter.Limit(account.LoginURL, deps.AccountHandler.Login)).Methods("GET", "POST")
	r.HandleFunc("/accounts/logout/", deps.AccountHandler.Logout).Methods("GET", "POST")

	// Dashboard
	d := r.PathPrefix("/dashboard").Subrouter()
	d.Use(account.RequireLogin)
	d.HandleFunc("/", deps.DashboardHandler.Home).Methods("GET")
	d.HandleFunc("/profile/", deps.DashboardHandler.Profile).Methods("GET")
	d.HandleFunc("/profile/", deps.DashboardHandler.UpdateProfile).Methods("POST")
	d.HandleFunc("/bookings/{bookingId:[0-9]+}/", deps.DashboardHandler.BookingDetail).Methods("GET")
	d.HandleFunc("/bookings/{bookingId:[0-9]+}/complete/", deps.DashboardHandler.Complete).Methods("GET", "POST")
	d.HandleFunc("/bookings/{bookingId:[0-9]+}/resume/", deps.DashboardHandler.Resume).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(deps.PagesHandler.NotFound)
}
