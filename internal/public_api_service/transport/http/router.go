package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterDeps carries the handlers the API router mounts.
type RouterDeps struct {
	Contacts *ContactHandler
	Messages *MessageHandler
	Reports  *ReportHandler
}

// NewRouter assembles the public API.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(10 * time.Minute)) // bulk runs pace themselves between sends
	r.Use(PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "dispatch service is healthy"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/contacts", func(cr chi.Router) {
			cr.Get("/", deps.Contacts.List)
			cr.Post("/", deps.Contacts.Add)
			cr.Post("/upload", deps.Contacts.Upload)
			cr.Post("/reset", deps.Contacts.ResetAll)
			cr.Post("/{contactID}/reset", deps.Contacts.ResetOne)
			cr.Delete("/{contactID}", deps.Contacts.Delete)
		})

		api.Post("/send-messages", deps.Messages.SendMessages)
		api.Post("/test-delivery", deps.Messages.TestDelivery)

		api.Get("/runs", deps.Reports.ListRuns)
		api.Get("/report", deps.Reports.DownloadReport)
	})

	return r
}
