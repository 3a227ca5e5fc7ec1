package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/swaggo/swag"

	_ "fieldsurvey/internal/docs"
	"fieldsurvey/internal/metrics"
	"fieldsurvey/internal/service"
	"fieldsurvey/internal/transport/rest/handler"
	"fieldsurvey/internal/transport/rest/middleware"
	"fieldsurvey/internal/transport/ws"
)

// CORS holds the allowed origins, methods and headers
type CORS struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// Container holds all dependencies for the router
type Container struct {
	AuthService     *service.AuthService
	ResponseService *service.ResponseService
	ReportService   *service.ReportService
	Resolver        *service.SurveyResolver
	WSHub           *ws.Hub
	Metrics         *metrics.Collector
	CORS            CORS
	RequestTimeout  time.Duration
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	responseHandler := handler.NewResponseHandler(c.ResponseService)
	reportHandler := handler.NewReportHandler(c.ReportService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.Resolver)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORS))
	r.Use(middleware.RequestID)
	r.Use(middleware.Observe(c.Metrics))
	r.Use(middleware.Timeout(c.RequestTimeout))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")

	r.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}).Methods("GET")

	// WebSocket feed (token in query param)
	r.HandleFunc("/ws/surveys/{surveyId}/feed", wsHandler.SurveyFeed).Methods("GET")

	// Response routes (optional field agent token)
	api := r.NewRoute().Subrouter()
	api.Use(authMW.OptionalUser)

	api.HandleFunc("/responses", responseHandler.Submit).Methods("POST", "OPTIONS")
	api.HandleFunc("/responses", responseHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/responses/crosstab", reportHandler.Crosstab).Methods("GET", "OPTIONS")
	api.HandleFunc("/responses/analytics", reportHandler.Analytics).Methods("GET", "OPTIONS")
	api.HandleFunc("/responses/daily-report", reportHandler.Daily).Methods("GET", "OPTIONS")
	api.HandleFunc("/responses/summary-report", reportHandler.Summary).Methods("GET", "OPTIONS")
	api.HandleFunc("/responses/spatial-report", reportHandler.Spatial).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(cfg CORS) mux.MiddlewareFunc {
	if cfg.AllowedOrigins == "" {
		cfg.AllowedOrigins = "*"
	}
	if cfg.AllowedMethods == "" {
		cfg.AllowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	if cfg.AllowedHeaders == "" {
		cfg.AllowedHeaders = "Content-Type, Authorization, X-Request-ID"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", cfg.AllowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", cfg.AllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", cfg.AllowedHeaders)

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
