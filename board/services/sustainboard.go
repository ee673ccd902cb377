package services

import (
	"log"
	"net/http"
	"os"
	"sustainboard/board/auth"
	"sustainboard/board/settings"
	"sustainboard/board/storage"
	"sustainboard/utils"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	requestCountMetric   = promauto.NewCounter(prometheus.CounterOpts{Name: "sustainboard_requests_total", Help: "API requests served"})
	requestLatencyMetric = promauto.NewSummary(prometheus.SummaryOpts{Name: "sustainboard_request_seconds", Help: "API request latency"})
)

func trackRequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		requestCountMetric.Inc()
		requestLatencyMetric.Observe(time.Since(start).Seconds())
	})
}

// SustainBoard wires the service layer together and owns the top level
// router. All authenticated routes share the same middleware chain: token
// verification followed by audit logging.
type SustainBoard struct {
	auth       AuthService
	user       UserService
	profile    ProfileService
	project    ProjectService
	impact     ImpactService
	sdg        SdgService
	management ManagementService

	db *gorm.DB
}

func NewSustainBoard(
	db *gorm.DB, store storage.Storage, tokens *auth.TokenFactory, gates *settings.Store, auditLog auth.AuditLogger,
) SustainBoard {
	authChain := chi.Middlewares{tokens.RequireAuth(db), auditLog.Middleware}

	return SustainBoard{
		auth:       AuthService{db: db, tokens: tokens, gates: gates},
		user:       UserService{db: db, storage: store, tokens: tokens, gates: gates, authChain: authChain},
		profile:    ProfileService{db: db, storage: store, authChain: authChain},
		project:    ProjectService{db: db, authChain: authChain},
		impact:     ImpactService{db: db, authChain: authChain},
		sdg:        SdgService{db: db, authChain: authChain},
		management: ManagementService{gates: gates, authChain: authChain},
		db:         db,
	}
}

func (b *SustainBoard) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))
	r.Use(trackRequestMetrics)

	r.Mount("/auth", b.auth.Routes())
	r.Mount("/users", b.user.Routes())
	r.Mount("/profiles", b.profile.Routes())
	r.Mount("/projects", b.project.Routes())
	r.Mount("/impacts", b.impact.Routes())
	r.Mount("/sdgs", b.sdg.Routes())
	r.Mount("/management", b.management.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
