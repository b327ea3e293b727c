package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"paycore.org/internal/audit"
	"paycore.org/internal/auth"
	"paycore.org/internal/hrsync"
	"paycore.org/internal/obs"
	"paycore.org/internal/payroll"
)

// ReadyProbe is a simple readiness check (e.g., DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	payroll  *payroll.Service
	users    *auth.Users
	recorder *audit.Recorder
	sync     *hrsync.Service

	rateBurst  int
	ratePerSec int
}

// New wires handlers onto the mux. The hrsync service may be nil when
// the integration is not configured.
func New(rp ReadyProbe, version string, payrollSvc *payroll.Service, users *auth.Users, recorder *audit.Recorder, sync *hrsync.Service) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		payroll:    payrollSvc,
		users:      users,
		recorder:   recorder,
		sync:       sync,
		rateBurst:  20,
		ratePerSec: 10,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	a.mux.HandleFunc("/v1/payruns", a.handlePayRunsCollection)
	a.mux.HandleFunc("/v1/payruns/", a.handlePayRunResource)
	a.mux.HandleFunc("/v1/payitems", a.handlePayItemsCollection)
	a.mux.HandleFunc("/v1/payitems/", a.handlePayItemResource)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)
	a.mux.HandleFunc("/v1/hrsync/status", a.handleSyncStatus)
	a.mux.HandleFunc("/v1/hrsync/run", a.handleSyncRun)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = LoggingJSON(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// recordAudit emits exactly one entry for a handler outcome.
func (a *API) recordAudit(r *http.Request, action, resource, resourceID string, result audit.Result, details map[string]any) {
	actor := ""
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
		actor = principal.UserID
	}
	a.recorder.Record(r.Context(), audit.Entry{
		Actor:      actor,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		IP:         clientIP(r),
		UserAgent:  r.UserAgent(),
		Result:     result,
	})
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "paycore-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeEnvelope(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeEnvelope(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, map[string]any{
		"name":    "paycore-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
