package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paycore.org/internal/audit"
	"paycore.org/internal/auth"
	"paycore.org/internal/hrsync"
	"paycore.org/internal/httpapi"
	"paycore.org/internal/obs"
	"paycore.org/internal/payroll"
	"paycore.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		payrollStore payroll.Store
		userStore    auth.UserStore
		members      *payroll.MembershipResolver
		sinks        []audit.Sink
		probe        httpapi.ReadyProbe
	)
	sinks = append(sinks, audit.LogSink{})

	if dsn := os.Getenv("PAYCORE_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()

		payrollStore = store
		userStore = store
		members = payroll.NewMembershipResolver(store.Members(), store.LegacyMembers())
		sinks = append(sinks, store.Audit())
		probe = httpapi.ReadyProbe{DB: store.DB()}
	} else {
		log.Println("PAYCORE_PG_DSN not set, using in-memory stores")
		payrollStore = payroll.NewMemory()
		userStore = auth.NewMemoryUsers()
		members = payroll.NewMembershipResolver()
	}

	recorder := audit.NewRecorder(sinks...)
	payrollSvc := payroll.NewService(payrollStore, members)
	users := auth.NewUsers(userStore)

	var sync *hrsync.Service
	if base := os.Getenv("PAYCORE_ZOHO_BASE_URL"); base != "" {
		tokens := hrsync.NewTokenSource(
			os.Getenv("PAYCORE_ZOHO_TOKEN_URL"),
			os.Getenv("PAYCORE_ZOHO_CLIENT_ID"),
			os.Getenv("PAYCORE_ZOHO_CLIENT_SECRET"),
			os.Getenv("PAYCORE_ZOHO_REFRESH_TOKEN"),
		)
		client := hrsync.NewClient(base, tokens)
		sink, ok := payrollStore.(hrsync.EmployeeSink)
		if !ok {
			log.Fatal("hrsync requires the postgres store")
		}
		sync = hrsync.NewService(client, sink, hrsync.NewMonitor(), os.Getenv("PAYCORE_ZOHO_ORG_ID"))
	}

	api := httpapi.New(probe, version, payrollSvc, users, recorder, sync)

	addr := os.Getenv("PAYCORE_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting paycore-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
