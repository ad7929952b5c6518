package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"tourney.org/internal/account"
	"tourney.org/internal/auth"
	"tourney.org/internal/httpapi"
	"tourney.org/internal/obs"
	"tourney.org/internal/store/pg"
	"tourney.org/internal/tournament"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Storage: Postgres when a DSN is configured, in-memory otherwise.
	var (
		accStore   account.Store
		roleStore  account.RoleStore
		tourStore  tournament.Store
		readyProbe httpapi.ReadyProbe
	)
	if dsn := os.Getenv("TOURNEY_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		bootCtx, bootCancel := context.WithTimeout(ctx, 30*time.Second)
		if err := store.Bootstrap(bootCtx); err != nil {
			bootCancel()
			log.Fatalf("bootstrap schema: %v", err)
		}
		bootCancel()
		accStore = store.Accounts()
		roleStore = store.Roles()
		tourStore = store.Tournaments()
		readyProbe = httpapi.ReadyProbe{DB: store.DB()}
	} else {
		log.Printf("TOURNEY_PG_DSN not set, using in-memory storage")
		mem := account.NewInMemory()
		accStore = mem
		roleStore = mem.RoleStore()
		tourStore = tournament.NewInMemory()
		readyProbe = httpapi.ReadyProbe{}
	}

	codec, err := loadCodec()
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	accounts, err := account.NewService(accStore, roleStore)
	if err != nil {
		log.Fatalf("account service: %v", err)
	}
	if err := accounts.EnsureBaseRoles(ctx); err != nil {
		log.Fatalf("seed roles: %v", err)
	}
	tournaments, err := tournament.NewService(tourStore, accStore)
	if err != nil {
		log.Fatalf("tournament service: %v", err)
	}
	gate, err := auth.NewGate(accounts, codec, tokenTTL())
	if err != nil {
		log.Fatalf("auth gate: %v", err)
	}

	api := httpapi.New(accounts, tournaments, gate, codec, readyProbe, version)

	handler := api.Handler()
	handler = httpapi.LoggingJSON(handler)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.CORS(handler)
	handler = httpapi.MaxBodyBytes(handler, 1<<20)
	handler = httpapi.RateLimit(handler, 50, 25)
	handler = httpapi.RequestID(handler)

	httpAddr := envOr("TOURNEY_HTTP_ADDR", ":8080")
	srv := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// gRPC health endpoint for orchestrators that do not probe HTTP.
	grpcSrv := grpc.NewServer()
	healthSvc := httpapi.NewGRPCHealth(readyProbe)
	healthSvc.Register(grpcSrv)
	go healthSvc.Watch(ctx, 10*time.Second)
	grpcAddr := envOr("TOURNEY_GRPC_ADDR", ":9090")
	go func() {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		log.Printf("gRPC health on %s", grpcAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Printf("grpc serve: %v", err)
		}
	}()

	log.Printf("Starting tourney-api %s on %s", version, srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()
	log.Println("Stopped")
}

// loadCodec builds the RS256 codec from the configured PEM pair. Without
// keys it generates an ephemeral pair so a dev instance can still issue
// tokens; those tokens die with the process.
func loadCodec() (*auth.Codec, error) {
	privPEM := os.Getenv("TOURNEY_RSA_PRIVATE_PEM")
	pubPEM := os.Getenv("TOURNEY_RSA_PUBLIC_PEM")
	if privPEM != "" && pubPEM != "" {
		return auth.NewCodec(privPEM, pubPEM)
	}
	log.Printf("TOURNEY_RSA_PRIVATE_PEM not set, generating ephemeral signing key")
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return auth.NewCodecFromKey(key)
}

func tokenTTL() time.Duration {
	raw := os.Getenv("TOURNEY_TOKEN_TTL_MIN")
	if raw == "" {
		return 0
	}
	mins, err := strconv.Atoi(raw)
	if err != nil || mins <= 0 {
		log.Printf("ignoring invalid TOURNEY_TOKEN_TTL_MIN=%q", raw)
		return 0
	}
	return time.Duration(mins) * time.Minute
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
