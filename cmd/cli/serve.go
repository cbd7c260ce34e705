package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "taskflow-backend/cmd/api"
	"taskflow-backend/internal/task/scheduler"

	"github.com/spf13/cobra"
)

var (
	servePort       string
	serveNoSchedule bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the reconciliation loop",
	Long: `Start the HTTP API.

The reconciliation batch runs on RECONCILE_INTERVAL and, when
GOOGLE_PROJECT_ID is set, whenever a message arrives on RECONCILE_TOPIC.

Examples:
  taskflow serve
  taskflow serve --port 9090 --no-schedule`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveNoSchedule, "no-schedule", false, "do not start the periodic reconciliation loop")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if !serveNoSchedule {
		a.scheduler.Start(ctx)
	}

	if cfg.GoogleProjectID != "" {
		trigger, err := scheduler.NewPubSubTrigger(ctx, cfg.GoogleProjectID, cfg.ReconcileTopic, cfg.GoogleCredentials, a.scheduler)
		if err != nil {
			log.Printf("[PubSub] Trigger disabled: %v", err)
		} else {
			go trigger.Start(ctx)
			defer trigger.Close()
		}
	}

	h := api.NewHandler(a.services, a.scheduler, a.devices, a.tokens)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
