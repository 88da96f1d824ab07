package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"schoolportal/internal/config"
	"schoolportal/internal/detection"
	"schoolportal/internal/portalclient"
)

var errMissingEvent = errors.New("an event id is required (--event or KIOSK_EVENT_ID)")

// Kiosk reads newline-delimited detection frames and records attendance
// through the portal API.
func main() {
	cfg := config.Load()
	var (
		eventID  int64
		input    string
		annotate bool
	)
	cmd := &cobra.Command{
		Use:   "kiosk",
		Short: "Live face check-in for one event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg, eventID, input, annotate)
		},
		SilenceUsage: true,
	}
	cmd.Flags().Int64Var(&eventID, "event", cfg.Kiosk.EventID, "event id to check students into")
	cmd.Flags().StringVar(&input, "frames", "-", "frame file (JSON lines), - for stdin")
	cmd.Flags().BoolVar(&annotate, "annotate", false, "write per-frame annotations to stdout as JSON lines")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("kiosk: %v", err)
	}
}

func run(ctx context.Context, cfg config.App, eventID int64, input string, annotate bool) error {
	if eventID <= 0 {
		return errMissingEvent
	}

	var r io.Reader = os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return errors.Wrap(err, "open frames")
		}
		r = f
	}

	if cfg.Kiosk.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: cfg.Kiosk.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			log.Printf("metrics on %s", cfg.Kiosk.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	client := portalclient.New(cfg.Kiosk.PortalURL)
	loginCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Login(loginCtx, cfg.Kiosk.Username, cfg.Kiosk.Password); err != nil {
		return errors.Wrap(err, "portal login")
	}

	dc := detection.DefaultConfig()
	dc.Threshold = cfg.Kiosk.Threshold
	dc.Dwell = cfg.Kiosk.Dwell
	dc.Debounce = cfg.Kiosk.Debounce
	dc.MaxGap = cfg.Kiosk.MaxGap
	dc.Location = cfg.Location()

	session := detection.NewSession(eventID, client, detection.NewLineSource(r), dc)
	if annotate {
		enc := json.NewEncoder(os.Stdout)
		session.OnFrame = func(f detection.Frame, res detection.FrameResult) {
			for i := range res.Annotations {
				// descriptors of another length compare at +Inf, which JSON cannot carry
				if math.IsInf(res.Annotations[i].Distance, 0) {
					res.Annotations[i].Distance = -1
				}
			}
			_ = enc.Encode(struct {
				At          time.Time              `json:"ts"`
				Annotations []detection.Annotation `json:"annotations"`
			}{f.At, res.Annotations})
		}
	}

	go func() {
		<-ctx.Done()
		session.Stop()
	}()

	log.Printf("kiosk session %s started for event %d", session.ID, eventID)
	stats, err := session.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("kiosk session %s done: %d frames, %d submitted, %d confirmed, %d failed",
		session.ID, stats.Frames, stats.Submitted, stats.Confirmed, stats.Failed)
	return nil
}
