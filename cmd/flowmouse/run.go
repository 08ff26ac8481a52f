package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sweeney/flowmouse/internal/app"
	"github.com/sweeney/flowmouse/internal/clock"
	"github.com/sweeney/flowmouse/internal/config"
	"github.com/sweeney/flowmouse/internal/mqtt"
	"github.com/sweeney/flowmouse/internal/status"
	"github.com/sweeney/flowmouse/internal/web"
)

var (
	runOpts = struct {
		broker  string
		http    string
		source  string
		backend string
		sinks   []string
	}{}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the task set until SIGINT or SIGTERM",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg, err = applyRunFlags(cfg, cmd.Flags())
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
)

func init() {
	registerRunFlags(runCmd.Flags())
}

func registerRunFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&runOpts.broker, "broker", "b", "", "MQTT broker address, overrides mqtt.broker")
	flags.StringVar(&runOpts.http, "http", "", "HTTP status address, overrides http.addr")
	flags.StringVarP(&runOpts.source, "source", "s", "", "report source: synthetic, sensor or register")
	flags.StringVarP(&runOpts.backend, "gpio", "g", "", "GPIO backend: gpiocdev, keyboard or fake")
	flags.StringSliceVar(&runOpts.sinks, "sinks", nil, "report sinks: log, serial, mqtt")
}

// applyRunFlags overlays the flags that were set on the command line.
func applyRunFlags(cfg config.Config, flags *pflag.FlagSet) (config.Config, error) {
	if flags.Changed("broker") {
		cfg.MQTT.Broker = runOpts.broker
	}
	if flags.Changed("http") {
		cfg.HTTP.Addr = runOpts.http
	}
	if flags.Changed("source") {
		cfg.Report.Source = runOpts.source
	}
	if flags.Changed("gpio") {
		cfg.GPIO.Backend = runOpts.backend
	}
	if flags.Changed("sinks") {
		cfg.Sinks = runOpts.sinks
	}
	return cfg, cfg.Validate()
}

func run(cfg config.Config) error {
	counter := clock.NewCycleCounter(cfg.Clock.Frequency)
	counter.Enable()
	delay := clock.Spinner{Clock: counter, Frequency: counter.Frequency()}

	hw, err := app.OpenHardware(cfg, delay)
	if err != nil {
		return err
	}
	defer func() {
		if err := hw.Close(); err != nil {
			log.Printf("close hardware: %v", err)
		}
	}()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), cfg.Status())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	sys, err := app.Build(cfg, hw, tracker, counter, clock.NewHostAlarm(counter))
	if err != nil {
		return err
	}

	if hw.Publisher != nil {
		publishLifecycle(hw.Publisher, tracker, mqtt.EventStartup, "", time.Now())
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: clock=%dHz source=%s sinks=%v gpio=%s broker=%q",
		cfg.Clock.Frequency, cfg.Report.Source, cfg.Sinks, cfg.GPIO.Backend, cfg.MQTT.Broker)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(sys, hw.Publisher, hw.Connection, tracker, time.Now, sigCh)
}

// runner is the executor-owning half of app.System.
type runner interface {
	Run(ctx context.Context) error
}

// runLoop runs the executor on its own goroutine until a signal arrives or the
// executor stops by itself. On a signal it publishes SHUTDOWN. publisher may be nil.
func runLoop(sys runner, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sys.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case s := <-sig:
		log.Printf("received %v, shutting down", s)
		cancel()
		if err := <-done; err != nil {
			log.Printf("executor: %v", err)
		}
		if publisher == nil {
			return nil
		}
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		publishLifecycle(publisher, tracker, mqtt.EventShutdown, signalName(s), now())
		return nil
	}
}

// publishLifecycle publishes a retained STARTUP or SHUTDOWN event carrying a
// full status snapshot.
func publishLifecycle(publisher mqtt.Publisher, tracker *status.Tracker, event, reason string, at time.Time) {
	snap := tracker.Snapshot()
	e := mqtt.SystemEvent{
		Timestamp:  at,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := publisher.PublishSystem(e); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
