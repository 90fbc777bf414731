package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/vitals.report/internal/acquire"
	"github.com/banshee-data/vitals.report/internal/classify"
	"github.com/banshee-data/vitals.report/internal/config"
	"github.com/banshee-data/vitals.report/internal/cycle"
	"github.com/banshee-data/vitals.report/internal/debugplot"
	"github.com/banshee-data/vitals.report/internal/monitoring"
	"github.com/banshee-data/vitals.report/internal/report"
	"github.com/banshee-data/vitals.report/internal/sensor"
	"github.com/banshee-data/vitals.report/internal/serialmux"
	"github.com/banshee-data/vitals.report/internal/timeutil"
	"github.com/banshee-data/vitals.report/internal/version"
	"github.com/banshee-data/vitals.report/internal/vitals"
)

var (
	deviceConfig = flag.String("config", config.DefaultDevicePath, "Device key=value file (plate, model, server_ip)")
	tuningConfig = flag.String("tuning", "", "Optional tuning JSON file (see config/tuning.defaults.json)")
	devMode      = flag.Bool("dev", false, "Use the built-in sensor simulator instead of the serial bridge")
	port         = flag.String("port", "/dev/ttyUSB0", "Serial port of the sensor bridge (ignored in dev mode)")
	baud         = flag.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	asyncReport  = flag.Bool("async-report", true, "Submit reports in the background instead of blocking the cycle")
	debugListen  = flag.String("debug-listen", "", "Listen address for /debug/ admin routes (disabled when empty)")
	plotDir      = flag.String("plot-dir", "", "Write filtered-signal PNGs for every cycle to this directory")
	cycles       = flag.Int("cycles", 0, "Stop after this many cycles (0 runs until interrupted)")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

// sensors bundles the three read primitives.
type sensors struct {
	ecg   sensor.ECGReader
	ppg   sensor.PPGReader
	therm sensor.Thermometer
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("vitals %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	monitoring.SetLogger(log.Printf)

	device, err := config.LoadDeviceConfig(*deviceConfig)
	if err != nil {
		log.Fatalf("failed to load device config: %v", err)
	}
	tuning := config.EmptyTuningConfig()
	if *tuningConfig != "" {
		tuning, err = config.LoadTuningConfig(*tuningConfig)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}
	plan := tuning.Plan()

	var plotter *debugplot.Plotter
	if *plotDir != "" {
		plotter, err = debugplot.New(*plotDir, device.Plate)
		if err != nil {
			log.Fatalf("failed to prepare plot directory: %v", err)
		}
	}
	log.Printf("vehicle %s (%s), reporting to %s", device.Plate, device.Model, device.ServerURL())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	var (
		src sensors
		mux serialmux.SerialMuxInterface
	)
	if *devMode {
		sim := sensor.NewSimulator(sensor.SimulatorConfig{ECGRateHz: plan.ECGRate, PPGRateHz: plan.PPGRate})
		src = sensors{ecg: sim, ppg: sim, therm: sim}
		mux = serialmux.NewDisabledSerialMux()
		log.Print("dev mode: using simulated sensors")
	} else {
		bridgeMux, err := serialmux.NewRealSerialMux(*port, serialmux.PortOptions{BaudRate: *baud})
		if err != nil {
			log.Fatalf("failed to open sensor bridge: %v", err)
		}
		bridgeMux.SetStreamConfig(serialmux.StreamConfig{
			ECGRateHz:  int(plan.ECGRate),
			PPGRateHz:  int(plan.PPGRate),
			TempPeriod: serialmux.DefaultStreamConfig.TempPeriod,
		})
		mux = bridgeMux
		bridge := sensor.NewBridge(mux, timeutil.RealClock{})
		src = sensors{ecg: bridge, ppg: bridge, therm: bridge}

		// run the monitor routine to manage IO on the serial port
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mux.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("failed to monitor serial port: %v", err)
			}
			log.Print("monitor routine terminated")
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("bridge routine: %v", err)
			}
			overflow, malformed := bridge.Stats()
			log.Printf("bridge routine terminated (ppg overflow %d, malformed lines %d)", overflow, malformed)
		}()

		if err := initBridge(mux); err != nil {
			stop()
			wg.Wait()
			log.Fatalf("failed to initialize sensor bridge: %v", err)
		}
		log.Printf("initialized sensor bridge on %s", *port)
	}
	defer mux.Close()

	if *debugListen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveDebug(ctx, *debugListen, mux)
		}()
	}

	reporter := report.NewReporter(device.ServerURL(), device.Identity())
	reporter.Timeout = tuning.GetReportTimeout()
	var (
		sink       cycle.Sink = reporter
		dispatcher *report.Dispatcher
	)
	if *asyncReport {
		dispatcher = report.NewDispatcher(reporter)
		sink = dispatcher
	}

	controller := newController(src, tuning, sink)
	if plotter != nil {
		controller.Plotter = plotter
	}

	if err := controller.Run(ctx, *cycles); err != nil {
		log.Printf("measurement loop stopped: %v", err)
	}
	stop()

	if dispatcher != nil {
		log.Print("waiting for in-flight reports...")
		dispatcher.Wait()
	}
	if err := mux.Close(); err != nil {
		log.Printf("failed to close sensor bridge: %v", err)
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// initBridge configures the bridge stream. On failure the mux is closed so
// the port is released before the caller exits.
func initBridge(mux serialmux.SerialMuxInterface) error {
	if err := mux.Initialize(); err != nil {
		if cerr := mux.Close(); cerr != nil {
			log.Printf("failed to close sensor bridge: %v", cerr)
		}
		return err
	}
	return nil
}

// newController wires the measurement pipeline for the given sensors.
func newController(src sensors, tuning *config.TuningConfig, sink cycle.Sink) *cycle.Controller {
	clock := timeutil.RealClock{}
	return &cycle.Controller{
		Acquirer: &acquire.Acquirer{
			ECG:     src.ecg,
			PPG:     src.ppg,
			Clock:   clock,
			Contact: tuning.ContactPolicy(),
		},
		Calculator: &vitals.Calculator{Calibration: tuning.Calibration()},
		Thermal:    tuning.ThermalReader(src.therm, clock),
		Classifier: classify.New(),
		Sink:       sink,
		Plan:       tuning.Plan(),
		Clock:      clock,
	}
}

func serveDebug(ctx context.Context, addr string, mux serialmux.SerialMuxInterface) {
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	server := &http.Server{
		Addr:    addr,
		Handler: httpMux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("debug server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("debug server shutdown error: %v", err)
	}
	log.Printf("debug server stopped")
}
