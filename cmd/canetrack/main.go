/*
Canetrack serves the canetrack delivery tracker over HTTP, or exports the
recorded deliveries as CSV.

Usage:

	canetrack [flags]

Once started, the server will listen for HTTP requests and respond to them as
configured until it receives an interrupt. The main endpoints of interest are:

  - /status - the state of the tracker and the size of each collection
  - /deliveries - list, record, update and delete deliveries
  - /deliveries/export.csv - download the selected deliveries as CSV
  - /summary - totals and the most recent deliveries
  - /analysis - totals and breakdowns for a time frame

Reference data is served under /locations, /facilities and /operators.

The flags are:

	-c, --config PATH
		Use the given file for the configuration. The file must be in JSON or
		YAML format. If not given, the defaults are used.

	--db CONN
		Use the given connection string for the store instead of the one in
		the configuration. Must be "inmem", "sqlite:DIR", or
		"file:dir=DIR[,file=NAME]".

	--export PATH
		Instead of starting the server, write every delivery to PATH as CSV,
		newest first, and exit. Give "-" to write to stdout.

	--dump-config
		Print the effective configuration as YAML and exit.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/internal/config"
	"github.com/canetrack/canetrack/logging"
	"github.com/canetrack/canetrack/report"
	"github.com/canetrack/canetrack/server"
	"github.com/canetrack/canetrack/tracker"
	"github.com/spf13/pflag"
)

const (
	exitSuccess   = 0
	exitError     = 1
	exitPanic     = 2
	exitInterrupt = 3
)

var exitCode int

var (
	flagConf       = pflag.StringP("config", "c", "", "Path to configuration file")
	flagDB         = pflag.String("db", "", "Store connection string; overrides the configuration")
	flagExport     = pflag.String("export", "", "Write all deliveries as CSV to the given path (\"-\" for stdout) and exit")
	flagDumpConfig = pflag.Bool("dump-config", false, "Print the effective configuration and exit")
)

func main() {
	ctx := context.Background()
	ctx, cancelMainContext := context.WithCancel(ctx)
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	defer func() {
		signal.Stop(signalChan)
		cancelMainContext()
	}()
	// listen for signals
	go func() {
		select {
		case <-signalChan: // first signal, cancel context
			cancelMainContext()
		case <-ctx.Done():
		}

		<-signalChan // second signal, hard exit
		os.Exit(exitInterrupt)
	}()

	defer func() {
		if panicErr := recover(); panicErr != nil {
			fmt.Fprintf(os.Stderr, "fatal panic: %v\n", panicErr)
			exitCode = exitPanic
		}
		os.Exit(exitCode)
	}()

	pflag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		exitCode = exitError
		return
	}

	if *flagDumpConfig {
		os.Stdout.Write(config.Dump(cfg))
		return
	}

	var log logging.Logger = logging.NoOpLogger{}
	if cfg.Log.Enabled {
		log, err = logging.New(cfg.Log.Provider, cfg.Log.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			exitCode = exitError
			return
		}
	}

	store, err := config.Connect(cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: connect to store: %s\n", err.Error())
		exitCode = exitError
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warnf("close store: %s", err)
		}
	}()

	tr := tracker.New(store, log)
	if err := tr.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: start tracker: %s\n", err.Error())
		exitCode = exitError
		return
	}

	if *flagExport != "" {
		if err := export(tr, *flagExport); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: export: %s\n", err.Error())
			exitCode = exitError
		}
		return
	}

	srv, err := server.New(cfg, tr, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		exitCode = exitError
		return
	}

	log.Debugf("Routes:\n%s", srv.RoutesIndex())
	log.Infof("Starting server on %s...", cfg.ListenAddress())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ServeForever()
	}()

	log.Info("canetrack started; Ctrl-C (SIGINT) to stop")

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Server encountered a problem: %v", err)
			exitCode = exitError
		}
	case <-ctx.Done():
		// ctrl-C likes to write "^C" or similar in some console output, so
		// insert a break right after that.
		log.InfoBreak()

		log.Info("SIGINT received; cleaning up server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn(err.Error())
		}
		<-serveErr
		log.Info("Server shutdown complete")
	}
}

// loadConfig reads the config file if one was given, applies flag overrides
// and fills in defaults.
func loadConfig() (canetrack.Config, error) {
	var cfg canetrack.Config
	var err error

	if *flagConf != "" {
		cfg, err = config.Load(*flagConf)
		if err != nil {
			return cfg, err
		}
	}

	if *flagDB != "" {
		cfg.DB, err = canetrack.ParseDBConnString(*flagDB)
		if err != nil {
			return cfg, fmt.Errorf("--db: %w", err)
		}
	}

	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func export(tr *tracker.Tracker, path string) error {
	ds := report.Sort(tr.Enriched(), report.FieldDate, true)

	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	return report.WriteCSV(w, ds)
}
