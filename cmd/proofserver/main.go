package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	enginecommon "github.com/walletvault/vault-integrity-engine/common"
	"github.com/walletvault/vault-integrity-engine/prover"
)

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8090",
		Usage: "address to listen on for proof requests",
	},
	&cli.DurationFlag{
		Name:  "proving-delay",
		Value: 0,
		Usage: "artificial proving latency, to exercise client timeouts",
	},
	&cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	},
	&cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	},
}

func main() {
	app := &cli.App{
		Name:  "proofserver",
		Usage: "development proof backend; emits stub proofs, never deploy against a production verifier",
		Flags: flags,
		Action: func(cCtx *cli.Context) error {
			logger := enginecommon.SetupLogger(&enginecommon.LoggingOpts{
				Debug:   cCtx.Bool("log-debug"),
				JSON:    cCtx.Bool("log-json"),
				Service: "proofserver",
				Version: enginecommon.Version,
			})

			devSrv := prover.NewDevServer(&prover.DevServerConfig{
				Log:          logger,
				ProvingDelay: cCtx.Duration("proving-delay"),
			})

			listenAddr := cCtx.String("listen-addr")
			srv := &http.Server{
				Addr:         listenAddr,
				Handler:      devSrv.Router(),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 60 * time.Second,
			}

			done := make(chan error, 1)
			go func() {
				done <- srv.ListenAndServe()
			}()
			logger.Info("Proof server listening", "addr", listenAddr)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-done:
				return err
			case <-sig:
			}

			devSrv.SetReady(false)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			logger.Info("Shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
