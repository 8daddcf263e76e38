package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/urfave/cli/v3"

	"songlift/internal/server"
)

// Serve exposes the scrape and classify pipeline over HTTP.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	host := r.config.Server.Host
	if h := cmd.String("host"); h != "" {
		host = h
	}
	port := r.config.Server.Port
	if p := cmd.Int("port"); p > 0 {
		port = p
	}

	engine, err := r.newScraper()
	if err != nil {
		return err
	}

	// Classification is optional: without an API key the endpoint still
	// serves scrape-only requests.
	var classify server.Classifier
	if c, err := r.newClassifier(); err != nil {
		r.logger.Warn("classification disabled", "error", err)
	} else {
		classify = c
	}

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(server.NewHealthHandler("songlift"))
	router.Handler(server.NewProcessHandler(engine, classify, r.logger))

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	r.logger.Info("starting server", "addr", addr)
	r.writePlain("Listening on http://%s\n", addr)

	srv := &http.Server{Addr: addr, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		r.logger.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}
