package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/contract-extract/internal/model"
	"github.com/sells-group/contract-extract/internal/pipeline"
	anthropicpkg "github.com/sells-group/contract-extract/pkg/anthropic"
)

var servePort int

// extractRequest is the POST /extract body: one packet's pages as
// base64-encoded images, in order.
type extractRequest struct {
	Pages []struct {
		Image     string `json:"image"`
		MediaType string `json:"mediaType"`
	} `json:"pages"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extraction HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		p := pipeline.New(client, cfg, nil)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/extract", func(w http.ResponseWriter, req *http.Request) {
			var body extractRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if len(body.Pages) == 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pages is required"})
				return
			}

			pages := make([]model.Page, 0, len(body.Pages))
			for i, pg := range body.Pages {
				data, err := base64.StdEncoding.DecodeString(pg.Image)
				if err != nil {
					writeJSON(w, http.StatusBadRequest, map[string]string{
						"error": fmt.Sprintf("page %d: invalid base64 image", i+1),
					})
					return
				}
				mediaType := pg.MediaType
				if mediaType == "" {
					mediaType = "image/png"
				}
				pages = append(pages, model.Page{PageNumber: i + 1, Image: data, MediaType: mediaType})
			}

			result, err := p.Extract(req.Context(), pages)
			if err != nil {
				zap.L().Error("extract request failed", zap.Error(err))
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
