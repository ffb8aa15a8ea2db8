package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/extraction-eval/internal/eval"
	"github.com/sells-group/extraction-eval/internal/model"
	"github.com/sells-group/extraction-eval/internal/store"
)

var (
	servePort     int
	serveSpecFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the evaluation HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		registry, err := model.LoadSpecFile(serveSpecFile)
		if err != nil {
			return eris.Wrap(err, "load class specs")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		engine := buildEngine(registry)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(ctx, engine, st, cfg.Server.AllowedOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the evaluation API. POST /evaluations accepts a document
// record, registers a RUNNING row and evaluates asynchronously; clients poll
// GET /evaluations/{id} for the result. baseCtx bounds in-flight evaluations:
// when it is cancelled (server shutdown) running evaluations stop with
// partial results.
func newRouter(baseCtx context.Context, engine *eval.Engine, st store.Store, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/evaluations", func(w http.ResponseWriter, req *http.Request) {
		doc, err := model.DecodeDocument(req.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		id := uuid.NewString()
		if err := st.CreateEvaluation(req.Context(), id, doc.DocumentID); err != nil {
			zap.L().Error("register evaluation failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not register evaluation"})
			return
		}

		// Evaluation outlives the request but not the server: shutdown
		// cancels baseCtx and running evaluations complete with partial
		// results. Persistence gets its own deadline so those partial
		// results still land after cancellation.
		go func() {
			result := engine.EvaluateDocument(baseCtx, doc)
			result.ID = id

			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(baseCtx), 30*time.Second)
			defer cancel()
			if err := st.SaveResult(saveCtx, result); err != nil {
				zap.L().Error("save evaluation failed",
					zap.String("evaluation_id", id),
					zap.Error(err),
				)
				return
			}
			if _, err := st.InsertFlatRecords(saveCtx, model.Flatten(result, time.Now().UTC())); err != nil {
				zap.L().Error("save attribute rows failed",
					zap.String("evaluation_id", id),
					zap.Error(err),
				)
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"id":          id,
			"document_id": doc.DocumentID,
			"status":      string(model.StatusRunning),
		})
	})

	r.Get("/evaluations/{id}", func(w http.ResponseWriter, req *http.Request) {
		ev, err := st.GetEvaluation(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "evaluation not found"})
			return
		}
		writeJSON(w, http.StatusOK, ev)
	})

	r.Get("/evaluations", func(w http.ResponseWriter, req *http.Request) {
		filter := store.EvalFilter{
			Status:     model.Status(req.URL.Query().Get("status")),
			DocumentID: req.URL.Query().Get("document_id"),
		}
		list, err := st.ListEvaluations(req.Context(), filter)
		if err != nil {
			zap.L().Error("list evaluations failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list evaluations"})
			return
		}
		if list == nil {
			list = []store.EvaluationSummary{}
		}
		writeJSON(w, http.StatusOK, list)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveSpecFile, "spec-file", "", "class attribute spec file (required)")
	_ = serveCmd.MarkFlagRequired("spec-file")
	rootCmd.AddCommand(serveCmd)
}
