package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"billing-rag/internal/app"
	"billing-rag/internal/billing"
	"billing-rag/internal/bills"
	"billing-rag/internal/catalog"
	"billing-rag/internal/httputil"
	"billing-rag/internal/queue"
	"billing-rag/internal/rag"
)

type billRequest struct {
	Text        string     `json:"text"`
	ChatHistory []rag.Turn `json:"chat_history"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			deps.Log.Error("shutdown failed", "err", err)
		}
	}()

	deps.Log.Info("billing api listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		deps.Log.Error("server failed", "err", err)
	}
}

func newRouter(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log, deps.Config.RequestTimeout)
	if deps.Config.MaxBodySize > 0 {
		r.Use(middleware.RequestSize(deps.Config.MaxBodySize))
	}

	r.Post("/bill", billHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	if deps.Bills != nil {
		r.Route("/bills", func(r chi.Router) {
			r.Post("/", createBillHandler(deps))
			r.Get("/", listBillsHandler(deps))
			r.Get("/{id}", getBillHandler(deps))
			r.Put("/{id}", updateBillHandler(deps))
			r.Delete("/{id}", deleteBillHandler(deps))
		})
	}
	if deps.Queue != nil {
		r.Post("/codes/import", importCodesHandler(deps))
	}
	return r
}

func billHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req billRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			deps.Log.Warn("invalid bill payload", "err", err)
			httputil.Detail(w, http.StatusBadRequest, "invalid payload")
			return
		}
		if req.Text == "" {
			httputil.Detail(w, http.StatusBadRequest, "Missing 'text' field in request body.")
			return
		}

		res, err := deps.Billing.Extract(r.Context(), req.Text, req.ChatHistory)
		switch {
		case errors.Is(err, billing.ErrMissingCredentials):
			deps.Log.Error("provider credentials missing")
			httputil.Detail(w, http.StatusInternalServerError, err.Error())
			return
		case err != nil:
			httputil.Fail(deps.Log, w, http.StatusText(http.StatusInternalServerError), err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, res)
	}
}

func decodeBill(deps app.Deps, w http.ResponseWriter, r *http.Request) (bills.Bill, bool) {
	var b bills.Bill
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
		return bills.Bill{}, false
	}
	if err := httputil.Validator.Struct(&b); err != nil {
		httputil.ValidationError(deps.Log, w, err)
		return bills.Bill{}, false
	}
	return b, true
}

func billID(deps app.Deps, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		// Unknown ids and malformed ids look the same to clients.
		deps.Log.Warn("invalid bill id", "id", chi.URLParam(r, "id"))
		httputil.Message(w, http.StatusNotFound, "Bill not found")
		return uuid.Nil, false
	}
	return id, true
}

func storeError(deps app.Deps, w http.ResponseWriter, message string, err error) {
	if errors.Is(err, bills.ErrNotFound) {
		httputil.Message(w, http.StatusNotFound, "Bill not found")
		return
	}
	deps.Log.Error(message, "err", err)
	httputil.Message(w, http.StatusInternalServerError, message)
}

func createBillHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := decodeBill(deps, w, r)
		if !ok {
			return
		}
		created, err := deps.Bills.Create(r.Context(), b)
		if err != nil {
			storeError(deps, w, "Error creating bill", err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, map[string]any{
			"message": "Bill created successfully",
			"bill":    created,
		})
	}
}

func listBillsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := deps.Bills.List(r.Context())
		if err != nil {
			storeError(deps, w, "Error fetching bills", err)
			return
		}
		out := make([]bills.Summary, 0, len(all))
		for _, b := range all {
			out = append(out, b.Summary())
		}
		httputil.WriteJSON(w, http.StatusOK, out)
	}
}

func getBillHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := billID(deps, w, r)
		if !ok {
			return
		}
		b, err := deps.Bills.Get(r.Context(), id)
		if err != nil {
			storeError(deps, w, "Error fetching bill", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, b)
	}
}

func updateBillHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := billID(deps, w, r)
		if !ok {
			return
		}
		b, ok := decodeBill(deps, w, r)
		if !ok {
			return
		}
		updated, err := deps.Bills.Update(r.Context(), id, b)
		if err != nil {
			storeError(deps, w, "Error updating bill", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, updated)
	}
}

func deleteBillHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := billID(deps, w, r)
		if !ok {
			return
		}
		if err := deps.Bills.Delete(r.Context(), id); err != nil {
			storeError(deps, w, "Error deleting bill", err)
			return
		}
		httputil.Message(w, http.StatusOK, "Bill deleted successfully")
	}
}

func importCodesHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req catalog.Batch
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		body, err := json.Marshal(req)
		if err != nil {
			httputil.Fail(deps.Log, w, "marshal payload failed", err, http.StatusInternalServerError)
			return
		}
		task := queue.Task{ID: uuid.New(), Type: queue.TaskTypeIndex, Payload: body}
		if err := queue.EnqueueWithRetry(r.Context(), deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			httputil.Fail(deps.Log, w, "failed to enqueue import; please retry", err, http.StatusInternalServerError)
			return
		}

		deps.Log.Info("catalog import queued", "task_id", task.ID, "count", len(req.Codes))
		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"task_id": task.ID.String(),
			"count":   len(req.Codes),
		})
	}
}
