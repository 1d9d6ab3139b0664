package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/trip-planner/internal/config"
	"github.com/DeafMist/trip-planner/internal/elasticsearch"
	"github.com/DeafMist/trip-planner/internal/logger"
	"github.com/DeafMist/trip-planner/internal/metrics"
	"github.com/DeafMist/trip-planner/internal/models"
	"github.com/DeafMist/trip-planner/internal/processing"
	"github.com/DeafMist/trip-planner/internal/store"
)

const maxRequestBytes = 16 << 10

type planStore interface {
	Create(ctx context.Context, req models.TravelRequest) error
	Get(ctx context.Context, userID, planID string) (*models.PlanRecord, error)
	MarkFailed(ctx context.Context, userID, planID, message string) error
}

type planSearcher interface {
	SearchPlans(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
	Health(ctx context.Context) error
}

type eventWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	mongo, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	if err != nil {
		log.Error("connect mongo", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongo.Close(closeCtx)
	}()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	defer writer.Close()

	srv := &server{
		log:     log,
		cfg:     cfg,
		plans:   mongo.Plans(),
		search:  esClient,
		events:  writer,
		ping:    mongo.Ping,
		metrics: metrics.New(),
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log     *slog.Logger
	cfg     *config.API
	plans   planStore
	search  planSearcher
	events  eventWriter
	ping    func(context.Context) error
	metrics *metrics.Metrics
}

type errorResponse struct {
	Error string `json:"error"`
}

type createPlanRequest struct {
	City     string `json:"city"`
	Request  string `json:"request"`
	FCMToken string `json:"fcm_token,omitempty"`
}

type createPlanResponse struct {
	PlanID string            `json:"plan_id"`
	Status models.PlanStatus `json:"status"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/plans", s.handleSearch)
	r.Route("/users/{userID}/plans", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/{planID}", s.handleGet)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.search.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	if s.ping != nil {
		if err := s.ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreate stores a pending travel request and emits the created event
// that triggers the planner worker.
func (s *server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	var body createPlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	city := processing.CleanText(body.City, 200)
	request := processing.CleanText(body.Request, 2000)
	if userID == "" || city == "" || request == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "city and request are required"})
		return
	}

	req := models.TravelRequest{
		UserID:   userID,
		PlanID:   uuid.NewString(),
		City:     city,
		Request:  request,
		FCMToken: strings.TrimSpace(body.FCMToken),
	}
	log := s.log.With(slog.String("user_id", req.UserID), slog.String("plan_id", req.PlanID))

	if err := s.plans.Create(ctx, req); err != nil {
		log.Error("create plan", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not store request"})
		return
	}

	payload, err := json.Marshal(models.TravelRequestCreated{EventID: uuid.NewString(), Request: req})
	if err == nil {
		err = s.events.WriteMessages(ctx, kafka.Message{Key: []byte(req.PlanID), Value: payload})
	}
	if err != nil {
		log.Error("publish travel request", slog.Any("err", err))
		if mErr := s.plans.MarkFailed(ctx, req.UserID, req.PlanID, "The request could not be queued for planning"); mErr != nil {
			log.Error("mark unqueued plan failed", slog.Any("err", mErr))
		}
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "could not queue request"})
		return
	}

	log.Info("travel request queued", slog.String("city", req.City))
	writeJSON(w, http.StatusAccepted, createPlanResponse{PlanID: req.PlanID, Status: models.StatusPending})
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := s.plans.Get(ctx, chi.URLParam(r, "userID"), chi.URLParam(r, "planID"))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "plan not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.SearchParams{
		Query:  strings.TrimSpace(q.Get("q")),
		City:   strings.TrimSpace(q.Get("city")),
		UserID: strings.TrimSpace(q.Get("user_id")),
		From:   clampInt(q.Get("from"), 0, 10_000),
		Size:   clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Start:  parseTime(q.Get("start")),
		End:    parseTime(q.Get("end")),
	}

	result, err := s.search.SearchPlans(ctx, params)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
