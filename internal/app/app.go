package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"intelliclass/internal/auth"
	"intelliclass/internal/config"
	"intelliclass/internal/docs"
	"intelliclass/internal/files"
	"intelliclass/internal/httpapi"
	"intelliclass/internal/llm"
	"intelliclass/internal/meeting"
	"intelliclass/internal/ocr"
	"intelliclass/internal/queue"
	"intelliclass/internal/store"
)

type App struct {
	Config   config.Config
	Store    *store.Store
	Queue    *queue.Queue
	LLM      llm.Provider
	OCR      *ocr.Router
	Files    *files.Client
	Docs     *docs.Service
	Meetings *meeting.Service
	Watch    *meeting.Hub
	Handler  *httpapi.Handler
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	signingKey, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, st.DB()); err != nil {
		return nil, err
	}

	q, err := queue.New(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}

	provider := llm.NewFallback(
		llm.NewGemini(cfg.LLM.GeminiKey, cfg.LLM.GeminiModel),
		llm.NewOpenRouter(cfg.LLM.OpenRouterKey, cfg.LLM.OpenRouterModel),
	)

	ocrRouter := ocr.NewRouter(ocr.NewRemoteEngine(cfg.OCR.EngineURL, cfg.OCR.Language))
	fileClient := files.NewClient(cfg.Storage.URL, cfg.Storage.ServiceKey)
	docsSvc := docs.NewService(provider)
	meetingSvc := meeting.NewService(st, q, cfg.Meeting.BaseURL)
	watch := meeting.NewHub(meetingSvc, cfg.Meeting.PollInterval)
	authSvc := auth.NewService(signingKey)

	handler := httpapi.NewHandler(cfg, authSvc, docsSvc, ocrRouter, fileClient, meetingSvc, watch, st)

	return &App{
		Config:   cfg,
		Store:    st,
		Queue:    q,
		LLM:      provider,
		OCR:      ocrRouter,
		Files:    fileClient,
		Docs:     docsSvc,
		Meetings: meetingSvc,
		Watch:    watch,
		Handler:  handler,
	}, nil
}

func (a *App) Close() error {
	var err error
	if a.Watch != nil {
		a.Watch.Close()
	}
	if a.Store != nil {
		err = a.Store.Close()
	}
	if a.Queue != nil {
		_ = a.Queue.Close()
	}
	return err
}

func (a *App) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	a.Handler.RegisterRoutes(mux)
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.Store.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err := a.Queue.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		depth, err := a.Queue.Depth(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ready", "queue_depth": depth})
	})

	srv := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	return srv.ListenAndServe()
}
