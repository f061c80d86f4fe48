package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"inscribe-server/chat"
	"inscribe-server/handlers/api/assistant"
	"inscribe-server/handlers/api/canvases"
	"inscribe-server/handlers/api/recognize"
	"inscribe-server/handlers/api/workspaces"
	"inscribe-server/recognition"
	"inscribe-server/stores"
	"inscribe-server/workspace"
)

func setupRouter(mgr *workspace.Manager, recognizer workspace.Recognizer, chatClient assistant.Sender) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Origin", "Host", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api/v2", func(r chi.Router) {
		r.Route("/canvases", func(r chi.Router) {
			r.Get("/", canvases.HandleList(mgr))
			r.Post("/", canvases.HandleCreate(mgr))
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", canvases.HandleDelete(mgr))
				r.Post("/activate", canvases.HandleActivate(mgr))
				r.Put("/name", canvases.HandleRename(mgr))
				r.Post("/strokes", canvases.HandleStroke(mgr))
				r.Post("/text", canvases.HandleText(mgr))
				r.Post("/images", canvases.HandleImage(mgr))
				r.Post("/undo", canvases.HandleUndo(mgr))
				r.Post("/redo", canvases.HandleRedo(mgr))
				r.Post("/reset", canvases.HandleReset(mgr))
				r.Get("/image", canvases.HandleRender(mgr))
			})
		})

		r.Route("/workspace", func(r chi.Router) {
			r.Get("/", workspaces.HandleGet(mgr))
			r.Post("/reset", workspaces.HandleReset(mgr))
			r.Get("/export", workspaces.HandleExport(mgr))
		})

		r.Get("/preferences", workspaces.HandleGetPreferences(mgr))
		r.Put("/preferences", workspaces.HandlePutPreferences(mgr))
		r.Get("/history", workspaces.HandleHistory(mgr))

		r.Post("/recognize", recognize.HandleRecognize(mgr, recognizer))
		r.Post("/chat", assistant.HandleChat(chatClient))
	})

	return r
}

func waitForShutdown(srv *http.Server) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-signalC

	logrus.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Forced shutdown")
	}
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":8900", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	store := stores.GetStore()

	mgr := workspace.New(workspace.DefaultConfig(), store)
	if err := mgr.Load(context.Background()); err != nil {
		logrus.WithError(err).Fatal("Failed to load workspace")
	}

	recognitionURL := os.Getenv("RECOGNITION_URL")
	if recognitionURL == "" {
		recognitionURL = "http://localhost:8901"
	}
	chatURL := os.Getenv("CHAT_URL")
	if chatURL == "" {
		chatURL = recognitionURL
	}

	r := setupRouter(mgr, recognition.NewClient(recognitionURL), chat.NewClient(chatURL))

	srv := &http.Server{Addr: *listenAddress, Handler: r}

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	waitForShutdown(srv)
}
