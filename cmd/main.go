package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/commune-hq/realtime/config"
	"github.com/commune-hq/realtime/internal/presence"
	"github.com/commune-hq/realtime/internal/queue"
	chat_repo "github.com/commune-hq/realtime/internal/repo/chat"
	livechat_repo "github.com/commune-hq/realtime/internal/repo/livechat"
	user_repo "github.com/commune-hq/realtime/internal/repo/user"
	"github.com/commune-hq/realtime/internal/routers"
	chat_service "github.com/commune-hq/realtime/internal/use-case/chat-case"
	livechat_service "github.com/commune-hq/realtime/internal/use-case/livechat-case"
	"github.com/commune-hq/realtime/internal/websocket"
	"github.com/commune-hq/realtime/internal/worker"
	worker_handler "github.com/commune-hq/realtime/internal/worker/worker-handler"
	"github.com/commune-hq/realtime/state"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// initialize the application
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appState, err := state.InitAppState(ctx, stop)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application state")
	}
	defer appState.Close()

	registry := presence.NewRegistry(appState.Redis)

	hub := websocket.NewHub()
	defer hub.Close()
	log.Info().Msg("Websocket hub initialized")

	users := user_repo.NewUserRepo(appState)
	chats := chat_repo.NewChatRepo(appState)
	liveChats := livechat_repo.NewLiveChatRepo(appState)
	producer := queue.NewProducer(appState.Redis)

	chatService := chat_service.NewChatService(chats, hub, registry, producer)
	liveChatService := livechat_service.NewLiveChatService(liveChats, hub, producer)

	eventRouter := websocket.NewEventRouter(hub, chatService, liveChatService, registry)
	authFunc := websocket.JWTWebSocketAuth(appState.JwtSecret.Public, appState.Redis, users)
	wsHandler := websocket.NewWebSocketHandler(hub, eventRouter, registry, users, authFunc)
	log.Info().Msg("Websocket handler initialized")

	r := routers.NewRouter(routers.Deps{
		State:     appState,
		Hub:       hub,
		Presence:  registry,
		WSHandler: wsHandler,
		Chat:      chatService,
		LiveChat:  liveChatService,
	})

	workerPool := worker.NewWorkerPool(appState.Redis, 5, worker_handler.NewWorkerHandler(appState.Redis, users, liveChats))
	workerPool.Start(ctx)
	go workerPool.StartDLQWorker(ctx)

	server := &http.Server{
		Addr:         config.Conf.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// serve the application
	go func() {
		log.Info().Msgf("Starting server on http://localhost%s", config.Conf.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(fmt.Sprintf("ListenAndServe failed: %v", err))
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown initiated...")
	// gracefully shutdown the application
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Graceful shutdown failed: %v\n", err)
	} else {
		fmt.Println("Server exited gracefully.")
	}
	workerPool.Wait()
}
