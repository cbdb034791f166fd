package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/abaye123/yemot-router2/internal/config"
	"github.com/abaye123/yemot-router2/internal/handler"
	"github.com/abaye123/yemot-router2/pkg/callstore"
	"github.com/abaye123/yemot-router2/pkg/yemot"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store := newStore(cfg.Store)

	yemotRouter := yemot.NewRouter(yemot.Options{
		Timeout:  cfg.Yemot.ReadTimeout,
		PrintLog: cfg.Yemot.PrintLog,
		Store:    store,
		UncaughtErrorHandler: func(err error, call *yemot.Call) error {
			log.Printf("uncaught error in call %s from %s: %v", call.CallID, call.Phone, err)
			// Play a nice error message to the caller before leaving.
			return call.IDListMessage([]yemot.Msg{
				{Kind: yemot.MsgText, Data: "an error occurred, please try again later"},
			}, nil)
		},
	})

	registerFlows(yemotRouter, store)

	router := handler.NewRouter(yemotRouter, cfg.Monitor.Enabled)

	startServer(ctx, cfg.Server, router)
}

// registerFlows sets up the demo call flows.
func registerFlows(router *yemot.Router, store callstore.Store) {
	router.All("/", func(call *yemot.Call) error {
		// Nothing moves forward until the caller types 10.
		if _, err := call.Read([]yemot.Msg{
			{Kind: yemot.MsgText, Data: "hi, please type 10"},
		}, yemot.ModeTap, &yemot.ReadOptions{
			Tap: yemot.TapOptions{
				MaxDigits:     2,
				MinDigits:     2,
				DigitsAllowed: []string{"10"},
			},
		}); err != nil {
			return err
		}

		// Tag the call so later flows can recognize it.
		token := uuid.NewString()
		if err := store.Set(context.Background(), call.CallID, "token", token); err != nil {
			log.Printf("failed to store call token: %v", err)
		}

		name, err := call.Read([]yemot.Msg{
			{Kind: yemot.MsgText, Data: "hello, please type your full name"},
		}, yemot.ModeTap, &yemot.ReadOptions{
			Tap: yemot.TapOptions{TypingPlaybackMode: "HebrewKeyboard"},
		})
		if err != nil {
			return err
		}

		street, err := call.Read([]yemot.Msg{
			{Kind: yemot.MsgText, Data: "hello " + name, RemoveInvalidChars: true},
			{Kind: yemot.MsgText, Data: "please record the street you live on"},
		}, yemot.ModeRecord, nil)
		if err != nil {
			return err
		}
		log.Printf("call %s recorded street at %s", call.CallID, street)

		message, err := call.Read([]yemot.Msg{
			{Kind: yemot.MsgText, Data: "please say the message you want to leave"},
		}, yemot.ModeStt, nil)
		if err != nil {
			return err
		}
		log.Printf("call %s left message: %s", call.CallID, message)

		// "Your response was received successfully", then the platform
		// leaves the extension.
		return call.IDListMessage([]yemot.Msg{
			{Kind: yemot.MsgSystemMessage, Data: "M1399"},
		}, nil)
	})
}

func newStore(cfg config.StoreConfig) callstore.Store {
	if cfg.RedisAddr == "" {
		log.Println("using in-memory call store")
		return callstore.NewMemory()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	log.Printf("using redis call store at %s", cfg.RedisAddr)
	return callstore.NewRedis(client, callstore.RedisOptions{
		KeyPrefix: cfg.KeyPrefix,
		TTL:       cfg.TTL,
	})
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("yemot IVR server listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
