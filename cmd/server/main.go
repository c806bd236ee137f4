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

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"

	"github.com/iliyamo/mymess-backend/internal/config"
	"github.com/iliyamo/mymess-backend/internal/handler"
	"github.com/iliyamo/mymess-backend/internal/lock"
	"github.com/iliyamo/mymess-backend/internal/middleware"
	"github.com/iliyamo/mymess-backend/internal/queue"
	"github.com/iliyamo/mymess-backend/internal/router"
	"github.com/iliyamo/mymess-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer st.close()

	rdb := config.NewRedisClient(cfg.Redis)
	var locker lock.Locker = lock.NewLocal()
	if rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedis(rdb, "mymess:lock", cfg.LockTTL, 25*time.Millisecond)
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(glog.INFO)

	inboxSink := service.NewInboxSink(st.notifications, st.identity)
	var sink service.Sink = inboxSink
	if cfg.NotifyTransport == config.TransportAMQP {
		pub := queue.NewPublisher(cfg.AMQPURL)
		defer pub.Close()
		sink = pub
		consumer := queue.NewConsumer(cfg.AMQPURL, inboxSink)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("notify-consumer: stopped: %v", err)
			}
		}()
	}
	notifier := service.NewNotifier(sink, cfg.NotifyTimeout, e.Logger)

	slots := service.NewSlotService(st.slots, locker, notifier, service.SlotOptions{
		Capacity:           cfg.SlotCapacity,
		AllowDirectConfirm: cfg.AllowDirectConfirm,
		LockTimeout:        cfg.LockTimeout,
	})
	ledger := service.NewLedgerService(st.payments, st.identity, e.Logger)
	inbox := service.NewInbox(st.notifications)

	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	// claims are needed before the token bucket builds actor keys
	e.Use(middleware.OptionalJWT(cfg.JWTSecret))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e, router.Deps{
		Slots:         handler.NewSlotHandler(slots),
		Payments:      handler.NewPaymentHandler(ledger),
		Notifications: handler.NewNotificationHandler(inbox),
		JWTSecret:     cfg.JWTSecret,
		Redis:         rdb,
		Cache:         config.LoadCacheConfig(),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s store=%s notify=%s capacity=%d)",
		addr, cfg.Env, cfg.Store, cfg.NotifyTransport, cfg.SlotCapacity)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
