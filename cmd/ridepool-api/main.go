// README: Entry point; loads config, picks the storage backend, wires services and serves HTTP until signalled.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ridepool/internal/config"
	httptransport "ridepool/internal/http"
	"ridepool/internal/http/handlers"
	"ridepool/internal/infra"
	"ridepool/internal/maps"
	"ridepool/internal/modules/chat"
	"ridepool/internal/modules/profile"
	"ridepool/internal/modules/ride"
	"ridepool/internal/push"
)

type stores struct {
	rides    ride.Store
	profiles profile.Store
	messages chat.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log, err := infra.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.WithError(err).Fatal("init logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("RIDEPOOL_FIREBASE_PROJECT_ID is required")
	}
	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.WithError(err).Fatal("firebase init")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, app)
	if err != nil {
		log.WithError(err).Fatal("firebase auth init")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" && cfg.Store.Backend != config.BackendMemory {
		redisClient, err = infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			log.WithError(err).Fatal("redis init")
		}
		defer redisClient.Close()
	}

	st, closeStores, err := openStores(ctx, cfg, app, redisClient, log)
	if err != nil {
		log.WithError(err).Fatal("storage init")
	}
	defer closeStores()

	chatCleanup := chat.NewCleanup(st.messages, log)
	rideOpts := []ride.Option{
		ride.WithLogger(log),
		ride.WithMaxAttempts(cfg.Booking.MaxAttempts),
		ride.WithLocation(cfg.Schedule.Location),
		ride.WithEvents(chatCleanup),
	}
	var pushSvc *push.Service
	if cfg.Push.Enabled {
		client, err := infra.NewMessaging(ctx, app)
		if err != nil {
			log.WithError(err).Fatal("firebase messaging init")
		}
		pushSvc = push.NewService(client, st.rides, cfg.Push.Timeout, log)
		rideOpts = append(rideOpts, ride.WithEvents(pushSvc))
	}
	rideSvc := ride.NewService(st.rides, rideOpts...)
	profileSvc := profile.NewService(st.profiles, log)
	chatSvc := chat.NewService(rideSvc, st.messages, log)

	var routes handlers.RouteEstimator
	if cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey, redisClient, cfg.Maps.CacheTTL, log)
		if err != nil {
			log.WithError(err).Fatal("maps init")
		}
		routes = routeSvc
	}

	deps := httptransport.RouterDeps{
		Rides:    rideSvc,
		Profiles: profileSvc,
		Chat:     chatSvc,
		Routes:   routes,
		Verifier: verifier,
		Log:      log,
		Done:     ctx.Done(),
	}
	if pushSvc != nil {
		deps.Push = pushSvc
	}
	router := httptransport.NewRouter(deps)

	log.WithFields(logrus.Fields{
		"addr":    cfg.HTTP.Addr,
		"backend": cfg.Store.Backend,
		"tz":      cfg.Schedule.Timezone,
	}).Info("ridepool api starting")
	err = httptransport.NewServer(cfg.HTTP.Addr, router, log).Run(ctx)
	if pushSvc != nil {
		pushSvc.Wait()
	}
	chatCleanup.Wait()
	if err != nil {
		log.WithError(err).Fatal("http server")
	}
}

func openStores(ctx context.Context, cfg config.Config, app *firebase.App, redisClient *redis.Client, log logrus.FieldLogger) (stores, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return stores{}, nil, err
		}
		var notifier ride.Notifier = ride.NewLocalNotifier()
		if redisClient != nil {
			notifier = ride.NewRedisNotifier(redisClient, log)
		} else {
			log.Warn("no redis configured; ride changes are only streamed within this instance")
		}
		return stores{
			rides:    ride.NewPostgresStore(db, notifier, log),
			profiles: profile.NewPostgresStore(db),
			messages: chat.NewPostgresStore(db),
		}, db.Close, nil

	case config.BackendFirestore:
		client, err := infra.NewFirestore(ctx, app)
		if err != nil {
			return stores{}, nil, err
		}
		return stores{
			rides:    ride.NewFirestoreStore(client, log),
			profiles: profile.NewFirestoreStore(client),
			messages: chat.NewFirestoreStore(client),
		}, closeFirestore(client, log), nil

	default:
		log.Warn("using in-memory storage; data is lost on restart")
		return stores{
			rides:    ride.NewMemoryStore(),
			profiles: profile.NewMemoryStore(),
			messages: chat.NewMemoryStore(),
		}, func() {}, nil
	}
}

func closeFirestore(client *firestore.Client, log logrus.FieldLogger) func() {
	return func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("close firestore")
		}
	}
}
