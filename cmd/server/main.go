package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-guest-access/internal/config"
	"github.com/iliyamo/hotel-guest-access/internal/database"
	"github.com/iliyamo/hotel-guest-access/internal/handler"
	"github.com/iliyamo/hotel-guest-access/internal/queue"
	"github.com/iliyamo/hotel-guest-access/internal/repository"
	"github.com/iliyamo/hotel-guest-access/internal/router"
	"github.com/iliyamo/hotel-guest-access/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("relational db: %v", err)
	}
	authDB, err := database.Open(cfg.AuthDBUser, cfg.AuthDBPass, cfg.AuthDBHost, cfg.AuthDBPort, cfg.AuthDBName)
	if err != nil {
		log.Fatalf("auth store db: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: rate limiting and response cache disabled")
	}

	customers := repository.NewCustomerRepo(db)
	rooms := repository.NewRoomRepo(db)
	reservations := repository.NewReservationRepo(db)
	credentials := repository.NewCredentialRepo(db)
	accessGroups := repository.NewAccessGroupRepo(db)
	radius := repository.NewRadiusRepo(authDB)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	notifier := service.NewQueueNotifier()
	provisioner := service.NewProvisioner(radius, credentials, reservations)
	reconciler := service.NewReconciler(rooms, customers, reservations, provisioner, notifier)

	handlers := router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, users, tokens),
		Customers:    handler.NewCustomerHandler(customers, credentials, provisioner, reconciler, notifier),
		Rooms:        handler.NewRoomHandler(rooms, reservations, reconciler),
		Reservations: handler.NewReservationHandler(reservations, customers, accessGroups, credentials, radius, provisioner, reconciler),
		AccessGroups: handler.NewAccessGroupHandler(accessGroups),
		Credentials:  handler.NewCredentialHandler(credentials, radius),
	}

	go func() {
		if err := queue.StartChangeConsumer(); err != nil {
			log.Printf("change consumer stopped: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reconciler.RunSweeper(ctx, cfg.SweepInterval)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAPI(e, handlers, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
