package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"cashier-backend/addons"
	"cashier-backend/billing"
	"cashier-backend/config"
	"cashier-backend/conn"
	"cashier-backend/email"
	"cashier-backend/events"
	"cashier-backend/migrations"
	"cashier-backend/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[BOOT] config: %v", err)
	}

	db, err := conn.NewMySQL(cfg)
	if err != nil {
		log.Fatalf("[BOOT] mysql: %v", err)
	}
	migrations.Init(db)
	if err := migrations.Migrate(); err != nil {
		log.Fatalf("[BOOT] migrate: %v", err)
	}

	repo := billing.NewRepository(db)
	provider := billing.NewStripeProvider(cfg.StripeSecretKey)

	notifier := email.NewNotifier(cfg)
	bus := events.NewBus()
	bus.Subscribe(func(evt events.Event) error {
		if evt.Type != events.SubscriptionCancelled {
			return nil
		}
		account, ok := evt.Account.(*billing.BillableAccount)
		if !ok || account == nil {
			return nil
		}
		return notifier.NotifyCancellation(account.Name, account.Email, evt.AccountKind)
	})

	dispatcher := tasks.NewDispatcher(4, 256)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = dispatcher.Shutdown(ctx)
	}()

	// Add-on plans the ops tooling may cancel/resume. Hooks for these plans
	// are registered here when a plan needs one.
	catalog := billing.NewAddonCatalog()
	for _, id := range cfg.AddonPlans {
		catalog.Register(billing.AddonPlan{ID: id, Name: id})
	}

	reconciler := billing.NewReconciler(repo, provider)
	lifecycle := billing.NewLifecycle(repo, provider, bus, dispatcher, addons.NewLocal(repo), catalog, notifier, billing.AccountKind(cfg.AccountKind))

	r := gin.Default()
	billing.NewHandler(reconciler, lifecycle).RegisterRoutes(r)

	log.Printf("[BOOT] listening on %s (%s billing)", cfg.HTTPAddr, cfg.AccountKind)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("[BOOT] http: %v", err)
	}
}
