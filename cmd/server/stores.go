package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/iliyamo/mymess-backend/internal/config"
	"github.com/iliyamo/mymess-backend/internal/database"
	"github.com/iliyamo/mymess-backend/internal/model"
	"github.com/iliyamo/mymess-backend/internal/repository"
	"github.com/iliyamo/mymess-backend/internal/repository/memory"
	"github.com/iliyamo/mymess-backend/internal/service"
)

type stores struct {
	slots         service.SlotStore
	payments      service.PaymentStore
	notifications service.NotificationStore
	identity      service.IdentityLookup
	close         func() error
}

// openStores picks MySQL or the in-memory stores according to APP_STORE.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		log.Printf("store: using in-memory stores; data is lost on restart")
		ids := memory.NewIdentityStore()
		if cfg.IdentitySeed != "" {
			if err := seedIdentities(cfg.IdentitySeed, ids); err != nil {
				return nil, err
			}
		}
		return &stores{
			slots:         memory.NewSlotStore(),
			payments:      memory.NewPaymentStore(),
			notifications: memory.NewNotificationStore(),
			identity:      ids,
			close:         func() error { return nil },
		}, nil
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return mysqlStores(db), nil
}

func mysqlStores(db *sql.DB) *stores {
	return &stores{
		slots:         repository.NewSlotRepo(db),
		payments:      repository.NewPaymentRepo(db),
		notifications: repository.NewNotificationRepo(db),
		identity:      repository.NewIdentityRepo(db),
		close:         db.Close,
	}
}

type identitySeed struct {
	Users []struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"users"`
	Messes []struct {
		ID               string `json:"id"`
		Email            string `json:"email"`
		OwnerName        string `json:"ownerName"`
		MessName         string `json:"messName"`
		PricePerMeal     *int   `json:"pricePerMeal"`
		SubscriptionPlan *int   `json:"subscriptionPlan"`
	} `json:"messes"`
}

// seedIdentities loads users and messes for local runs against the memory
// store, where no profile service exists.
func seedIdentities(path string, ids *memory.IdentityStore) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read identity seed: %w", err)
	}
	var seed identitySeed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse identity seed %s: %w", path, err)
	}
	for _, u := range seed.Users {
		ids.PutUser(model.User{Email: u.Email, Name: u.Name})
	}
	for _, m := range seed.Messes {
		ids.PutMess(model.Mess{
			ID:               m.ID,
			Email:            m.Email,
			OwnerName:        m.OwnerName,
			MessName:         m.MessName,
			PricePerMeal:     m.PricePerMeal,
			SubscriptionPlan: m.SubscriptionPlan,
		})
	}
	log.Printf("store: seeded %d users and %d messes from %s", len(seed.Users), len(seed.Messes), path)
	return nil
}
