package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/hookrelay/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_endpoints",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.EndpointModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_endpoints_active ON endpoints (active)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.EndpointModel{})
			},
		},
		{
			ID: "000002_create_incoming_webhooks",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.IncomingWebhookModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_incoming_webhooks_endpoint_created ON incoming_webhooks (endpoint_id, created_at)`,
					`CREATE INDEX IF NOT EXISTS idx_incoming_webhooks_status ON incoming_webhooks (status)`,
					`CREATE INDEX IF NOT EXISTS idx_incoming_webhooks_retry ON incoming_webhooks (next_retry_at) WHERE status = 'RECEIVED'`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.IncomingWebhookModel{})
			},
		},
		{
			ID: "000003_create_deliveries",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DeliveryModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_deliveries_webhook_id ON deliveries (webhook_id) WHERE webhook_id IS NOT NULL`,
					`CREATE INDEX IF NOT EXISTS idx_deliveries_status_created ON deliveries (status, created_at)`,
					`CREATE INDEX IF NOT EXISTS idx_deliveries_retry ON deliveries (next_attempt_at) WHERE status = 'PENDING'`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DeliveryModel{})
			},
		},
		{
			ID: "000004_create_delivery_attempts",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DeliveryAttemptModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_delivery_attempts_delivery_id ON delivery_attempts (delivery_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DeliveryAttemptModel{})
			},
		},
		{
			ID: "000005_create_subscriptions",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.SubscriptionModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_subscriptions_active ON subscriptions (active)`,
					`CREATE INDEX IF NOT EXISTS idx_subscriptions_events ON subscriptions USING GIN (events)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.SubscriptionModel{})
			},
		},
	})

	return m.Migrate()
}
