package migrate

import (
	"context"
	"fulfillment-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto
	CreateChecks           bool // CHECK-constraint для целостности
	CreateIndexes          bool // индексы и UNIQUE
	CreateFKsViaSQL        bool // FK через SQL
	CreateUpdatedAtTrigger bool // триггер обновления updated_at
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

type step struct {
	name string
	sql  string
}

var updatedAtTriggers = []step{
	{"set_updated_at()", `
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;`},
	{"trg_orders_updated", `
DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();`},
	{"trg_products_updated", `
DROP TRIGGER IF EXISTS trg_products_updated ON products;
CREATE TRIGGER trg_products_updated BEFORE UPDATE ON products
FOR EACH ROW EXECUTE FUNCTION set_updated_at();`},
	{"trg_return_requests_updated", `
DROP TRIGGER IF EXISTS trg_return_requests_updated ON return_requests;
CREATE TRIGGER trg_return_requests_updated BEFORE UPDATE ON return_requests
FOR EACH ROW EXECUTE FUNCTION set_updated_at();`},
}

var checks = []step{
	{"chk_variants_quantity_non_negative", `
ALTER TABLE product_variants DROP CONSTRAINT IF EXISTS chk_variants_quantity_non_negative;
ALTER TABLE product_variants ADD CONSTRAINT chk_variants_quantity_non_negative
  CHECK (quantity >= 0 AND reserved_quantity >= 0);`},
	{"chk_orders_status_allowed", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_status_allowed;
ALTER TABLE orders ADD CONSTRAINT chk_orders_status_allowed
  CHECK (status IN ('pending','confirmed','shipped','delivered','cancelled'));`},
	{"chk_orders_payment_status_allowed", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_payment_status_allowed;
ALTER TABLE orders ADD CONSTRAINT chk_orders_payment_status_allowed
  CHECK (payment_status IN ('pending','paid','refunded'));`},
	{"chk_orders_amounts_non_negative", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_amounts_non_negative;
ALTER TABLE orders ADD CONSTRAINT chk_orders_amounts_non_negative
  CHECK (total >= 0 AND tax >= 0 AND shipping_cost >= 0);`},
	{"chk_order_items_quantity_gt_zero", `
ALTER TABLE order_items DROP CONSTRAINT IF EXISTS chk_order_items_quantity_gt_zero;
ALTER TABLE order_items ADD CONSTRAINT chk_order_items_quantity_gt_zero
  CHECK (selected_quantity > 0 AND price >= 0);`},
	{"chk_return_requests_status_allowed", `
ALTER TABLE return_requests DROP CONSTRAINT IF EXISTS chk_return_requests_status_allowed;
ALTER TABLE return_requests ADD CONSTRAINT chk_return_requests_status_allowed
  CHECK (status IN ('pending','approved','rejected','refunded'));`},
	{"chk_return_requests_refund_percentage", `
ALTER TABLE return_requests DROP CONSTRAINT IF EXISTS chk_return_requests_refund_percentage;
ALTER TABLE return_requests ADD CONSTRAINT chk_return_requests_refund_percentage
  CHECK (refund_percentage >= 0 AND refund_percentage <= 100 AND refund_amount >= 0);`},
	{"chk_return_items_quantity_gt_zero", `
ALTER TABLE return_items DROP CONSTRAINT IF EXISTS chk_return_items_quantity_gt_zero;
ALTER TABLE return_items ADD CONSTRAINT chk_return_items_quantity_gt_zero
  CHECK (return_quantity > 0);`},
}

var indexes = []step{
	// идемпотентность вебхука держится на этом индексе
	{"ux_orders_session_id", `CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_session_id ON orders (session_id);`},
	{"ux_variants_product_size_color", `
CREATE UNIQUE INDEX IF NOT EXISTS ux_variants_product_size_color
ON product_variants (product_id, size, color);`},
	{"ix_variants_reserved", `
CREATE INDEX IF NOT EXISTS ix_variants_reserved
ON product_variants (reserved_until) WHERE reserved_quantity > 0 OR reserved_until IS NOT NULL;`},
	{"ix_orders_user_created", `CREATE INDEX IF NOT EXISTS ix_orders_user_created ON orders (user_id, created_at DESC);`},
	{"ix_return_requests_order_status", `
CREATE INDEX IF NOT EXISTS ix_return_requests_order_status ON return_requests (order_id, status);`},
}

var foreignKeys = []step{
	{"fk_order_items_order", `
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_order,
  ADD CONSTRAINT fk_order_items_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;`},
	{"fk_variants_product", `
ALTER TABLE product_variants
  DROP CONSTRAINT IF EXISTS fk_variants_product,
  ADD CONSTRAINT fk_variants_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE;`},
	{"fk_return_requests_order", `
ALTER TABLE return_requests
  DROP CONSTRAINT IF EXISTS fk_return_requests_order,
  ADD CONSTRAINT fk_return_requests_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE RESTRICT;`},
	{"fk_return_items_request", `
ALTER TABLE return_items
  DROP CONSTRAINT IF EXISTS fk_return_items_request,
  ADD CONSTRAINT fk_return_items_request
    FOREIGN KEY (return_request_id) REFERENCES return_requests(id) ON DELETE CASCADE;`},
}

func runSteps(ctx context.Context, db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := db.WithContext(ctx).Exec(s.sql).Error; err != nil {
			log.Error("Не удалось выполнить шаг миграции", zap.String("step", s.name), zap.Error(err))
			return err
		}
	}
	return nil
}

func MigrateFulfillmentDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы данных")

	if opt.CreateExtensions {
		if err := db.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("Не удалось включить расширение pgcrypto", zap.Error(err))
			return err
		}
	}

	log.Info("Создание таблиц")
	if err := db.WithContext(ctx).AutoMigrate(
		&models.Product{}, &models.Variant{},
		&models.Order{}, &models.OrderItem{},
		&models.ReturnRequest{}, &models.ReturnItem{},
		&models.PaymentEvent{},
	); err != nil {
		log.Error("Не удалось создать таблицы", zap.Error(err))
		return err
	}

	if opt.CreateUpdatedAtTrigger {
		log.Info("Создание триггеров updated_at")
		if err := runSteps(ctx, db, log, updatedAtTriggers); err != nil {
			return err
		}
	}

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")
		if err := runSteps(ctx, db, log, checks); err != nil {
			return err
		}
	}

	if opt.CreateIndexes {
		log.Info("Создание индексов")
		if err := runSteps(ctx, db, log, indexes); err != nil {
			return err
		}
	}

	if opt.CreateFKsViaSQL {
		log.Info("Создание внешних ключей")
		if err := runSteps(ctx, db, log, foreignKeys); err != nil {
			return err
		}
	}

	log.Info("Миграция базы данных успешно завершена")
	return nil
}
