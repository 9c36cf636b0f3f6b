package service

import (
	"time"

	"fulfillment-service/internal/models"
)

// Переходы состояния варианта. Все изменения остатков проходят только через эти функции.

// Reserve удерживает qty единиц до now+ttl. Просроченный резерв сначала снимается.
func Reserve(v *models.Variant, qty int, ttl time.Duration, now time.Time) error {
	if qty <= 0 {
		return ErrQuantityInvalid
	}
	Heal(v, now)
	if v.Available() < qty {
		return ErrInsufficientStock
	}
	v.ReservedQuantity += qty
	until := now.Add(ttl)
	if v.ReservedUntil == nil || v.ReservedUntil.Before(until) {
		v.ReservedUntil = &until
	}
	return nil
}

// Commit списывает оплаченные единицы. quantity не уходит ниже нуля;
// недостающее количество возвращается как shortfall.
func Commit(v *models.Variant, qty int) (shortfall int, err error) {
	if qty <= 0 {
		return 0, ErrQuantityInvalid
	}
	take := qty
	if v.Quantity < take {
		shortfall = take - v.Quantity
		take = v.Quantity
	}
	v.Quantity -= take

	v.ReservedQuantity -= qty
	if v.ReservedQuantity < 0 {
		v.ReservedQuantity = 0
	}
	if v.ReservedQuantity == 0 {
		v.ReservedUntil = nil
	}
	return shortfall, nil
}

func Release(v *models.Variant) bool {
	if v.ReservedQuantity == 0 && v.ReservedUntil == nil {
		return false
	}
	v.ReservedQuantity = 0
	v.ReservedUntil = nil
	return true
}

type HealResult string

const (
	HealNone     HealResult = ""
	HealExpired  HealResult = "expired"
	HealOrphaned HealResult = "orphaned"
)

// Heal снимает просроченный резерв и чинит «осиротевший» (reserved > 0 без срока).
func Heal(v *models.Variant, now time.Time) HealResult {
	switch {
	case v.ReservedUntil != nil && v.ReservedUntil.Before(now):
		Release(v)
		return HealExpired
	case v.ReservedQuantity > 0 && v.ReservedUntil == nil:
		v.ReservedQuantity = 0
		return HealOrphaned
	}
	return HealNone
}

func SetStock(v *models.Variant, qty int) error {
	if qty < 0 {
		return ErrQuantityInvalid
	}
	v.Quantity = qty
	return nil
}
