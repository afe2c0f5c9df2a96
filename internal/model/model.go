// Package model содержит доменные сущности сервиса маркетплейса.
package model

import "time"

// UserType описывает роль пользователя.
type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeBusiness UserType = "business"
)

// IsValid сообщает, является ли значение одной из допустимых ролей.
func (t UserType) IsValid() bool {
	return t == UserTypeCustomer || t == UserTypeBusiness
}

// User представляет зарегистрированного пользователя маркетплейса.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash []byte
	Type         UserType
	CreatedAt    time.Time
}

// Profile содержит дополнительные данные профиля пользователя.
type Profile struct {
	UserID       int64
	Username     string
	FirstName    string
	LastName     string
	Email        string
	Type         UserType
	Location     string
	Tel          string
	Description  string
	WorkingHours string
	CreatedAt    time.Time
}

// TierType описывает вариант тарифа предложения.
type TierType string

const (
	TierTypeBasic    TierType = "basic"
	TierTypeStandard TierType = "standard"
	TierTypePremium  TierType = "premium"
)

// IsValid сообщает, является ли значение одним из допустимых тарифов.
func (t TierType) IsValid() bool {
	return t == TierTypeBasic || t == TierTypeStandard || t == TierTypePremium
}

// OfferTier описывает один тариф предложения: цену, срок и набор опций.
type OfferTier struct {
	ID           int64
	OfferID      int64
	Type         TierType
	Title        string
	Revisions    int
	DeliveryDays int
	PriceCents   int64
	Features     []string
}

// Offer представляет предложение бизнес-пользователя с тремя тарифами.
type Offer struct {
	ID          int64
	CreatorID   int64
	Title       string
	Description string
	Tiers       []OfferTier
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MinPriceCents возвращает минимальную цену среди тарифов предложения.
func (o *Offer) MinPriceCents() int64 {
	var minPrice int64
	for i, tier := range o.Tiers {
		if i == 0 || tier.PriceCents < minPrice {
			minPrice = tier.PriceCents
		}
	}
	return minPrice
}

// MinDeliveryDays возвращает минимальный срок выполнения среди тарифов.
func (o *Offer) MinDeliveryDays() int {
	var minDays int
	for i, tier := range o.Tiers {
		if i == 0 || tier.DeliveryDays < minDays {
			minDays = tier.DeliveryDays
		}
	}
	return minDays
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValid сообщает, является ли значение одним из допустимых статусов.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Order представляет заказ клиента на конкретный тариф предложения.
type Order struct {
	ID           int64
	CustomerID   int64
	BusinessID   int64
	TierID       int64
	TierTitle    string
	TierType     TierType
	Revisions    int
	DeliveryDays int
	PriceCents   int64
	Features     []string
	Status       OrderStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Review представляет отзыв клиента о бизнес-пользователе.
type Review struct {
	ID          int64
	BusinessID  int64
	ReviewerID  int64
	Rating      int
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Statistics содержит агрегированные публичные показатели сервиса.
type Statistics struct {
	ReviewCount          int64
	AverageRating        float64
	BusinessProfileCount int64
	OfferCount           int64
}
