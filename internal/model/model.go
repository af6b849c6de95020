// Package model содержит доменные сущности сервиса купонов.
package model

import (
	"time"

	"github.com/google/uuid"
)

// DiscountType описывает тип выгоды купона.
type DiscountType string

const (
	// DiscountTypePercent — скидка в процентах.
	DiscountTypePercent DiscountType = "discount"
	// DiscountTypeCampaign — фиксированная сумма вознаграждения по акции.
	DiscountTypeCampaign DiscountType = "campaign"
)

// Coupon представляет купон со скидочным кодом.
// Активно ровно одно из значений выгоды: процент скидки либо сумма акции,
// в зависимости от DiscountType.
type Coupon struct {
	ID           uuid.UUID    `json:"id"`
	Title        string       `json:"title"`
	Code         string       `json:"code"`
	Discount     *float64     `json:"discount,omitempty"`
	DiscountType DiscountType `json:"discount_type"`
	Description  string       `json:"description,omitempty"`
	ImageURL     string       `json:"image_url,omitempty"`
	WebsiteLink  string       `json:"website_link,omitempty"`
	Category     string       `json:"category,omitempty"`
	Country      string       `json:"country,omitempty"`
	Brand        string       `json:"brand,omitempty"`
	ValidityDate *time.Time   `json:"validity_date,omitempty"`
	MemexPayment bool         `json:"memex_payment"`
	Approved     bool         `json:"approved"`
	UserID       *uuid.UUID   `json:"user_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// User представляет зарегистрированного участника.
type User struct {
	ID               uuid.UUID `json:"id"`
	TelegramUsername string    `json:"telegram_username"`
	PasswordHash     string    `json:"-"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Country          string    `json:"country"`
	MemexPayment     bool      `json:"memex_payment"`
	PaymentMade      bool      `json:"payment_made"`
	PaymentMethod    string    `json:"payment_method"`
	CreatedAt        time.Time `json:"created_at"`
}

// UserPublic — представление пользователя без чувствительных полей.
type UserPublic struct {
	ID               uuid.UUID `json:"id"`
	TelegramUsername string    `json:"telegram_username"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Country          string    `json:"country"`
	MemexPayment     bool      `json:"memex_payment"`
	PaymentMade      bool      `json:"payment_made"`
	PaymentMethod    string    `json:"payment_method"`
}

// ToPublic возвращает представление пользователя для ответов API и сессии.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:               u.ID,
		TelegramUsername: u.TelegramUsername,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Country:          u.Country,
		MemexPayment:     u.MemexPayment,
		PaymentMade:      u.PaymentMade,
		PaymentMethod:    u.PaymentMethod,
	}
}

// Summary содержит счётчики купонов для административной панели.
type Summary struct {
	Total    int64 `json:"total"`
	Approved int64 `json:"approved"`
	Pending  int64 `json:"pending"`
}

// Categories — фиксированный список категорий для форм добавления купонов.
var Categories = []string{
	"Electronics", "Fashion", "Food & Drink", "Travel", "Gaming",
	"Beauty", "Software", "Sports", "Home & Garden", "Other",
}

// Countries — фиксированный список стран для регистрации и фильтров.
var Countries = []string{
	"USA", "Canada", "UK", "Germany", "France", "Turkey", "Australia", "Japan", "China", "India",
	"Brazil", "Mexico", "Italy", "Spain", "Netherlands", "Switzerland", "Sweden", "Norway",
	"Denmark", "Finland", "Russia", "South Africa", "Nigeria", "Egypt", "Saudi Arabia",
	"United Arab Emirates", "Singapore", "South Korea", "Argentina", "Colombia", "Peru", "Chile",
	"Austria", "Belgium", "Ireland", "Portugal", "Greece", "Poland", "Hungary", "Czech Republic",
	"Romania", "Ukraine", "Vietnam", "Thailand", "Indonesia", "Malaysia", "Philippines",
	"New Zealand", "Other",
}
