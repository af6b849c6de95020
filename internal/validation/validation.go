// Package validation содержит функции валидации входных данных.
package validation

import "github.com/mmeshcher/couponboard/internal/model"

// IsValidUsername проверяет корректность имени пользователя Telegram:
// от 5 до 32 символов, латинские буквы, цифры и подчёркивание,
// первый символ — буква.
func IsValidUsername(username string) bool {
	if len(username) < 5 || len(username) > 32 {
		return false
	}

	for i := 0; i < len(username); i++ {
		ch := username[i]
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
			if i == 0 {
				return false
			}
		case ch == '_':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// IsValidDiscount проверяет согласованность типа выгоды и значения:
// процентная скидка лежит в диапазоне (0, 100], сумма акции положительна.
func IsValidDiscount(discountType model.DiscountType, value *float64) bool {
	if value == nil {
		return false
	}

	switch discountType {
	case model.DiscountTypePercent:
		return *value > 0 && *value <= 100
	case model.DiscountTypeCampaign:
		return *value > 0
	default:
		return false
	}
}
