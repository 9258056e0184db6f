// Package money переводит суммы из минимальных единиц валюты в десятичное представление для клиентов.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

const defaultExponent int32 = 2

// exponents число знаков после запятой для валют, у которых оно отличается от 2 (ISO 4217).
var exponents = map[string]int32{
	"BHD": 3,
	"CLP": 0,
	"IQD": 3,
	"ISK": 0,
	"JOD": 3,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"LYD": 3,
	"OMR": 3,
	"TND": 3,
	"UGX": 0,
	"VND": 0,
	"XAF": 0,
	"XOF": 0,
}

// Exponent возвращает число знаков после запятой для валюты.
func Exponent(currency string) int32 {
	if exp, ok := exponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return defaultExponent
}

// FromMinor 12345 USD -> 123.45.
func FromMinor(amount int64, currency string) decimal.Decimal {
	return decimal.New(amount, -Exponent(currency))
}

// Format строковое представление суммы с фиксированным числом знаков после запятой.
func Format(amount int64, currency string) string {
	return FromMinor(amount, currency).StringFixed(Exponent(currency))
}
