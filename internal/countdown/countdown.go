// Package countdown вычисляет оставшееся время действия купона
// и раздаёт общий секундный тик всем подписчикам.
package countdown

import "time"

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// State описывает оставшееся время до истечения срока действия.
// Переход в Expired односторонний: истёкший купон снова активным не становится.
type State struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Expired bool `json:"expired"`
}

// Remaining возвращает покомпонентный остаток времени до until.
// Отсутствие срока действия — вырожденное активное состояние: все
// компоненты нулевые, купон не истекает никогда.
func Remaining(until *time.Time, now time.Time) State {
	if until == nil {
		return State{}
	}

	diff := until.Sub(now)
	if diff <= 0 {
		return State{Expired: true}
	}

	total := int64(diff / time.Second)

	return State{
		Days:    int(total / secondsPerDay),
		Hours:   int(total % secondsPerDay / secondsPerHour),
		Minutes: int(total % secondsPerHour / secondsPerMinute),
		Seconds: int(total % secondsPerMinute),
	}
}

// Active сообщает, должен ли купон с указанным сроком действия показываться.
// Истёкшие купоны скрываются целиком, а не помечаются.
func Active(until *time.Time, now time.Time) bool {
	return !Remaining(until, now).Expired
}
