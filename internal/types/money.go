// README: Common value objects (ids, coordinates, money) shared across modules.
package types

type ID string

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Money amounts are whole currency units; the app never deals in fractions of a rupee.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Add keeps m's currency; an unset currency takes o's.
func (m Money) Add(o Money) Money {
	cur := m.Currency
	if cur == "" {
		cur = o.Currency
	}
	return Money{Amount: m.Amount + o.Amount, Currency: cur}
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}
