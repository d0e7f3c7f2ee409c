package events

import (
	"time"

	"github.com/ahinestrog/gomarketplace/internal/cart"
)

const TypeCartUpdated = "cart.updated"

// Envelope is the JSON body of every published message.
type Envelope struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

type CartUpdated struct {
	Items []cart.LineItem `json:"items"`
	Count int             `json:"count"`
	Total float64         `json:"total"`
}

func newCartUpdated(s cart.State) CartUpdated {
	items := []cart.LineItem(s)
	if items == nil {
		items = []cart.LineItem{}
	}
	return CartUpdated{Items: items, Count: s.Count(), Total: s.Total()}
}
