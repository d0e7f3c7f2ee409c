package cart

// LineItem is one product in the cart. The JSON names match the snapshot
// format written by the mobile app.
type LineItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// State is the ordered cart contents. Ids are unique and every quantity is
// at least 1. Entries touched by Increment or Decrement sit at the tail.
type State []LineItem

func (s State) index(id string) int {
	for i, it := range s {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	out := make(State, len(s))
	copy(out, s)
	return out
}

// without returns a copy of s minus the entry at i.
func (s State) without(i int) State {
	out := make(State, 0, len(s))
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

// Total is the sum of price times quantity.
func (s State) Total() float64 {
	var t float64
	for _, it := range s {
		t += it.Price * float64(it.Quantity)
	}
	return t
}

// Count is the number of units across all entries.
func (s State) Count() int {
	var n int
	for _, it := range s {
		n += it.Quantity
	}
	return n
}

// normalize drops entries a well-formed snapshot could not contain:
// repeated ids (first wins) and quantities below 1.
func normalize(s State) (State, int) {
	out := make(State, 0, len(s))
	seen := make(map[string]struct{}, len(s))
	dropped := 0
	for _, it := range s {
		if _, dup := seen[it.ID]; dup || it.Quantity < 1 {
			dropped++
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out, dropped
}
