package domain

type ProductID string

// Product is a catalog item. The full payload travels over the signaling
// channel when a seller shares it, so viewers need no catalog round-trip.
type Product struct {
	ID          ProductID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	ImageURL    string    `json:"image_url,omitempty"`
}

// MaxSharedProducts bounds the viewer-local list of shared items.
const MaxSharedProducts = 10

// ShareList keeps the most recently shared products, newest first,
// deduplicated by product id. Re-sharing an item moves it to the front.
// Not safe for concurrent use.
type ShareList struct {
	items []Product
}

func (l *ShareList) Share(p Product) {
	for i, existing := range l.items {
		if existing.ID == p.ID {
			copy(l.items[1:i+1], l.items[:i])
			l.items[0] = p
			return
		}
	}
	l.items = append([]Product{p}, l.items...)
	if len(l.items) > MaxSharedProducts {
		l.items = l.items[:MaxSharedProducts]
	}
}

// Items returns the shared products, newest first.
func (l *ShareList) Items() []Product {
	out := make([]Product, len(l.items))
	copy(out, l.items)
	return out
}

func (l *ShareList) Len() int {
	return len(l.items)
}
