package domain

import "time"

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"id"`
	UserID    string     `bson:"user_id" json:"user_id"`
	Items     []CartItem `bson:"items" json:"items"`
	Version   int64      `bson:"version" json:"version"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// MaxItemQuantity bounds the quantity of a single cart item.
const MaxItemQuantity = 99

type CartItem struct {
	ProductID string    `bson:"product_id" json:"product_id"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

// IndexOf returns the position of the item referencing productID or -1.
func (c *Cart) IndexOf(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Merge adds item to the cart. A product already present gets its quantity
// increased, so the cart never holds two items for the same product.
func (c *Cart) Merge(item CartItem) {
	if i := c.IndexOf(item.ProductID); i >= 0 {
		c.Items[i].Quantity += item.Quantity
		return
	}
	c.Items = append(c.Items, item)
}

// Remove drops the item referencing productID. Missing items are ignored.
func (c *Cart) Remove(productID string) {
	items := make([]CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	c.Items = items
}

// CartOutcome tells which branch an upserting operation took.
type CartOutcome int

const (
	CartCreated CartOutcome = iota + 1
	CartUpdated
)

func (o CartOutcome) String() string {
	switch o {
	case CartCreated:
		return "created"
	case CartUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// CartView is a cart with the owner and every item's product resolved.
type CartView struct {
	ID        string         `json:"id"`
	User      *UserSummary   `json:"user"`
	Items     []CartItemView `json:"items"`
	Version   int64          `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CartItemView carries a nil Product when the product no longer exists.
type CartItemView struct {
	ProductID string    `json:"product_id"`
	Product   *Product  `json:"product"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}
