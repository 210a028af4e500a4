package pricing

// Money represents a monetary value stored in minor units (euro cents).
type Money = int64

// ProductKind enumerates every purchasable category.
type ProductKind string

const (
	KindDigital        ProductKind = "digital"
	KindPrintA5        ProductKind = "printA5"
	KindPrintA4        ProductKind = "printA4"
	KindPrintA3        ProductKind = "printA3"
	KindPrintA2        ProductKind = "printA2"
	KindPrintPolaroid3 ProductKind = "printPolaroid3"
	KindPrintPolaroid6 ProductKind = "printPolaroid6"
	KindSessionPack    ProductKind = "sessionPack"
)

// PrintKinds lists the print formats ordered from smallest to largest
// physical size. Delivery fees are required to be non-decreasing along
// this ordering.
var PrintKinds = []ProductKind{
	KindPrintPolaroid3,
	KindPrintPolaroid6,
	KindPrintA5,
	KindPrintA4,
	KindPrintA3,
	KindPrintA2,
}

// Valid reports whether the kind belongs to the closed enumeration.
func (k ProductKind) Valid() bool {
	switch k {
	case KindDigital, KindPrintA5, KindPrintA4, KindPrintA3, KindPrintA2,
		KindPrintPolaroid3, KindPrintPolaroid6, KindSessionPack:
		return true
	}
	return false
}

// IsPrint reports whether the kind is a physical print format.
func (k ProductKind) IsPrint() bool {
	switch k {
	case KindPrintA5, KindPrintA4, KindPrintA3, KindPrintA2,
		KindPrintPolaroid3, KindPrintPolaroid6:
		return true
	}
	return false
}

// DeliveryOption selects between studio pickup and shipped delivery.
type DeliveryOption string

const (
	DeliveryPickup  DeliveryOption = "pickup"
	DeliveryShipped DeliveryOption = "delivery"
)

// Valid reports whether the option is one of the two supported choices.
func (o DeliveryOption) Valid() bool {
	return o == DeliveryPickup || o == DeliveryShipped
}

// TierSchedule holds the three-step descending price ladder for one
// category: first unit, second unit, then the floor held for every
// additional unit.
type TierSchedule [3]Money

// PriceAt returns the price of the (count+1)-th unit under the schedule.
func (t TierSchedule) PriceAt(count int) Money {
	if count >= len(t) {
		count = len(t) - 1
	}
	return t[count]
}

// Catalog bundles the studio's published price lists. The gallery flow
// sells through the tier schedules; the boutique product cards use a
// separate flat list. The two lists are configured independently and
// are never reconciled against each other.
type Catalog struct {
	Tiers    map[ProductKind]TierSchedule
	Boutique map[ProductKind]Money
	Pack     Money
	Shipping map[ProductKind]Money
}

// DefaultCatalog returns the studio price list in euro cents.
func DefaultCatalog() Catalog {
	return Catalog{
		Tiers: map[ProductKind]TierSchedule{
			KindDigital:        {1000, 700, 500},
			KindPrintPolaroid3: {1500, 1200, 1000},
			KindPrintPolaroid6: {2500, 2000, 1700},
			KindPrintA5:        {1200, 900, 700},
			KindPrintA4:        {1500, 1200, 1000},
			KindPrintA3:        {2500, 2000, 1700},
			KindPrintA2:        {3500, 3000, 2500},
		},
		Boutique: map[ProductKind]Money{
			KindDigital:        1500,
			KindPrintPolaroid3: 1800,
			KindPrintPolaroid6: 2900,
			KindPrintA5:        1500,
			KindPrintA4:        1900,
			KindPrintA3:        2900,
			KindPrintA2:        3900,
		},
		Pack: 4000,
		Shipping: map[ProductKind]Money{
			KindPrintPolaroid3: 290,
			KindPrintPolaroid6: 290,
			KindPrintA5:        390,
			KindPrintA4:        490,
			KindPrintA3:        690,
			KindPrintA2:        890,
		},
	}
}
