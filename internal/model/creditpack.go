package model

// CreditPack is a purchasable credit bundle. Checkout itself happens at the
// hosted payment provider; this service only fulfills completed purchases by
// crediting the ledger.
type CreditPack struct {
	ID      string
	Credits int64
}

// CreditPacks is the fulfillment catalog, keyed by the pack ID the checkout
// provider echoes back in its completion webhook.
var CreditPacks = map[string]CreditPack{
	"pack_starter":  {ID: "pack_starter", Credits: 25},
	"pack_standard": {ID: "pack_standard", Credits: 60},
	"pack_studio":   {ID: "pack_studio", Credits: 150},
}

// PackByID looks up a credit pack by ID.
func PackByID(id string) (CreditPack, bool) {
	p, ok := CreditPacks[id]
	return p, ok
}
