package settings

import (
	"sync"

	"github.com/cointhing/cointhing/internal/guard"
)

// Coins is an independently locked copy of the coin list and currency
// slots. Render and fetch loops read from a Coins view so they never wait
// on the Store while it does file I/O. The zero value is an empty view.
type Coins struct {
	mu         sync.Mutex
	coins      []Coin
	currencies Currencies
}

// AssignFrom replaces the view with a copy of store's coins and currencies.
// The store lock is released before the view lock is taken.
func (c *Coins) AssignFrom(store *Store) {
	coins, currencies := store.coinsAndCurrencies()

	defer guard.Acquire(&c.mu).Release()
	c.coins = coins
	c.currencies = currencies
}

// Clear drops all coins. The currency slots are kept.
func (c *Coins) Clear() {
	defer guard.Acquire(&c.mu).Release()
	c.coins = nil
}

// Count returns the number of coins in the view.
func (c *Coins) Count() uint32 {
	defer guard.Acquire(&c.mu).Release()
	return uint32(len(c.coins))
}

// Coin returns the ID of the coin at index. Out-of-range indices read
// index 0; an empty view returns "".
func (c *Coins) Coin(index uint32) string {
	return c.at(index).ID
}

// Name returns the display name of the coin at index, with the same
// bounds rule as Coin.
func (c *Coins) Name(index uint32) string {
	return c.at(index).Name
}

// Symbol returns the ticker symbol of the coin at index, with the same
// bounds rule as Coin.
func (c *Coins) Symbol(index uint32) string {
	return c.at(index).Symbol
}

// At returns the coin at index, with the same bounds rule as Coin.
func (c *Coins) At(index uint32) Coin {
	return c.at(index)
}

func (c *Coins) at(index uint32) Coin {
	defer guard.Acquire(&c.mu).Release()
	if len(c.coins) == 0 {
		return Coin{}
	}
	return c.coins[c.validIndexLocked(index)]
}

func (c *Coins) validIndexLocked(index uint32) uint32 {
	if index >= uint32(len(c.coins)) {
		return 0
	}
	return index
}

// Currency1 returns the primary currency code.
func (c *Coins) Currency1() string {
	defer guard.Acquire(&c.mu).Release()
	return c.currencies[0].Currency
}

// Currency1Symbol returns the primary currency symbol.
func (c *Coins) Currency1Symbol() string {
	defer guard.Acquire(&c.mu).Release()
	return c.currencies[0].Symbol
}

// Currency2 returns the secondary currency code.
func (c *Coins) Currency2() string {
	defer guard.Acquire(&c.mu).Release()
	return c.currencies[1].Currency
}

// Currency2Symbol returns the secondary currency symbol.
func (c *Coins) Currency2Symbol() string {
	defer guard.Acquire(&c.mu).Release()
	return c.currencies[1].Symbol
}
