package market

import (
	"fmt"
	"strings"
)

// Direction is a trade side. The zero value means "no signal".
type Direction string

const (
	None Direction = ""
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// Valid reports whether d is Buy or Sell.
func (d Direction) Valid() bool { return d == Buy || d == Sell }

// Opposite returns the other side; None stays None.
func (d Direction) Opposite() Direction {
	switch d {
	case Buy:
		return Sell
	case Sell:
		return Buy
	}
	return None
}

// Sign is +1 for Buy, -1 for Sell and 0 otherwise.
func (d Direction) Sign() float64 {
	switch d {
	case Buy:
		return 1
	case Sell:
		return -1
	}
	return 0
}

func (d Direction) String() string {
	if d == None {
		return "none"
	}
	return string(d)
}

// ParseDirection accepts "buy"/"long" and "sell"/"short", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long":
		return Buy, nil
	case "sell", "short":
		return Sell, nil
	case "", "none":
		return None, nil
	}
	return None, fmt.Errorf("unknown direction %q", s)
}
