package degiro

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// OrderType is the broker's order type code. The broker adds codes without
// notice, so any integer decodes and the original code is written back as-is.
type OrderType int

const (
	OrderTypeLimit     OrderType = 0
	OrderTypeStopLimit OrderType = 1
	OrderTypeMarket    OrderType = 2
	OrderTypeStopLoss  OrderType = 3

	// OrderTypeUnknown is what Kind reports for codes outside the table above.
	OrderTypeUnknown OrderType = -1
)

// Kind maps the code onto the known table, or OrderTypeUnknown.
func (o OrderType) Kind() OrderType {
	switch o {
	case OrderTypeLimit, OrderTypeStopLimit, OrderTypeMarket, OrderTypeStopLoss:
		return o
	default:
		return OrderTypeUnknown
	}
}

// Code is the wire value.
func (o OrderType) Code() int { return int(o) }

func (o OrderType) String() string {
	switch o.Kind() {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeStopLimit:
		return "STOP_LIMIT"
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeStopLoss:
		return "STOP_LOSS"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(o))
	}
}

func (o *OrderType) UnmarshalJSON(data []byte) error {
	code, err := decodeCode(data)
	if err != nil {
		return fmt.Errorf("order type: %w", err)
	}
	*o = OrderType(code)
	return nil
}

func (o OrderType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(o))), nil
}

// OrderTimeType is the time-in-force code. Same open-table rules as OrderType.
type OrderTimeType int

const (
	OrderTimeTypeGoodTillDay      OrderTimeType = 1
	OrderTimeTypeGoodTillCanceled OrderTimeType = 3

	OrderTimeTypeUnknown OrderTimeType = -1
)

func (o OrderTimeType) Kind() OrderTimeType {
	switch o {
	case OrderTimeTypeGoodTillDay, OrderTimeTypeGoodTillCanceled:
		return o
	default:
		return OrderTimeTypeUnknown
	}
}

func (o OrderTimeType) Code() int { return int(o) }

func (o OrderTimeType) String() string {
	switch o.Kind() {
	case OrderTimeTypeGoodTillDay:
		return "GOOD_TILL_DAY"
	case OrderTimeTypeGoodTillCanceled:
		return "GOOD_TILL_CANCELED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(o))
	}
}

func (o *OrderTimeType) UnmarshalJSON(data []byte) error {
	code, err := decodeCode(data)
	if err != nil {
		return fmt.Errorf("order time type: %w", err)
	}
	*o = OrderTimeType(code)
	return nil
}

func (o OrderTimeType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(o))), nil
}

// decodeCode accepts an integer or a quoted integer.
func decodeCode(data []byte) (int, error) {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return 0, err
	}
	code, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, fmt.Errorf("non-integer code %s", data)
	}
	return code, nil
}

// OrderAction is the side of an order. Report payloads may carry sides this
// client does not know; those decode to ActionUnknown.
type OrderAction string

const (
	ActionBuy     OrderAction = "BUY"
	ActionSell    OrderAction = "SELL"
	ActionUnknown OrderAction = "UNKNOWN"
)

// UnmarshalJSON accepts BUY/SELL and the short B/S used in report payloads.
func (a *OrderAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("order action: %w", err)
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "B", "BUY":
		*a = ActionBuy
	case "S", "SELL":
		*a = ActionSell
	default:
		*a = ActionUnknown
	}
	return nil
}
