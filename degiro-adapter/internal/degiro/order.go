package degiro

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Order is the outbound body of check and confirm order calls.
type Order struct {
	Action    OrderAction `validate:"required,oneof=BUY SELL"`
	Type      OrderType
	ProductID string `validate:"required"`
	Size      decimal.Decimal
	Price     decimal.Decimal
	TimeType  OrderTimeType
	StopPrice optional.Option[decimal.Decimal]
}

// Validate rejects orders the broker would refuse before any request is built.
func (o Order) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: order: %v", ErrInvalidRequest, err)
	}
	if !o.Size.IsPositive() {
		return fmt.Errorf("%w: order size must be positive, got %s", ErrInvalidRequest, o.Size)
	}
	if o.Price.IsNegative() {
		return fmt.Errorf("%w: order price must not be negative, got %s", ErrInvalidRequest, o.Price)
	}
	switch o.Type.Kind() {
	case OrderTypeStopLimit, OrderTypeStopLoss:
		stop, err := o.StopPrice.Take()
		if err != nil {
			return fmt.Errorf("%w: %s order needs a stop price", ErrInvalidRequest, o.Type)
		}
		if !stop.IsPositive() {
			return fmt.Errorf("%w: stop price must be positive, got %s", ErrInvalidRequest, stop)
		}
	}
	return nil
}

type orderWire struct {
	BuySell   OrderAction   `json:"buySell"`
	OrderType OrderType     `json:"orderType"`
	ProductID string        `json:"productId"`
	Size      json.Number   `json:"size"`
	Price     json.Number   `json:"price"`
	TimeType  OrderTimeType `json:"timeType"`
	StopPrice json.Number   `json:"stopPrice,omitempty"`
}

// MarshalJSON writes decimals as bare JSON numbers.
func (o Order) MarshalJSON() ([]byte, error) {
	w := orderWire{
		BuySell:   o.Action,
		OrderType: o.Type,
		ProductID: o.ProductID,
		Size:      json.Number(o.Size.String()),
		Price:     json.Number(o.Price.String()),
		TimeType:  o.TimeType,
	}
	if stop, err := o.StopPrice.Take(); err == nil {
		w.StopPrice = json.Number(stop.String())
	}
	return json.Marshal(w)
}
