package entity

import "errors"

// ErrEmptyID is returned for orders without an identifier.
var ErrEmptyID = errors.New("empty order id")

type Order struct {
	id    string
	Total int
}

func NewOrder(id string) (*Order, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	return &Order{id: id}, nil
}

func (o *Order) ID() string { return o.id }

func (o Order) IsEmpty() bool { return o.Total == 0 }
