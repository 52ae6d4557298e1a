package placeorder

import (
	"example.com/shop/entity"
	"example.com/shop/usecase/placeorder/request"
	"example.com/shop/usecase/port"
)

type Interactor struct {
	repo port.OrderRepository
}

func New(repo port.OrderRepository) *Interactor {
	return &Interactor{repo: repo}
}

func (i *Interactor) Execute(req request.PlaceOrderRequest) error {
	o, err := entity.NewOrder(req.ID)
	if err != nil {
		return err
	}
	return i.repo.Save(o)
}
