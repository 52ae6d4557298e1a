package port

import "example.com/shop/entity"

type OrderRepository interface {
	Save(o *entity.Order) error
}
