package infra

import (
	"sync"

	"example.com/shop/entity"
)

type MemoryRepository struct {
	mu     sync.Mutex
	orders map[string]*entity.Order
}

func (r *MemoryRepository) Save(o *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.orders == nil {
		r.orders = map[string]*entity.Order{}
	}
	r.orders[o.ID()] = o
	return nil
}
