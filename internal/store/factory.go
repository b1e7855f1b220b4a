package store

import "github.com/pawel-modine/AsanaBot/core/db"

type Stores struct {
	q db.Querier
}

func NewStores(q db.Querier) *Stores {
	return &Stores{q: q}
}

func (s *Stores) Deliveries() DeliveryStore {
	return newDeliveryStore(s.q)
}
