package node

import "errors"

var ErrEmptyPool = errors.New("node pool requires at least one node")

// Pool is an ordered, fixed set of workers.
type Pool struct {
	clients []Client
}

func NewPool(clients []Client) (*Pool, error) {
	if len(clients) == 0 {
		return nil, ErrEmptyPool
	}
	return &Pool{clients: append([]Client(nil), clients...)}, nil
}

// Get maps any raw router value onto a node, wrapping around the pool size.
func (p *Pool) Get(idx uint64) Client {
	return p.clients[idx%uint64(len(p.clients))]
}

func (p *Pool) Len() int {
	return len(p.clients)
}

func (p *Pool) All() []Client {
	return append([]Client(nil), p.clients...)
}
