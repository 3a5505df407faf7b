package nativecall

import "github.com/sliverarmory/nativecall/dynlib"

// Producer is a native function declared as uint64_t f(void).
type Producer struct {
	library *Library
	name    string
	fn      func() uint64
}

// Consumer is a native function declared as void f(uint64_t).
type Consumer struct {
	library *Library
	name    string
	fn      func(uint64)
}

// ResolveReturningU64 binds the named export as a Producer.
func (library *Library) ResolveReturningU64(name string) (*Producer, error) {
	addr, err := library.symbol(name)
	if err != nil {
		return nil, err
	}

	producer := &Producer{library: library, name: name}
	dynlib.Bind(&producer.fn, addr)
	return producer, nil
}

// ResolveTakingU64 binds the named export as a Consumer.
func (library *Library) ResolveTakingU64(name string) (*Consumer, error) {
	addr, err := library.symbol(name)
	if err != nil {
		return nil, err
	}

	consumer := &Consumer{library: library, name: name}
	dynlib.Bind(&consumer.fn, addr)
	return consumer, nil
}

func (p *Producer) Name() string { return p.name }

// Call invokes the export. The full return register is read as uint64, so a
// value with the top bit set comes back unsigned.
func (p *Producer) Call() (uint64, error) {
	p.library.mu.RLock()
	defer p.library.mu.RUnlock()

	if p.library.closed {
		return 0, ErrLibraryClosed
	}
	return p.fn(), nil
}

func (c *Consumer) Name() string { return c.name }

// Call invokes the export with the exact bit pattern of v. Whatever the
// native side does with it is not observed.
func (c *Consumer) Call(v uint64) error {
	c.library.mu.RLock()
	defer c.library.mu.RUnlock()

	if c.library.closed {
		return ErrLibraryClosed
	}
	c.fn(v)
	return nil
}
