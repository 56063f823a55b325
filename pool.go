package kernel

// poolState is the registry-held object for a fixed-block memory pool
// (§4.G.5): blockCount blocks of blockSize bytes each, allocated and
// freed in O(1) with no fragmentation, since every block is the same
// size.
type poolState struct {
	id        uint32
	name      string
	blockSize int
	storage   [][]byte
	free      []int  // indices of unallocated blocks
	inUse     []bool // inUse[i] true iff storage[i] is currently allocated
}

// PoolID identifies a fixed-block memory pool.
type PoolID uint32

// PoolBlock is a handle to one allocated block. Its Data slice is exactly
// blockSize bytes; the kernel never inspects its contents.
type PoolBlock struct {
	pool  *poolState
	index int
	Data  []byte
}

// CreatePool creates a fixed-block pool with blockCount blocks of
// blockSize bytes each, allocated up front.
func (k *Kernel) CreatePool(name string, blockSize, blockCount int) (PoolID, error) {
	if blockSize <= 0 || blockCount <= 0 {
		return 0, err(InvalidParam)
	}
	p := &poolState{
		name:      name,
		blockSize: blockSize,
		storage:   make([][]byte, blockCount),
		free:      make([]int, blockCount),
		inUse:     make([]bool, blockCount),
	}
	for i := range p.storage {
		p.storage[i] = make([]byte, blockSize)
		p.free[i] = blockCount - 1 - i // LIFO free list, cache-friendlier reuse
	}
	id, rerr := k.reg.Register(KindPool, name, p, k.port.Now())
	if rerr != nil {
		return 0, rerr
	}
	p.id = id
	return PoolID(id), nil
}

func (k *Kernel) poolByID(id PoolID) (*poolState, bool) {
	obj, ok := k.reg.Get(KindPool, uint32(id))
	if !ok {
		return nil, false
	}
	return obj.(*poolState), true
}

// AllocBlock takes one free block from the pool. Non-blocking: pools
// never put a task to sleep, matching the fixed-block allocator's O(1),
// ISR-safe contract.
func (k *Kernel) AllocBlock(id PoolID) (*PoolBlock, error) {
	p, ok := k.poolByID(id)
	if !ok {
		return nil, err(NotFound)
	}
	k.cs.enter()
	defer k.cs.exit()
	if len(p.free) == 0 {
		return nil, err(OutOfMemory)
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.inUse[idx] = true
	return &PoolBlock{pool: p, index: idx, Data: p.storage[idx]}, nil
}

// FreeBlock returns a block to its pool. Freeing the same handle twice is
// reported as [ErrInvalidParam] (the first free detaches it from the
// pool); a handle whose block is not currently allocated is reported as
// [ErrCorrupted]. Either way the free list is left intact (§4.G.5's
// double-free detection).
func (k *Kernel) FreeBlock(b *PoolBlock) error {
	if b == nil || b.pool == nil {
		return err(InvalidParam)
	}
	p := b.pool
	k.cs.enter()
	defer k.cs.exit()
	if b.index < 0 || b.index >= len(p.inUse) || !p.inUse[b.index] {
		return err(Corrupted)
	}
	p.inUse[b.index] = false
	p.free = append(p.free, b.index)
	b.pool = nil
	return nil
}

// PoolFreeCount reports how many blocks are currently unallocated.
func (k *Kernel) PoolFreeCount(id PoolID) (int, error) {
	p, ok := k.poolByID(id)
	if !ok {
		return 0, err(NotFound)
	}
	k.cs.enter()
	defer k.cs.exit()
	return len(p.free), nil
}

// DeletePool removes a pool. It is the caller's responsibility to ensure
// no blocks are outstanding; deleting a pool with allocated blocks
// returns [ErrBusy].
func (k *Kernel) DeletePool(id PoolID) error {
	p, ok := k.poolByID(id)
	if !ok {
		return err(NotFound)
	}
	k.cs.enter()
	if len(p.free) != len(p.storage) {
		k.cs.exit()
		return err(Busy)
	}
	k.cs.exit()
	return k.reg.Unregister(KindPool, uint32(id))
}
