package spawn

import "sync"

const DefaultCacheCapacity = 50

// Cache keeps a bounded set of previously accepted points per world. Each
// world's set has its own lock so concurrent searches only contend per world.
type Cache struct {
	capacity int

	mu      sync.RWMutex
	regions map[string]*pointSet
}

type pointSet struct {
	mu    sync.Mutex
	items []Point
	index map[Point]int
}

func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		regions:  map[string]*pointSet{},
	}
}

func (c *Cache) Capacity() int { return c.capacity }

func (c *Cache) set(world string, create bool) *pointSet {
	c.mu.RLock()
	ps := c.regions[world]
	c.mu.RUnlock()
	if ps != nil || !create {
		return ps
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ps = c.regions[world]; ps == nil {
		ps = &pointSet{index: map[Point]int{}}
		c.regions[world] = ps
	}
	return ps
}

// Insert adds p to the set of p.World. When the set grows past capacity one
// element, chosen uniformly from the current set, is evicted.
func (c *Cache) Insert(rng Rand, p Point) {
	ps := c.set(p.World, true)

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if _, ok := ps.index[p]; ok {
		return
	}
	ps.index[p] = len(ps.items)
	ps.items = append(ps.items, p)
	if len(ps.items) > c.capacity {
		ps.removeAt(rng.IntN(len(ps.items)))
	}
}

// removeAt swaps the last element into i. Caller holds ps.mu.
func (ps *pointSet) removeAt(i int) {
	last := len(ps.items) - 1
	victim := ps.items[i]
	if i != last {
		moved := ps.items[last]
		ps.items[i] = moved
		ps.index[moved] = i
	}
	ps.items = ps.items[:last]
	delete(ps.index, victim)
}

func (c *Cache) SampleRandom(rng Rand, world string) (Point, bool) {
	ps := c.set(world, false)
	if ps == nil {
		return Point{}, false
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if len(ps.items) == 0 {
		return Point{}, false
	}
	return ps.items[rng.IntN(len(ps.items))], true
}

func (c *Cache) Len(world string) int {
	ps := c.set(world, false)
	if ps == nil {
		return 0
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.items)
}

// Worlds returns the ids that currently hold a set.
func (c *Cache) Worlds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.regions))
	for id := range c.regions {
		out = append(out, id)
	}
	return out
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.regions = map[string]*pointSet{}
	c.mu.Unlock()
}
