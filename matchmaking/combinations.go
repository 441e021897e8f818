package matchmaking

// Combinations перечисляет все k-элементные подмножества индексов [0, n)
// в лексикографическом порядке. Генератор итеративный: состояние хранится
// в векторе индексов, рекурсии нет, поэтому его можно остановить и
// перезапустить через Reset.
type Combinations struct {
	n, k    int
	idx     []int
	started bool
	done    bool
}

func NewCombinations(n, k int) *Combinations {
	c := &Combinations{n: n, k: k, idx: make([]int, k)}
	c.Reset()
	return c
}

// Reset returns the generator to the first combination.
func (c *Combinations) Reset() {
	c.started = false
	c.done = c.k < 0 || c.k > c.n
	for i := range c.idx {
		c.idx[i] = i
	}
}

// Next returns the next combination, or false once the sequence is exhausted.
// The returned slice is a copy and may be kept by the caller.
func (c *Combinations) Next() ([]int, bool) {
	if c.done {
		return nil, false
	}
	if !c.started {
		c.started = true
		return c.snapshot(), true
	}

	// Ищем самую правую позицию, которую ещё можно сдвинуть.
	i := c.k - 1
	for i >= 0 && c.idx[i] == c.n-c.k+i {
		i--
	}
	if i < 0 {
		c.done = true
		return nil, false
	}
	c.idx[i]++
	for j := i + 1; j < c.k; j++ {
		c.idx[j] = c.idx[j-1] + 1
	}
	return c.snapshot(), true
}

func (c *Combinations) snapshot() []int {
	out := make([]int, c.k)
	copy(out, c.idx)
	return out
}

// Count returns C(n, k) without enumerating.
func Count(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1
	for i := 1; i <= k; i++ {
		result = result * (n - k + i) / i
	}
	return result
}
