package dedup

// Similarity returns 2*M/T where M is the number of runes covered by the
// longest-matching-blocks decomposition of a and b and T is their combined
// rune length. Identical inputs score 1, disjoint inputs 0, two empty
// strings 1. The pair is put in a fixed order first so the score does not
// depend on argument order.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if b < a {
		a, b = b, a
	}
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(newMatcher(ra, rb).matched()) / float64(total)
}

type matcher struct {
	a, b []rune
	b2j  map[rune][]int

	// scratch rows for longest(); indexed by j+1.
	prev, cur []int
	touched   []int
}

func newMatcher(a, b []rune) *matcher {
	m := &matcher{
		a:    a,
		b:    b,
		b2j:  make(map[rune][]int, len(b)),
		prev: make([]int, len(b)+1),
		cur:  make([]int, len(b)+1),
	}
	for j, r := range b {
		m.b2j[r] = append(m.b2j[r], j)
	}
	return m
}

// longest finds the longest common block inside a[alo:ahi] and b[blo:bhi].
// Ties go to the block starting earliest in a, then earliest in b.
func (m *matcher) longest(alo, ahi, blo, bhi int) (besti, bestj, size int) {
	besti, bestj = alo, blo
	var prevTouched []int
	for i := alo; i < ahi; i++ {
		m.touched = m.touched[:0]
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := m.prev[j] + 1
			m.cur[j+1] = k
			m.touched = append(m.touched, j+1)
			if k > size {
				besti, bestj, size = i-k+1, j-k+1, k
			}
		}
		for _, idx := range prevTouched {
			m.prev[idx] = 0
		}
		m.prev, m.cur = m.cur, m.prev
		prevTouched = append(prevTouched[:0], m.touched...)
	}
	for _, idx := range prevTouched {
		m.prev[idx] = 0
	}
	return besti, bestj, size
}

// matched sums the sizes of all matching blocks, found recursively on either
// side of each longest block.
func (m *matcher) matched() int {
	type span struct{ alo, ahi, blo, bhi int }
	queue := []span{{0, len(m.a), 0, len(m.b)}}
	total := 0
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := m.longest(s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		total += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return total
}
