package filtersync

// Key is a navigation key handled by the suggestion list.
type Key int

const (
	KeyDown Key = iota
	KeyUp
	KeyEnter
)

// cursor tracks the highlighted entry of the suggestion dropdown.
type cursor struct {
	active  int
	visible bool
}

func newCursor() cursor {
	return cursor{active: -1}
}

func (c *cursor) reset() {
	c.active = -1
}

func (c *cursor) show(visible bool) {
	if c.visible != visible {
		c.reset()
	}
	c.visible = visible
}

// move shifts the highlight by one within n entries, clamping at both ends.
func (c *cursor) move(k Key, n int) {
	switch k {
	case KeyDown:
		c.active = min(c.active+1, n-1)
	case KeyUp:
		c.active = max(c.active-1, 0)
	}
}

// clamp drops a highlight that no longer points into a list of n entries.
func (c *cursor) clamp(n int) {
	if c.active >= n {
		c.reset()
	}
}
