package input

// sparePool hands out keycodes that carry no symbols in the current layout,
// so characters the layout lacks can be bound to them. A keycode whose key
// is held is never rebound; otherwise its release would hit another symbol.
type sparePool struct {
	codes []int
	next  int
	held  map[int]bool
	bound map[int]bool
}

func newSparePool(codes []int) *sparePool {
	return &sparePool{
		codes: codes,
		held:  make(map[int]bool),
		bound: make(map[int]bool),
	}
}

// take returns the next spare keycode that is not held, round robin.
func (p *sparePool) take() (int, bool) {
	for i := range p.codes {
		j := (p.next + i) % len(p.codes)
		if code := p.codes[j]; !p.held[code] {
			p.next = (j + 1) % len(p.codes)
			p.bound[code] = true
			return code, true
		}
	}
	return 0, false
}

// press records a key event on code, which may be any keycode.
func (p *sparePool) press(code int, down bool) {
	if down {
		p.held[code] = true
	} else {
		delete(p.held, code)
	}
}

// rebound returns the spare keycodes that were handed out at least once.
func (p *sparePool) rebound() []int {
	var codes []int
	for _, code := range p.codes {
		if p.bound[code] {
			codes = append(codes, code)
		}
	}
	return codes
}
