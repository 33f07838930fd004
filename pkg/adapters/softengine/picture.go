package softengine

// strideAlign is the row alignment of every plane.
const strideAlign = 32

type picture struct {
	seed    byte
	widths  [3]int
	heights [3]int
	strides [3]int
	planes  [3][]byte
}

func newPicture(width, height int, seed byte) *picture {
	p := &picture{seed: seed}
	cw, ch := (width+1)/2, (height+1)/2
	p.widths = [3]int{width, cw, cw}
	p.heights = [3]int{height, ch, ch}
	for i := range p.strides {
		p.strides[i] = align(p.widths[i], strideAlign)
	}
	return p
}

func align(n, to int) int {
	return (n + to - 1) / to * to
}

// fill renders the picture: a diagonal luma ramp offset by seed and flat
// chroma derived from seed. Row padding stays zero.
func (p *picture) fill() {
	for i := range p.planes {
		p.planes[i] = make([]byte, p.strides[i]*p.heights[i])
	}
	for row := 0; row < p.heights[0]; row++ {
		line := p.planes[0][row*p.strides[0]:]
		for col := 0; col < p.widths[0]; col++ {
			line[col] = p.seed + byte(row+col)
		}
	}
	cb, cr := 128+p.seed, 128-p.seed
	for row := 0; row < p.heights[1]; row++ {
		for col := 0; col < p.widths[1]; col++ {
			p.planes[1][row*p.strides[1]+col] = cb
			p.planes[2][row*p.strides[2]+col] = cr
		}
	}
}

func (p *picture) Width(plane int) int { return p.widths[plane] }
func (p *picture) Height(plane int) int { return p.heights[plane] }
func (p *picture) Plane(plane int) []byte { return p.planes[plane] }
func (p *picture) Stride(plane int) int { return p.strides[plane] }
