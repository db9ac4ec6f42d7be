package frames

// Compass offsets, indexed by direction. Direction d and (d+4)%8 are
// opposite.
var (
	dirX = [8]int{-1, -1, 0, 1, 1, 1, 0, -1}
	dirY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

const (
	noNeighbour = -1
	unvisited   = -1
)

// Pixel is a hit pixel inside one BlobFinder run. Neighbours are indices
// into the finder's pixel arena.
type Pixel struct {
	X, Y       int
	V          int
	Neighbours [8]int32
	// Mask is -1 until the pixel joins a blob, then the bit set of the
	// directions holding a neighbour.
	Mask    int
	Cluster int
	Level   int
}

// Blob is a maximal set of 8-connected hit pixels.
type Blob struct {
	// Pixels are arena indices in the order they joined the blob.
	Pixels      []int32
	TotalEnergy int
	members     map[int32]struct{}
}

func (b *Blob) Size() int { return len(b.Pixels) }

func (b *Blob) Contains(i int32) bool {
	_, ok := b.members[i]
	return ok
}

func (b *Blob) add(i int32, p *Pixel) {
	b.members[i] = struct{}{}
	b.Pixels = append(b.Pixels, i)
	b.TotalEnergy += p.V
}

// BlobFinder partitions the pixels of a frame into blobs.
type BlobFinder struct {
	Pixels []Pixel
	Blobs  []*Blob
	rows   int
	cols   int
}

// FindBlobs clusters the hit pixels of counts for a frame of rows x cols.
func FindBlobs(counts *PixelMap, rows, cols int) *BlobFinder {
	bf := &BlobFinder{rows: rows, cols: cols}
	if cols <= 0 || counts.Len() == 0 {
		return bf
	}

	keys := counts.Keys()
	bf.Pixels = make([]Pixel, len(keys))
	byKey := make(map[int]int32, len(keys))
	for i, key := range keys {
		x, y := Unlinearize(key, cols)
		v, _ := counts.Count(key)
		bf.Pixels[i] = Pixel{X: x, Y: y, V: v, Mask: unvisited}
		for d := range bf.Pixels[i].Neighbours {
			bf.Pixels[i].Neighbours[d] = noNeighbour
		}
		byKey[key] = int32(i)
	}

	bf.link(byKey)

	for i := range bf.Pixels {
		if bf.Pixels[i].Mask == unvisited {
			bf.Blobs = append(bf.Blobs, bf.grow(int32(i)))
		}
	}
	return bf
}

func (bf *BlobFinder) link(byKey map[int]int32) {
	for i := range bf.Pixels {
		p := &bf.Pixels[i]
		for d := 0; d < 8; d++ {
			nx, ny := p.X+dirX[d], p.Y+dirY[d]
			if nx < 0 || nx >= bf.cols || ny < 0 || (bf.rows > 0 && ny >= bf.rows) {
				continue
			}
			j, ok := byKey[Linearize(nx, ny, bf.cols)]
			if !ok {
				continue
			}
			p.Neighbours[d] = j
			bf.Pixels[j].Neighbours[(d+4)%8] = int32(i)
		}
	}
}

// grow claims seed and every pixel reachable from it. The blob's pixel
// list is the work list: pixels appended during the walk are visited later
// in the same walk.
func (bf *BlobFinder) grow(seed int32) *Blob {
	blob := &Blob{members: make(map[int32]struct{})}
	bf.Pixels[seed].Mask = 0
	blob.add(seed, &bf.Pixels[seed])

	for n := 0; n < len(blob.Pixels); n++ {
		p := &bf.Pixels[blob.Pixels[n]]
		for d := 0; d < 8; d++ {
			j := p.Neighbours[d]
			if j == noNeighbour {
				continue
			}
			p.Mask |= 1 << d
			if !blob.Contains(j) {
				bf.Pixels[j].Mask = 0
				blob.add(j, &bf.Pixels[j])
			}
		}
	}
	return blob
}

func (bf *BlobFinder) Size() int { return len(bf.Blobs) }

// BlobKeys returns the pixel map keys of blob b.
func (bf *BlobFinder) BlobKeys(b *Blob) []int {
	keys := make([]int, len(b.Pixels))
	for i, idx := range b.Pixels {
		p := bf.Pixels[idx]
		keys[i] = Linearize(p.X, p.Y, bf.cols)
	}
	return keys
}
