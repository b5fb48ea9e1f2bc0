package control

// Signal holds any data passed between blocks.
type Signal struct {
	signal    []float64
	time      []int
	dimension int
	name      string
	blockType BlockType
}

func makeSignal(name string, blockType BlockType) *Signal {
	var s Signal
	dimension := 1
	s.dimension = dimension
	s.signal = make([]float64, dimension)
	s.time = make([]int, dimension)
	s.name = name
	s.blockType = blockType
	return &s
}

// GetSignalValueAt returns the signal value at index i, 0 when out of range.
func (s *Signal) GetSignalValueAt(i int) float64 {
	if i < 0 || i > len(s.signal)-1 {
		return 0.0
	}
	return s.signal[i]
}

// SetSignalValueAt set the value of a signal at an index.
func (s *Signal) SetSignalValueAt(i int, val float64) {
	if i < 0 || i > len(s.signal)-1 {
		return
	}
	s.signal[i] = val
}

// Name returns the name of the block that produced the signal.
func (s *Signal) Name() string {
	return s.name
}

// BlockType returns the type of the block that produced the signal.
func (s *Signal) BlockType() BlockType {
	return s.blockType
}
