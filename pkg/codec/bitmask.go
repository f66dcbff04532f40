package codec

// BitField describes one field packed into a storage word: its bit
// position and width. This is the "explicit field-descriptor table"
// design note standing in for the source's decorator-based
// bitfield metadata. The PDB database attribute flags are declared as a
// table of these; the record attribute byte and the PADP fragment flags
// use plain mask constants instead.
type BitField struct {
	Name string
	Pos  uint
	Width uint
}

func (f BitField) mask() uint32 {
	return (uint32(1)<<f.Width - 1) << f.Pos
}

// Get extracts the field's value out of a storage word.
func (f BitField) Get(word uint32) uint32 {
	return (word & f.mask()) >> f.Pos
}

// Set returns word with the field overwritten by value (masked to width).
func (f BitField) Set(word uint32, value uint32) uint32 {
	word &^= f.mask()
	return word | ((value << f.Pos) & f.mask())
}

// Flag is a single-bit BitField convenience constructor.
func Flag(name string, pos uint) BitField { return BitField{Name: name, Pos: pos, Width: 1} }

// GetBool reads a single-bit field as a bool.
func (f BitField) GetBool(word uint32) bool { return f.Get(word) != 0 }

// SetBool writes a single-bit field from a bool.
func (f BitField) SetBool(word uint32, on bool) uint32 {
	if on {
		return f.Set(word, 1)
	}
	return f.Set(word, 0)
}
