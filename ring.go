package nbsp

// The output buffer is a caller-owned array of words addressed modulo
// bufferMask+1, fixed at the caller's chosen power-of-two size rather
// than growing: enqueue fails (no reallocation) once the buffer is full,
// and the library performs no heap allocation.
//
// One slot is always left empty so writeIndex == readIndex can mean
// "empty" without an extra counter field.

// ringNext advances an index by step words, wrapping at mask+1.
func ringNext(index, step, mask uint32) uint32 {
	return (index + step) & mask
}

// ringLen returns the number of buffered words, masked for wrap-around.
func ringLen(readIndex, writeIndex, mask uint32) uint32 {
	return (writeIndex - readIndex) & mask
}

// ringFreeSlots returns the number of additional words that can be pushed
// before the ring reports full, reserving the one always-empty slot.
func ringFreeSlots(readIndex, writeIndex, mask uint32) uint32 {
	return (readIndex - writeIndex - 1) & mask
}
