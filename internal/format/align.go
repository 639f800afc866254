package format

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n int) int {
	return (n + AlignmentMask) & ^AlignmentMask
}

// RequestCapacity normalizes a caller request of n bytes into the payload
// capacity recorded in the header. The extra GuardSize bytes hold the far
// guard, and the result keeps the following header 8-byte aligned.
//
//	RequestCapacity(1)  = 8
//	RequestCapacity(4)  = 8
//	RequestCapacity(5)  = 16
//	RequestCapacity(50) = 56
func RequestCapacity(n int) int {
	return Align8(n + GuardSize)
}

// Usable returns how many payload bytes a caller may touch for a block of
// the given capacity.
func Usable(capacity int) int {
	if capacity < GuardSize {
		return 0
	}
	return capacity - GuardSize
}
