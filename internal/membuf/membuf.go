// Package membuf provides alignment-opportunistic byte primitives and
// endian-safe load/store helpers, the substrate every other runtime package
// builds on.
//
// Grounded on the byte-level helpers scattered through src/rrbb.go and
// src/ax25_pad.go (bit/byte packing for received frames) and on
// original_source/rtos/uC-LIB/lib_mem.c, whose Mem_Copy/Mem_Move/Mem_Cmp/
// Mem_Set are the direct ancestors of Fill/Copy/Move/Compare below.
package membuf

const wordSize = 8 // native word size assumed for alignment opportunism (uint64)

// Fill sets the first n bytes of dst to b. n == 0 is a no-op.
func Fill(dst []byte, b byte, n int) {
	if n <= 0 {
		return
	}
	dst = dst[:n]
	if isAligned(dst) {
		fillWords(dst, b)
		return
	}
	for i := range dst {
		dst[i] = b
	}
}

func fillWords(dst []byte, b byte) {
	word := uint64(b) * 0x0101010101010101
	i := 0
	for ; i+wordSize <= len(dst); i += wordSize {
		storeLE64(dst[i:], word)
	}
	for ; i < len(dst); i++ {
		dst[i] = b
	}
}

// Copy transfers n bytes from src to dst. The regions must not overlap with
// dst > src (that case is undefined under Copy — use Move). n == 0 is a
// no-op.
func Copy(dst, src []byte, n int) {
	if n <= 0 {
		return
	}
	dst = dst[:n]
	src = src[:n]
	if isAligned(dst) && isAligned(src) {
		copyWordsForward(dst, src)
		return
	}
	for i := 0; i < n; i++ {
		dst[i] = src[i]
	}
}

func copyWordsForward(dst, src []byte) {
	i := 0
	for ; i+wordSize <= len(dst); i += wordSize {
		storeLE64(dst[i:], loadLE64(src[i:]))
	}
	for ; i < len(dst); i++ {
		dst[i] = src[i]
	}
}

// Move transfers n bytes from src to dst and, unlike Copy, is safe when the
// regions overlap in either direction: behavior is identical to copying src
// into a temporary buffer first. n == 0 is a no-op.
func Move(dst, src []byte, n int) {
	if n <= 0 {
		return
	}
	dst = dst[:n]
	src = src[:n]

	db := &dst[0]
	sb := &src[0]
	if samePtr(db, sb) {
		return
	}

	if ptrLess(db, sb) || !overlaps(dst, src) {
		Copy(dst, src, n)
		return
	}

	// dst > src and regions overlap: copy backward so bytes are read
	// before being overwritten.
	if isAligned(dst) && isAligned(src) {
		copyWordsBackward(dst, src)
		return
	}
	for i := n - 1; i >= 0; i-- {
		dst[i] = src[i]
	}
}

func copyWordsBackward(dst, src []byte) {
	n := len(dst)
	i := n
	for i-wordSize >= 0 {
		i -= wordSize
		storeLE64(dst[i:], loadLE64(src[i:]))
	}
	for i > 0 {
		i--
		dst[i] = src[i]
	}
}

// Compare reports whether the first n bytes of a and b are equal. It scans
// from the high end first: payloads in this firmware's typical traffic
// (APRS/AX.25-derived frames, calibration blocks) most often differ in
// their low-order/trailing bytes, so a high-to-low scan finds a mismatch
// sooner on average. n == 0 is defined as equal.
func Compare(a, b []byte, n int) bool {
	if n <= 0 {
		return true
	}
	a = a[:n]
	b = b[:n]
	for i := n - 1; i >= 0; i-- {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isAligned(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	return uintptrOf(&b[0])%wordSize == 0
}

func overlaps(dst, src []byte) bool {
	if len(dst) == 0 || len(src) == 0 {
		return false
	}
	dStart, dEnd := uintptrOf(&dst[0]), uintptrOf(&dst[0])+uintptr(len(dst))
	sStart, sEnd := uintptrOf(&src[0]), uintptrOf(&src[0])+uintptr(len(src))
	return dStart < sEnd && sStart < dEnd
}
