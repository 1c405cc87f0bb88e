// Package memseg implements named memory segments and the bump allocator
// built on top of them (spec component C2).
//
// Grounded on original_source/rtos/uC-LIB/lib_mem.c's Mem_SegCreate /
// Mem_SegAlloc family and on the convention seen in src/rrbb.go and
// src/ax25_pad.go of a process-wide allocation pool backing short-lived
// protocol objects — here made explicit as a Registry instead of a bare
// package-level C array, so the head location is injectable rather than
// hidden global state.
package memseg

import (
	"sync"

	"github.com/openrtx/runtime/internal/rterr"
)

const opCreate = "memseg.Create"
const opAlloc = "memseg.Alloc"
const opRemSize = "memseg.RemSize"
const opClear = "memseg.Clear"

// AllocRecord is a debug-tracking entry: total_bytes allocated under one
// name pointer. The key is pointer identity of the name string's backing
// data, not string equality: two allocations that share the same name
// pointer accumulate into one record.
type AllocRecord struct {
	Name       *string
	TotalBytes uint64
	next       *AllocRecord
}

// Segment is a contiguous address range carved out of a backing []byte.
// Addresses are expressed as offsets into Storage, which keeps the package
// free of real pointers (and therefore safe to exercise with the race
// detector and rapid's property tests) while preserving base/end/next_free
// arithmetic expressed in terms of addresses.
type Segment struct {
	mu sync.Mutex

	Name         string
	Storage      []byte
	base         uint64
	end          uint64 // inclusive last byte offset
	nextFree     uint64
	paddingAlign uint64 // power of two, or 1 ("none")

	track   bool
	records *AllocRecord
}

// RemInfo is the optional detail block filled in by RemSize.
type RemInfo struct {
	Total       uint64
	Used        uint64
	Base        uint64
	NextAligned uint64
}

// Registry is an explicit, injectable segment list: the process-wide
// segment list made a value instead of a hidden global so hosted tests can
// run independent registries in parallel.
type Registry struct {
	mu   sync.Mutex
	head *node
}

type node struct {
	seg  *Segment
	next *node
}

// DefaultRegistry is the boot-time registry, analogous to package-level g_*
// state seen elsewhere in the codebase: convenient for cmd/rtxsim, never
// required by the package API itself.
var DefaultRegistry = &Registry{}

func isPowerOfTwoOrNone(v uint64) bool {
	if v == 0 {
		return false
	}
	return v&(v-1) == 0
}

func roundUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// Create installs a new segment at the registry's head (LIFO, so the most
// recently created segment is found first) backed by storage. base/size
// describe the segment's address range within the caller's address space;
// Storage must have at least size bytes starting at offset 0 — callers map
// base purely for bookkeeping/overlap-detection purposes, the same way
// distinct RAM regions are handled elsewhere in this codebase.
func (r *Registry) Create(name string, storage []byte, base, size uint64, paddingAlign uint64, track bool) (*Segment, error) {
	if size == 0 || base+size-1 < base {
		return nil, rterr.New(opCreate, rterr.InvalidSegSize)
	}
	if paddingAlign != 1 && !isPowerOfTwoOrNone(paddingAlign) {
		return nil, rterr.New(opCreate, rterr.InvalidSegAlign)
	}
	if uint64(len(storage)) < size {
		return nil, rterr.New(opCreate, rterr.InvalidSegSize)
	}

	end := base + size - 1

	r.mu.Lock()
	defer r.mu.Unlock()

	for n := r.head; n != nil; n = n.next {
		if n.seg.base == base && n.seg.end == end {
			return nil, rterr.New(opCreate, rterr.InvalidSegExists)
		}
		if base <= n.seg.end && n.seg.base <= end {
			return nil, rterr.New(opCreate, rterr.InvalidSegOverlap)
		}
	}

	seg := &Segment{
		Name:         name,
		Storage:      storage,
		base:         base,
		end:          end,
		nextFree:     base,
		paddingAlign: paddingAlign,
		track:        track,
	}
	r.head = &node{seg: seg, next: r.head}
	return seg, nil
}

// Base returns the segment's lowest valid address.
func (s *Segment) Base() uint64 { return s.base }

// End returns the segment's highest valid address (inclusive).
func (s *Segment) End() uint64 { return s.end }

// NextFree returns the current bump cursor.
func (s *Segment) NextFree() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextFree
}

// alloc is the shared bump-allocation algorithm used by both Alloc and
// AllocHW.
func (s *Segment) alloc(name *string, size, align, paddingAlign uint64) (uint64, error) {
	if size == 0 {
		return 0, rterr.New(opAlloc, rterr.InvalidMemSize)
	}
	if align == 0 || !isPowerOfTwoOrNone(align) {
		return 0, rterr.New(opAlloc, rterr.InvalidMemAlign)
	}
	if paddingAlign != 1 && !isPowerOfTwoOrNone(paddingAlign) {
		return 0, rterr.New(opAlloc, rterr.InvalidMemAlign)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blockAlign := align
	if paddingAlign > blockAlign {
		blockAlign = paddingAlign
	}

	blockStart := roundUp(s.nextFree, blockAlign)
	nextAfter := roundUp(blockStart+size, paddingAlign)

	if nextAfter > s.end+1 {
		deficit := nextAfter - s.nextFree - (s.end + 1 - s.nextFree)
		return 0, rterr.Newf(opAlloc, rterr.SegOvf, "deficit=%d", deficit)
	}

	s.nextFree = nextAfter
	if s.track {
		s.trackAlloc(name, size)
	}
	return blockStart, nil
}

// Alloc reserves size bytes aligned to align, then advances next_free so
// that the following allocation starts aligned to max(align, paddingAlign).
func (s *Segment) Alloc(name *string, size, align, paddingAlign uint64) (uint64, error) {
	return s.alloc(name, size, align, paddingAlign)
}

// AllocHW allocates using the segment's own stored padding_align rather
// than a caller-supplied one.
func (s *Segment) AllocHW(name *string, size, align uint64) (uint64, error) {
	return s.alloc(name, size, align, s.paddingAlign)
}

func (s *Segment) trackAlloc(name *string, size uint64) {
	for r := s.records; r != nil; r = r.next {
		if r.Name == name {
			r.TotalBytes += size
			return
		}
	}
	s.records = &AllocRecord{Name: name, TotalBytes: size, next: s.records}
}

// Records returns a snapshot of the debug-tracking allocation list. Empty
// when tracking is disabled.
func (s *Segment) Records() []AllocRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AllocRecord
	for r := s.records; r != nil; r = r.next {
		out = append(out, AllocRecord{Name: r.Name, TotalBytes: r.TotalBytes})
	}
	return out
}

// RemSize returns the bytes available from the next align-aligned cursor to
// end+1, optionally filling info with the full breakdown.
func (s *Segment) RemSize(align uint64, info *RemInfo) (uint64, error) {
	if align == 0 || !isPowerOfTwoOrNone(align) {
		return 0, rterr.New(opRemSize, rterr.InvalidMemAlign)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextAligned := roundUp(s.nextFree, align)
	if nextAligned > s.end+1 {
		if info != nil {
			*info = RemInfo{Total: s.end + 1 - s.base, Used: s.nextFree - s.base, Base: s.base, NextAligned: nextAligned}
		}
		return 0, nil
	}
	rem := s.end + 1 - nextAligned
	if info != nil {
		*info = RemInfo{Total: s.end + 1 - s.base, Used: s.nextFree - s.base, Base: s.base, NextAligned: nextAligned}
	}
	return rem, nil
}

// Clear resets next_free to base. Rejected when debug-tracking is enabled,
// since tracking records live logically alongside the heap's allocations
// and would dangle once next_free rewinds past them.
func (s *Segment) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track {
		return rterr.New(opClear, rterr.Inval)
	}
	s.nextFree = s.base
	return nil
}
