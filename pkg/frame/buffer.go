package frame

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Ownership tags who owns the pixel memory behind a Buffer.
type Ownership int

const (
	// Borrowed memory belongs to the host and is valid for one call only
	Borrowed Ownership = iota
	// Owned memory is an independent copy retained by the plugin
	Owned
)

// String returns the ownership name
func (o Ownership) String() string {
	if o == Owned {
		return "owned"
	}
	return "borrowed"
}

var (
	// ErrRevoked is the panic value raised when a borrowed handle is used after
	// the call that supplied it has returned.
	ErrRevoked = errors.New("frame: borrowed buffer used after its call returned")
	// ErrShapeMismatch is returned when two buffers must share a shape and do not
	ErrShapeMismatch = errors.New("frame: shape mismatch")
	// ErrAliasOwned is returned when an output is aliased to a plugin-owned copy
	ErrAliasOwned = errors.New("frame: cannot alias an owned copy, use CopyFrom")
	// ErrSizeMismatch is returned when pixel memory does not match the descriptor
	ErrSizeMismatch = errors.New("frame: pixel memory does not match descriptor size")
)

// Buffer is a handle to pixel data plus its descriptor.
//
// Borrowed handles are created by the host around host memory and revoked
// when the call that received them returns; any pixel access afterwards
// panics with ErrRevoked. A plugin that needs pixels across calls must Clone.
type Buffer struct {
	desc      Descriptor
	pix       []byte
	ownership Ownership
	aliasOf   *Buffer
	revoked   atomic.Bool
}

// Borrow wraps host memory in a borrowed handle.
func Borrow(desc Descriptor, pix []byte) (*Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if len(pix) != desc.Size() {
		return nil, fmt.Errorf("%w: have %d bytes, %s needs %d", ErrSizeMismatch, len(pix), desc, desc.Size())
	}
	return &Buffer{desc: desc, pix: pix, ownership: Borrowed}, nil
}

// NewOwned allocates a zeroed plugin-owned buffer.
func NewOwned(desc Descriptor) *Buffer {
	return &Buffer{desc: desc, pix: make([]byte, desc.Size()), ownership: Owned}
}

// Descriptor returns the buffer's shape
func (b *Buffer) Descriptor() Descriptor {
	return b.desc
}

// Ownership returns the ownership tag
func (b *Buffer) Ownership() Ownership {
	return b.ownership
}

// Valid reports whether the handle may still be accessed
func (b *Buffer) Valid() bool {
	return b != nil && !b.revoked.Load()
}

// Pix returns the pixel bytes. Panics with ErrRevoked on a revoked handle.
func (b *Buffer) Pix() []byte {
	if b.revoked.Load() {
		panic(ErrRevoked)
	}
	return b.pix
}

// Row returns the bytes of row y
func (b *Buffer) Row(y int) []byte {
	stride := b.desc.Stride()
	pix := b.Pix()
	return pix[y*stride : (y+1)*stride]
}

// Clone takes an independent owned copy, the only legal way to keep pixels
// beyond the current call.
func (b *Buffer) Clone() *Buffer {
	src := b.Pix()
	pix := make([]byte, len(src))
	copy(pix, src)
	return &Buffer{desc: b.desc, pix: pix, ownership: Owned}
}

// CopyFrom writes src's pixels into this buffer's existing memory.
func (b *Buffer) CopyFrom(src *Buffer) error {
	if !b.desc.SameShape(src.desc) {
		return fmt.Errorf("%w: %s <- %s", ErrShapeMismatch, b.desc, src.desc)
	}
	copy(b.Pix(), src.Pix())
	return nil
}

// Alias rebinds this output handle to a borrowed input verbatim (zero-copy
// pass-through). The shapes must be identical and src must not be an owned copy.
func (b *Buffer) Alias(src *Buffer) error {
	if src.ownership == Owned {
		return ErrAliasOwned
	}
	if !b.desc.SameShape(src.desc) {
		return fmt.Errorf("%w: %s <- %s", ErrShapeMismatch, b.desc, src.desc)
	}
	b.pix = src.Pix()
	b.aliasOf = src
	return nil
}

// AliasOf returns the input this handle was aliased to, or nil
func (b *Buffer) AliasOf() *Buffer {
	return b.aliasOf
}

// Checksum returns an xxhash digest of the pixel bytes
func (b *Buffer) Checksum() uint64 {
	return xxhash.Sum64(b.Pix())
}

// Release drops an owned buffer's memory. It is a no-op on borrowed handles.
func (b *Buffer) Release() {
	if b.ownership != Owned {
		return
	}
	b.pix = nil
	b.revoked.Store(true)
}

// Revoke ends a borrowed handle's call scope and returns the memory it
// referenced at that moment (the input's memory when aliased). Host use only.
func (b *Buffer) Revoke() []byte {
	b.revoked.Store(true)
	return b.pix
}
