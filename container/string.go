package container

import (
	"github.com/wippyai/wasm-engine/errors"
)

// Builder is a bounded string builder sharing the container failure
// contract: appends beyond capacity fail instead of growing.
type Builder struct {
	buf *Vec[byte]
}

// NewBuilder creates a builder backed by dynamic storage bounded at
// capacity bytes.
func NewBuilder(capacity int) *Builder {
	return &Builder{buf: NewVec[byte](capacity)}
}

// NewFixedBuilder creates a builder whose backing is fully allocated at
// construction.
func NewFixedBuilder(capacity int) *Builder {
	return &Builder{buf: NewFixedVec[byte](capacity)}
}

// Len returns the number of bytes written.
func (b *Builder) Len() int { return b.buf.Len() }

// IsEmpty reports whether nothing has been written.
func (b *Builder) IsEmpty() bool { return b.buf.IsEmpty() }

// Cap returns the configured capacity in bytes.
func (b *Builder) Cap() int { return b.buf.Cap() }

// WriteByte appends one byte.
func (b *Builder) WriteByte(c byte) error {
	return b.buf.Push(c)
}

// WriteString appends s. On capacity failure nothing is written.
func (b *Builder) WriteString(s string) error {
	if b.buf.Len()+len(s) > b.buf.Cap() {
		return errors.Capacity(uint64(b.buf.Len()+len(s)), uint64(b.buf.Cap()))
	}
	for i := 0; i < len(s); i++ {
		if err := b.buf.Push(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// Write appends p. On capacity failure nothing is written.
func (b *Builder) Write(p []byte) error {
	if b.buf.Len()+len(p) > b.buf.Cap() {
		return errors.Capacity(uint64(b.buf.Len()+len(p)), uint64(b.buf.Cap()))
	}
	for _, c := range p {
		if err := b.buf.Push(c); err != nil {
			return err
		}
	}
	return nil
}

// String returns a copy of the accumulated bytes.
func (b *Builder) String() string {
	return string(b.buf.Slice())
}

// Reset discards the contents, keeping the backing storage.
func (b *Builder) Reset() {
	b.buf.Truncate(0)
}
