package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/framego/pkg/frame"
)

func borrowed(t *testing.T, v byte) (*frame.Buffer, []byte) {
	t.Helper()
	mem := []byte{v, v}
	b, err := frame.Borrow(frame.NewDescriptor(2, 1, frame.FormatGray8), mem)
	require.NoError(t, err)
	return b, mem
}

func TestRetainClonesBorrowed(t *testing.T) {
	q := New(3)
	b, mem := borrowed(t, 1)
	require.NoError(t, q.Retain(b))

	// host reuses its memory after the call
	b.Revoke()
	mem[0] = 42

	require.Equal(t, 1, q.Len())
	assert.Equal(t, frame.Owned, q.Front().Ownership())
	assert.Equal(t, byte(1), q.Front().Pix()[0])
}

func TestFIFOOrderAndWrap(t *testing.T) {
	q := New(3)
	assert.Equal(t, 4, q.Cap())

	for round := 0; round < 3; round++ {
		for i := byte(0); i < 4; i++ {
			b, _ := borrowed(t, i)
			require.NoError(t, q.Retain(b))
		}
		b, _ := borrowed(t, 9)
		assert.ErrorIs(t, q.Retain(b), ErrFull)

		var seen []byte
		q.Each(func(_ int, b *frame.Buffer) { seen = append(seen, b.Pix()[0]) })
		assert.Equal(t, []byte{0, 1, 2, 3}, seen)

		q.Drop()
		assert.Equal(t, byte(1), q.Front().Pix()[0])
		q.Clear()
		assert.Equal(t, 0, q.Len())
		assert.Nil(t, q.Front())
	}
}

func TestDropReleasesOwned(t *testing.T) {
	q := New(1)
	b, _ := borrowed(t, 5)
	require.NoError(t, q.Retain(b))
	front := q.Front()
	q.Drop()
	assert.False(t, front.Valid())
	q.Drop() // empty drop is a no-op
	assert.Equal(t, 0, q.Len())
}
