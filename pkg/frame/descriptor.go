// Package frame provides frame shape descriptors and frame buffer handles
// exchanged between the host and plugins.
package frame

import "fmt"

// Format is an opaque pixel-format tag. The host and plugin only need to
// agree on its meaning; the contract itself never interprets it beyond the
// bytes-per-pixel table below.
type Format int32

const (
	// FormatUnknown is accepted during negotiation but cannot back a buffer
	FormatUnknown Format = 0
	// FormatGray8 is one 8-bit luma channel
	FormatGray8 Format = 1
	// FormatRGB24 is packed 8-bit R, G, B
	FormatRGB24 Format = 2
	// FormatBGR24 is packed 8-bit B, G, R
	FormatBGR24 Format = 3
	// FormatBGRA32 is packed 8-bit B, G, R, A
	FormatBGRA32 Format = 4
)

var formatNames = map[Format]string{
	FormatUnknown: "unknown",
	FormatGray8:   "gray8",
	FormatRGB24:   "rgb24",
	FormatBGR24:   "bgr24",
	FormatBGRA32:  "bgra32",
}

// String returns the format name
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int32(f))
}

// BytesPerPixel returns the packed pixel size, or 0 for unknown formats
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatGray8:
		return 1
	case FormatRGB24, FormatBGR24:
		return 3
	case FormatBGRA32:
		return 4
	default:
		return 0
	}
}

// ParseFormat resolves a format name as written in pipeline files
func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("unknown pixel format %q", name)
}

// Descriptor describes one frame's shape without any pixel data.
type Descriptor struct {
	Width  int
	Height int
	Format Format
}

// NewDescriptor creates a descriptor
func NewDescriptor(width, height int, format Format) Descriptor {
	return Descriptor{Width: width, Height: height, Format: format}
}

// Validate checks the descriptor can describe a real frame
func (d Descriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", d.Width, d.Height)
	}
	return nil
}

// Stride returns the number of bytes per row
func (d Descriptor) Stride() int {
	return d.Width * d.Format.BytesPerPixel()
}

// Size returns the number of bytes a buffer of this shape holds
func (d Descriptor) Size() int {
	return d.Stride() * d.Height
}

// SameShape reports whether two descriptors have identical dimensions and format
func (d Descriptor) SameShape(o Descriptor) bool {
	return d.Width == o.Width && d.Height == o.Height && d.Format == o.Format
}

// String returns e.g. "640x480/bgr24"
func (d Descriptor) String() string {
	return fmt.Sprintf("%dx%d/%s", d.Width, d.Height, d.Format)
}
