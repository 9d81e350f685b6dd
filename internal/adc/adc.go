// Package adc provides analog sample acquisition with hardware abstraction.
// The real implementation bit-bangs an MCP3008-class SPI converter over the
// Linux GPIO character device. The fake implementation allows testing
// without hardware.
package adc

// Reader reads raw analog samples.
type Reader interface {
	// Read performs one conversion and returns the raw sample in
	// [0, Resolution-1].
	Read() (int, error)

	// Close releases hardware resources.
	Close() error
}

// Resolution is the sample range of the 10-bit converter.
const Resolution = 1024

// Default line offsets for the bit-banged SPI bus (BCM numbering, matching
// the Pi's hardware SPI0 pads so standard ADC wiring diagrams apply).
const (
	DefaultPinCLK  = 11
	DefaultPinMOSI = 10
	DefaultPinMISO = 9
	DefaultPinCS   = 8
)

// DefaultChip is the GPIO character device for the first controller.
const DefaultChip = "gpiochip0"
