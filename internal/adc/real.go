//go:build linux

package adc

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads an MCP3008-class SPI ADC by bit-banging the protocol
// over Linux GPIO character device lines. One conversion per Read call.
type RealReader struct {
	chip    *gpiocdev.Chip
	clk     *gpiocdev.Line
	mosi    *gpiocdev.Line
	miso    *gpiocdev.Line
	cs      *gpiocdev.Line
	channel int
	mode    *AcquisitionMode
}

// NewRealReader requests the four SPI lines on the named chip for
// single-ended conversion of the given ADC channel (0-7). The MISO line is
// requested with bias disabled so no pull resistor loads the converter's
// output driver. Conversion timing comes from the shared mode.
func NewRealReader(chipName string, pinCLK, pinMOSI, pinMISO, pinCS, channel int, mode *AcquisitionMode) (*RealReader, error) {
	if channel < 0 || channel > 7 {
		return nil, fmt.Errorf("adc channel %d out of range 0-7", channel)
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	clk, err := chip.RequestLine(pinCLK, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request CLK line %d: %w", pinCLK, err)
	}

	mosi, err := chip.RequestLine(pinMOSI, gpiocdev.AsOutput(0))
	if err != nil {
		clk.Close()
		chip.Close()
		return nil, fmt.Errorf("request MOSI line %d: %w", pinMOSI, err)
	}

	miso, err := chip.RequestLine(pinMISO, gpiocdev.AsInput, gpiocdev.WithBiasDisabled)
	if err != nil {
		mosi.Close()
		clk.Close()
		chip.Close()
		return nil, fmt.Errorf("request MISO line %d: %w", pinMISO, err)
	}

	// Chip select idles high; pulled low only for the conversion window.
	cs, err := chip.RequestLine(pinCS, gpiocdev.AsOutput(1))
	if err != nil {
		miso.Close()
		mosi.Close()
		clk.Close()
		chip.Close()
		return nil, fmt.Errorf("request CS line %d: %w", pinCS, err)
	}

	return &RealReader{
		chip:    chip,
		clk:     clk,
		mosi:    mosi,
		miso:    miso,
		cs:      cs,
		channel: channel,
		mode:    mode,
	}, nil
}

// Read performs one conversion: start bit, single-ended flag and three
// channel-select bits out, one null bit, then ten data bits in, MSB first.
func (r *RealReader) Read() (int, error) {
	settle := r.mode.Settle()

	if err := r.cs.SetValue(0); err != nil {
		return 0, fmt.Errorf("assert CS: %w", err)
	}
	defer r.cs.SetValue(1)

	tx := []int{1, 1, r.channel >> 2 & 1, r.channel >> 1 & 1, r.channel & 1}
	for _, bit := range tx {
		if err := r.mosi.SetValue(bit); err != nil {
			return 0, fmt.Errorf("write command bit: %w", err)
		}
		if err := r.clock(settle); err != nil {
			return 0, err
		}
	}

	// The converter emits one null bit before the sample.
	if err := r.clock(settle); err != nil {
		return 0, err
	}

	sample := 0
	for i := 0; i < 10; i++ {
		if err := r.clock(settle); err != nil {
			return 0, err
		}
		bit, err := r.miso.Value()
		if err != nil {
			return 0, fmt.Errorf("read data bit %d: %w", i, err)
		}
		sample = sample<<1 | bit
	}

	return sample, nil
}

// clock raises and lowers the SPI clock, holding each level for the settle
// duration. The converter samples its input on the rising edge and shifts
// data out on the falling edge; a short settle trades accuracy for speed.
func (r *RealReader) clock(settle time.Duration) error {
	if err := r.clk.SetValue(1); err != nil {
		return fmt.Errorf("clock high: %w", err)
	}
	time.Sleep(settle)
	if err := r.clk.SetValue(0); err != nil {
		return fmt.Errorf("clock low: %w", err)
	}
	time.Sleep(settle)
	return nil
}

// Close releases the SPI lines. Outputs are reconfigured as plain inputs
// first so the bus floats free for other users after shutdown.
func (r *RealReader) Close() error {
	var errs []error

	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"CLK", r.clk},
		{"MOSI", r.mosi},
		{"CS", r.cs},
	} {
		if l.line == nil {
			continue
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s line: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s line: %w", l.name, err))
		}
	}

	if r.miso != nil {
		if err := r.miso.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close MISO line: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
