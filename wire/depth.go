package wire

import "github.com/wippyai/avro-runtime/errors"

// DefaultMaxDepth bounds how many records a single read may nest.
const DefaultMaxDepth = 10000

// Depth counts nested reads for a Source. The zero value allows
// DefaultMaxDepth levels.
type Depth struct {
	cur int
	max int
}

// SetMaxDepth sets the nesting limit; n <= 0 restores DefaultMaxDepth.
func (d *Depth) SetMaxDepth(n int) { d.max = n }

// Enter opens one nesting level. It fails once the limit is exceeded and
// the level is then not counted.
func (d *Depth) Enter() error {
	limit := d.max
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	if d.cur >= limit {
		return errors.MalformedInput(errors.PhaseDecode, "nesting deeper than %d levels", limit)
	}
	d.cur++
	return nil
}

// Leave closes a level opened by Enter.
func (d *Depth) Leave() {
	if d.cur > 0 {
		d.cur--
	}
}
