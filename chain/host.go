package chain

import (
	"github.com/vinagres/sramchain/mem"
	"github.com/vinagres/sramchain/sensors"
)

// vmHost wires a node's memory surface and sensor latch together into the
// single forth.Host seam the embedded interpreter calls through.
type vmHost struct {
	*mem.Surface
	latch *sensors.Latch
}

func (h vmHost) Temp() uint16 { return h.latch.Temp() }
func (h vmHost) Vdd() uint16  { return h.latch.Vdd() }
