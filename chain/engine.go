// Package chain implements one node's side of the daisy-chained protocol:
// receiving framed packets on the up-link, dispatching the ones addressed
// to this node, and forwarding everything else down the chain. It is the
// direct counterpart of the firmware's main loop and HAL_UART callbacks.
package chain

import (
	"bytes"
	"context"
	"encoding/binary"
	"log"

	"github.com/vinagres/sramchain/forth"
	"github.com/vinagres/sramchain/link"
	"github.com/vinagres/sramchain/mem"
	"github.com/vinagres/sramchain/metrics"
	"github.com/vinagres/sramchain/sensors"
	"github.com/vinagres/sramchain/wire"
)

// Engine is one chain node: its identity, its memory surface, its sensor
// latch and calibration, its embedded interpreter, and the two links it
// sits between.
type Engine struct {
	uid  [wire.UIDSize]byte
	up   link.Link
	down link.Link

	surface *mem.Surface
	latch   *sensors.Latch
	cal     sensors.Calibration

	vm      *forth.VM
	metrics *metrics.Collector
	log     *log.Logger
}

// Config collects everything New needs to assemble a node.
type Config struct {
	UID [wire.UIDSize]byte

	// Up is the link toward the controller (or the previous node in the
	// chain); Down is the link toward the next node. A terminal node's
	// Down should still be a live Link — a loopback that never produces
	// a reply works, since nothing a terminal node forwards down ever
	// needs an answer back.
	Up, Down link.Link

	Surface *mem.Surface
	Latch   *sensors.Latch
	Cal     sensors.Calibration

	// Metrics is optional; a nil Collector disables instrumentation.
	Metrics *metrics.Collector
	Logger  *log.Logger
}

// New assembles and bootstraps a node. The embedded interpreter is ready
// to evaluate programs as soon as New returns.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	vm := forth.New(vmHost{Surface: cfg.Surface, latch: cfg.Latch})
	vm.Bootstrap()

	return &Engine{
		uid:     cfg.UID,
		up:      cfg.Up,
		down:    cfg.Down,
		surface: cfg.Surface,
		latch:   cfg.Latch,
		cal:     cfg.Cal,
		vm:      vm,
		metrics: cfg.Metrics,
		log:     logger,
	}
}

// VM exposes the node's interpreter, for wiring a metrics.Collector's
// write-pos gauge to it.
func (e *Engine) VM() *forth.VM { return e.vm }

// Run drives the node until the up-link fails (typically because it was
// closed during shutdown) or ctx is cancelled. It also starts the
// down-link relay goroutine: any reply arriving from downstream is passed
// back up untouched, the same job the firmware's USART3 RX-complete
// callback does by re-sending straight onto USART1.
func (e *Engine) Run(ctx context.Context) error {
	relayErr := make(chan error, 1)
	go e.relayDown(relayErr)

	buf := make([]byte, wire.Size)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-relayErr:
			return err
		default:
		}

		if err := e.up.Recv(buf); err != nil {
			return err
		}
		e.handlePacket(buf)
	}
}

// relayDown forwards every packet arriving on the down-link straight back
// up, unparsed. Downstream replies never need local dispatch; they are
// already addressed to whoever originated the request up the chain.
func (e *Engine) relayDown(errCh chan<- error) {
	buf := make([]byte, wire.Size)
	for {
		if err := e.down.Recv(buf); err != nil {
			errCh <- err
			return
		}
		if err := e.up.Send(buf); err != nil {
			errCh <- err
			return
		}
	}
}

// handlePacket decodes one up-link frame and dispatches it. buf is
// reused by the caller on the next iteration, so nothing here may retain
// it past return.
func (e *Engine) handlePacket(buf []byte) {
	valid := wire.Verify(buf)

	p, err := wire.Parse(buf)
	if err != nil {
		e.log.Printf("chain: malformed frame: %v", err)
		return
	}
	p.Pic++

	if !valid {
		if e.metrics != nil {
			e.metrics.IncChecksumFailure()
		}
		p.Command = wire.ERR
		p.Options = 1
		e.sendUp(&p)
		return
	}

	if e.metrics != nil {
		e.metrics.IncPacket(p.Command)
	}

	switch p.Command {
	case wire.PING:
		e.handlePing(&p)
	case wire.READ:
		e.handleRead(&p)
	case wire.WRITE:
		e.handleWrite(&p)
	case wire.SENSORS:
		e.handleSensors(&p)
	case wire.LOAD:
		e.handleLoad(&p)
	case wire.EXEC:
		e.handleExec(&p)
	case wire.RETR:
		e.handleRetr(&p)
	default:
		// ERR, ACK, or anything else is not supposed to arrive from
		// upstream; bounce it back up unchanged.
		e.sendUp(&p)
	}
}

func (e *Engine) handlePing(p *wire.Packet) {
	switch p.Options {
	case wire.PingOwn:
		if p.UIDMatches(e.uid) {
			p.Options = uint32(e.surface.Size())
			p.Command = wire.ACK
			e.sendUp(p)
		} else {
			e.sendDown(p)
		}

	case wire.PingAll:
		p.UID = e.uid

		ack := *p
		ack.Options = uint32(e.surface.Size())
		ack.Command = wire.ACK
		e.sendUp(&ack)

		p.Command = wire.PING
		p.Options = wire.PingAll
		e.sendDown(p)
	}
}

func (e *Engine) handleRead(p *wire.Packet) {
	if !p.UIDMatches(e.uid) {
		e.sendDown(p)
		return
	}
	if err := e.surface.ReadBlock(int(p.Options), p.Data[:]); err != nil {
		e.log.Printf("chain: READ: %v", err)
	}
	p.Command = wire.ACK
	e.sendUp(p)
}

func (e *Engine) handleWrite(p *wire.Packet) {
	if !p.UIDMatches(e.uid) {
		e.sendDown(p)
		return
	}
	if err := e.surface.WriteBlock(int(p.Options), p.Data[:]); err != nil {
		e.log.Printf("chain: WRITE: %v", err)
	}
	p.Command = wire.ACK
	e.sendUp(p)
}

func (e *Engine) handleSensors(p *wire.Packet) {
	if !p.UIDMatches(e.uid) {
		e.sendDown(p)
		return
	}

	temp, vdd := e.latch.Temp(), e.latch.Vdd()

	switch p.Options {
	case wire.SensorsAll:
		putU16(p.Data[0:2], e.cal.Temp110Cal)
		putU16(p.Data[2:4], e.cal.Temp30Cal)
		putU16(p.Data[4:6], temp)
		putU16(p.Data[6:8], e.cal.VDDCal)
		putU16(p.Data[8:10], vdd)
	case wire.SensorsTemp:
		putU16(p.Data[0:2], e.cal.Temp110Cal)
		putU16(p.Data[2:4], e.cal.Temp30Cal)
		putU16(p.Data[4:6], temp)
	case wire.SensorsVdd:
		putU16(p.Data[0:2], e.cal.VDDCal)
		putU16(p.Data[2:4], vdd)
	}

	p.Command = wire.ACK
	e.sendUp(p)
}

func (e *Engine) handleLoad(p *wire.Packet) {
	if !p.UIDMatches(e.uid) {
		e.sendDown(p)
		return
	}
	if page := e.surface.SrcBufPage(int(p.Options)); page != nil {
		copy(page, p.Data[:])
	} else {
		e.log.Printf("chain: LOAD: page %d out of range", p.Options)
	}
	p.Command = wire.ACK
	e.sendUp(p)
}

func (e *Engine) handleExec(p *wire.Packet) {
	if !p.UIDMatches(e.uid) {
		e.sendDown(p)
		return
	}

	if p.Options == wire.ExecReset {
		e.vm.ResetWritePos()
	}

	reason := e.vm.Eval(sourceString(e.surface.SrcBuf()))
	if e.metrics != nil {
		e.metrics.IncVMExec()
		if reason != forth.AbortOK {
			e.metrics.IncVMAbort(reason)
		}
	}

	p.Options = uint32(reason)
	p.Command = wire.ACK
	e.sendUp(p)
}

func (e *Engine) handleRetr(p *wire.Packet) {
	if !p.UIDMatches(e.uid) {
		e.sendDown(p)
		return
	}
	if page := e.surface.WriteBufPage(int(p.Options)); page != nil {
		copy(p.Data[:], page)
	} else {
		e.log.Printf("chain: RETR: page %d out of range", p.Options)
	}
	p.Command = wire.ACK
	e.sendUp(p)
}

func (e *Engine) sendUp(p *wire.Packet)   { e.send(e.up, p) }
func (e *Engine) sendDown(p *wire.Packet) { e.send(e.down, p) }

func (e *Engine) send(l link.Link, p *wire.Packet) {
	wire.Refresh(p)
	var buf [wire.Size]byte
	if err := wire.Emit(p, buf[:]); err != nil {
		e.log.Printf("chain: emit: %v", err)
		return
	}
	if err := l.Send(buf[:]); err != nil {
		e.log.Printf("chain: send: %v", err)
	}
}

func putU16(dst []byte, v uint16) {
	binary.LittleEndian.PutUint16(dst, v)
}

// sourceString extracts the NUL-terminated program staged in buf, the Go
// equivalent of treating SRC_BUF as a C string.
func sourceString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}
