// Package forth implements the embedded stack-based concatenative
// bytecode interpreter that services EXEC/LOAD/RETR requests: dictionary,
// data and return stacks, inner interpreter, the primitive set, and the
// bootstrap word library.
package forth

import "encoding/binary"

const (
	dictSize   = 4096
	dStackSize = 32
	rStackSize = 32
)

type inputState int

const (
	inputInterpret inputState = iota
	inputPassChar
	inputPassWord
)

// VM holds one node's complete interpreter state: dictionary, stacks, the
// lexer's pending-word buffer, and the output cursor into the host's
// result buffer. A VM is not safe for concurrent use; the protocol engine
// that owns it is already single-threaded by design (see the chain
// package).
type VM struct {
	dict    [dictSize]byte
	dstack  [dStackSize]cell
	rstack  [rStackSize]cell
	dsp     int
	rsp     int
	ip      addr
	uservar [uservarCount]cell

	inputState inputState
	lexBuf     []byte

	host     Host
	writePos int
}

// New creates a VM wired to host for its device primitives, with its
// dictionary reset but not yet bootstrapped. Call Bootstrap before
// evaluating any source.
func New(host Host) *VM {
	vm := &VM{host: host}
	vm.uservar[uservarHere] = cell(uservarCount * 4)
	vm.uservar[uservarLatest] = 0
	vm.uservar[uservarTrace] = 0
	vm.uservar[uservarCompiling] = 0
	vm.dsp = 0
	vm.rsp = 0
	return vm
}

// ResetWritePos zeroes the VM's output cursor, as EXEC options=1 requires
// before evaluating.
func (vm *VM) ResetWritePos() { vm.writePos = 0 }

// WritePos reports the VM's current output cursor, for metrics reporting.
func (vm *VM) WritePos() int { return vm.writePos }

func (vm *VM) push(v cell) {
	if vm.dsp >= dStackSize {
		abort(AbortDStackOverrun)
	}
	vm.dstack[vm.dsp] = v
	vm.dsp++
}

func (vm *VM) pop() cell {
	if vm.dsp <= 0 {
		abort(AbortDStackUnderrun)
	}
	vm.dsp--
	return vm.dstack[vm.dsp]
}

func (vm *VM) pick(n int) cell {
	if n < 0 || n >= vm.dsp {
		abort(AbortDStackUnderrun)
	}
	return vm.dstack[vm.dsp-n-1]
}

func (vm *VM) pushR(v cell) {
	if vm.rsp >= rStackSize {
		abort(AbortRStackOverrun)
	}
	vm.rstack[vm.rsp] = v
	vm.rsp++
}

func (vm *VM) popR() cell {
	if vm.rsp <= 0 {
		abort(AbortRStackUnderrun)
	}
	vm.rsp--
	return vm.rstack[vm.rsp]
}

func (vm *VM) pickR(n int) cell {
	if n < 0 || n >= vm.rsp {
		abort(AbortRStackUnderrun)
	}
	return vm.rstack[vm.rsp-n-1]
}

// peek reads either a user variable (addr < uservarCount) or a typed
// dictionary cell, returning the decoded value and the number of bytes
// the dictionary read consumed (always 1 for a user variable).
func (vm *VM) peek(at addr, size memSize) (cell, int) {
	if at >= 0 && at < uservarCount {
		return vm.uservar[at], 1
	}
	return vm.dictGetCellTyped(at, size)
}

func (vm *VM) poke(at addr, v cell, size memSize) {
	if at >= 0 && at < uservarCount {
		vm.uservar[at] = v
		return
	}
	vm.dictPutCellTyped(at, v, size)
}

// run is the inner interpreter: it threads through dictionary cells
// starting at vm.ip until ip returns to the sentinel 0. input carries
// whatever word or character the lexer just fed in, but only the first
// primitive dispatched in this call sees it — everything after reads nil,
// exactly as the firmware's run() clears its local `input` after the
// first iteration.
func (vm *VM) run(input []byte) {
	for vm.ip != 0 {
		ipOrg := vm.ip
		d, n := vm.dictGetCell(vm.ip)
		code := int(d)
		vm.ip += n

		if code <= int(primCount) {
			vm.doPrim(Prim(code), input)

			// A deferred-input primitive switched modes: rewind ip so
			// the same cell is re-dispatched once more input arrives.
			if vm.inputState != inputInterpret {
				vm.ip = ipOrg
				return
			}
		} else {
			vm.pushR(cell(vm.ip))
			vm.ip = code
		}

		input = nil
	}
}

// execute runs the word whose body starts at target to completion.
func (vm *VM) execute(target addr) {
	vm.ip = target
	vm.rsp = 0
	vm.pushR(0)
	vm.run(nil)
}

// Eval evaluates a NUL-terminated (or plain Go string) program, returning
// AbortOK on a clean finish or the reason any primitive aborted with. An
// abort resets the data stack, return stack and compile flag before
// returning, matching the firmware's setjmp recovery in zf_eval.
func (vm *VM) Eval(src string) (reason AbortReason) {
	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(abortSignal)
			if !ok {
				panic(r)
			}
			vm.uservar[uservarCompiling] = 0
			vm.rsp = 0
			vm.dsp = 0
			reason = sig.reason
		}
	}()

	i := 0
	for {
		var c byte
		if i < len(src) {
			c = src[i]
		}
		vm.handleChar(c)
		if c == 0 {
			return AbortOK
		}
		i++
	}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}

func (vm *VM) handleChar(c byte) {
	if vm.inputState == inputPassChar {
		vm.inputState = inputInterpret
		vm.run([]byte{c})
		return
	}

	if c != 0 && !isSpace(c) {
		if len(vm.lexBuf) < 31 {
			vm.lexBuf = append(vm.lexBuf, c)
		}
		return
	}

	if len(vm.lexBuf) > 0 {
		word := string(vm.lexBuf)
		vm.lexBuf = vm.lexBuf[:0]
		vm.handleWord(word)
	}
}

func (vm *VM) handleWord(word string) {
	if vm.inputState == inputPassWord {
		vm.inputState = inputInterpret
		vm.run([]byte(word))
		return
	}

	w, c, found := vm.findWord(word)
	if found {
		d, _ := vm.dictGetCell(w)
		flags := int(d)

		compiling := vm.uservar[uservarCompiling] != 0
		postponed := vm.uservar[uservarPostpone] != 0

		if compiling && (postponed || flags&flagImmediate == 0) {
			if flags&flagPrim != 0 {
				op, _ := vm.dictGetCell(c)
				vm.dictAddCell(op)
			} else {
				vm.dictAddCell(cell(c))
			}
			vm.uservar[uservarPostpone] = 0
		} else {
			vm.execute(c)
		}
		return
	}

	v, err := parseNum(word)
	if err != nil {
		abort(AbortNotAWord)
	}

	if vm.uservar[uservarCompiling] != 0 {
		vm.dictAddLit(v)
	} else {
		vm.push(v)
	}
}

// writeCell stores v into the host's result buffer at the current
// write_pos and advances the cursor, wrapping at the buffer's cell
// capacity — the emit primitive's only job.
func (vm *VM) writeCell(v cell) {
	buf := vm.host.WriteBuf()
	cells := len(buf) / 4
	if cells == 0 {
		abort(AbortOutsideMem)
	}
	binary.LittleEndian.PutUint32(buf[vm.writePos*4:], uint32(v))
	vm.writePos++
	if vm.writePos >= cells {
		vm.writePos = 0
	}
}
