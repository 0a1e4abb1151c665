package forth

// doPrim executes one primitive opcode. input is non-nil only on the
// first dispatch within the current run() call and only matters to the
// deferred-input primitives (:, ', comment, key) that need to see the
// word or character the lexer just produced.
func (vm *VM) doPrim(op Prim, input []byte) {
	switch op {

	case primExit:
		vm.ip = addr(vm.popR())

	case primLit:
		d, n := vm.dictGetCell(vm.ip)
		vm.ip += n
		vm.push(d)

	case primLtz:
		if vm.pop() < 0 {
			vm.push(1)
		} else {
			vm.push(0)
		}

	case primCol:
		if input == nil {
			vm.inputState = inputPassWord
		} else {
			vm.create(string(input), 0)
			vm.uservar[uservarCompiling] = 1
		}

	case primSemicol:
		vm.dictAddOp(primExit)
		vm.uservar[uservarCompiling] = 0

	case primAdd:
		d1 := vm.pop()
		d2 := vm.pop()
		vm.push(d1 + d2)

	case primSub:
		d1 := vm.pop()
		d2 := vm.pop()
		vm.push(d2 - d1)

	case primMul:
		d1 := vm.pop()
		d2 := vm.pop()
		vm.push(d1 * d2)

	case primDiv:
		d1 := vm.pop()
		if d1 == 0 {
			abort(AbortDivisionByZero)
		}
		d2 := vm.pop()
		vm.push(d2 / d1)

	case primMod:
		d1 := vm.pop()
		if d1 == 0 {
			abort(AbortDivisionByZero)
		}
		d2 := vm.pop()
		vm.push(d2 % d1)

	case primDrop:
		vm.pop()

	case primDup:
		d1 := vm.pop()
		vm.push(d1)
		vm.push(d1)

	case primPickr:
		vm.push(vm.pickR(int(vm.pop())))

	case primImmediate:
		vm.makeImmediate()

	case primPeek:
		size := vm.pop()
		at := vm.pop()
		v, _ := vm.peek(addr(at), memSize(size))
		vm.push(v)

	case primPoke:
		size := vm.pop()
		at := vm.pop()
		v := vm.pop()
		vm.poke(addr(at), v, memSize(size))

	case primSwap:
		d1 := vm.pop()
		d2 := vm.pop()
		vm.push(d1)
		vm.push(d2)

	case primRot:
		d1 := vm.pop()
		d2 := vm.pop()
		d3 := vm.pop()
		vm.push(d2)
		vm.push(d1)
		vm.push(d3)

	case primJmp:
		target, n := vm.dictGetCell(vm.ip)
		vm.ip += n
		vm.ip = addr(target)

	case primJmp0:
		target, n := vm.dictGetCell(vm.ip)
		vm.ip += n
		if vm.pop() == 0 {
			vm.ip = addr(target)
		}

	case primTick:
		if vm.uservar[uservarCompiling] != 0 {
			v, n := vm.dictGetCell(vm.ip)
			vm.ip += n
			vm.push(v)
		} else if input != nil {
			_, c, found := vm.findWord(string(input))
			if !found {
				abort(AbortNotAWord)
			}
			vm.push(cell(c))
		} else {
			vm.inputState = inputPassWord
		}

	case primComma:
		size := vm.pop()
		v := vm.pop()
		vm.dictAddCellTyped(v, memSize(size))

	case primComment:
		if input == nil || input[0] != ')' {
			vm.inputState = inputPassChar
		}

	case primPushr:
		vm.pushR(vm.pop())

	case primPopr:
		vm.push(vm.popR())

	case primEqual:
		d1 := vm.pop()
		d2 := vm.pop()
		if d1 == d2 {
			vm.push(1)
		} else {
			vm.push(0)
		}

	case primPick:
		vm.push(vm.pick(int(vm.pop())))

	case primLen:
		size := vm.pop()
		at := vm.pop()
		_, n := vm.peek(addr(at), memSize(size))
		vm.push(cell(n))

	case primKey:
		if input == nil {
			vm.inputState = inputPassChar
		} else {
			vm.push(cell(input[0]))
		}

	case primLits:
		n, nn := vm.dictGetCell(vm.ip)
		vm.ip += nn
		vm.push(cell(vm.ip))
		vm.push(n)
		vm.ip += addr(n)

	case primAnd:
		vm.push(vm.pop() & vm.pop())

	case primOr:
		vm.push(vm.pop() | vm.pop())

	case primXor:
		vm.push(vm.pop() ^ vm.pop())

	case primShl:
		d1 := vm.pop()
		d2 := vm.pop()
		vm.push(d2 << uint(d1))

	case primShr:
		d1 := vm.pop()
		d2 := vm.pop()
		vm.push(d2 >> uint(d1))

	case primDevRead:
		at := vm.pop()
		b, err := vm.host.ReadByte(int(at))
		if err != nil {
			abort(AbortOutsideMem)
		}
		vm.push(cell(b))

	case primEmit:
		vm.writeCell(vm.pop())

	case primDevWrite:
		at := vm.pop()
		v := vm.pop()
		if err := vm.host.WriteByte(int(at), byte(v)); err != nil {
			abort(AbortOutsideMem)
		}

	case primDevTemp:
		vm.push(cell(vm.host.Temp()))

	case primDevVdd:
		vm.push(cell(vm.host.Vdd()))

	default:
		abort(AbortInternalError)
	}
}
