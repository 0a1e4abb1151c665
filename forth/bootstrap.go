package forth

// stdLib is evaluated once at bootstrap to define every higher-level word
// in terms of the 41 primitives: stack/variable shorthands, control flow,
// and the string-literal word used by LOAD programs. Carried over
// unchanged from the firmware's own bootstrap source.
const stdLib = `
: .. dup . ;
: cr 10 . ;
: br 32 . ;
: !    0 !! ;
: @    0 @@ ;
: ,    0 ,, ;
: #    0 ## ;
: [ 0 compiling ! ; immediate
: ] 1 compiling ! ;
: postpone 1 _postpone ! ; immediate
: 1+ 1 + ;
: 1- 1 - ;
: over 1 pick ;
: +!   dup @ rot + swap ! ;
: inc  1 swap +! ;
: dec  -1 swap +! ;
: <    - <0 ;
: >    swap < ;
: <=   over over >r >r < r> r> = + ;
: >=   swap <= ;
: =0   0 = ;
: not  =0 ;
: !=   = not ;
: here h @ ;
: begin here ; immediate
: again ' jmp , , ; immediate
: until ' jmp0 , , ; immediate
: { ' lit , 0 , ' >r , here ; immediate
: x} ' r> , ' 1+ , ' dup , ' >r , ' = , postpone until ' r> , ' drop , ; immediate
: exe ' lit , here dup , ' >r , ' >r , ' exit , here swap ! ; immediate
: times { >r dup >r exe r> r> dup x} drop drop ;
: if      ' jmp0 , here 999 , ; immediate
: unless  ' not , postpone if ; immediate
: else    ' jmp , here 999 , swap here swap ! ; immediate
: fi      here swap ! ; immediate
: i ' lit , 0 , ' pickr , ; immediate
: j ' lit , 2 , ' pickr , ; immediate
: do ' swap , ' >r , ' >r , here ; immediate
: loop+ ' r> , ' + , ' dup , ' >r , ' lit , 1 , ' pickr , ' > , ' jmp0 , , ' r> , ' drop , ' r> , ' drop , ; immediate
: loop ' lit , 1 , postpone loop+ ;  immediate
: s" compiling @ if ' lits , here 0 , fi here begin key dup 34 = if drop compiling @ if here swap - swap ! else dup here swap - fi exit else , fi again ; immediate
`

// Bootstrap populates a freshly-created VM's dictionary: every primitive
// in opcode order, every user variable, then the standard word library.
// It must run exactly once, before any program is evaluated.
func (vm *VM) Bootstrap() {
	for i := Prim(0); i < primCount; i++ {
		name := primNames[i]
		imm := false
		if name[0] == '_' {
			name = name[1:]
			imm = true
		}

		vm.create(name, flagPrim)
		vm.dictAddOp(i)
		vm.dictAddOp(primExit)
		if imm {
			vm.makeImmediate()
		}
	}

	for i := 0; i < uservarCount; i++ {
		vm.create(uservarNames[i], 0)
		vm.dictAddLit(cell(i))
		vm.dictAddOp(primExit)
	}

	if reason := vm.Eval(stdLib); reason != AbortOK {
		panic("forth: bootstrap word library rejected: " + reason.String())
	}
}
