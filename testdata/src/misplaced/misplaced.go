package misplaced

//nopanic:deny // want `nopanic:deny directive must precede a top-level block of a function body`
var x = 1

func nested() {
	if x > 0 {
		//nopanic:deny // want `nopanic:deny directive must precede a top-level block of a function body`
		{
			x++
		}
	}
}

func stray() {
	//nopanic:allow // want `nopanic:allow directive must precede a block`
	x++
}

func fine() {
	//nopanic:allow
	{
		x++
	}
}

func controlFlow() {
	//nopanic:deny
	{ // want `panic reachable in deny region of misplaced.controlFlow: panic`
		//nopanic:allow // want `nopanic:allow directive must precede a block`
		if x > 0 {
			panic("x")
		}
	}
}
