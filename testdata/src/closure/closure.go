package closure

func run() {
	//nopanic:deny
	{ // want `panic reachable in deny region of closure.run: panic`
		f := func() {
			panic("inner")
		}
		_ = f
	}
}

func quiet() {
	//nopanic:deny
	{
		f := func() int {
			return 1
		}
		_ = f
	}
}
