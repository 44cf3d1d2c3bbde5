package basic

import "os"

func sink() {
	panic("boom")
}

func helper() {
	sink()
}

func safe() int {
	return 1
}

func direct() {
	//nopanic:deny
	{ // want `panic reachable in deny region of basic.direct: panic`
		panic("direct")
	}
}

func chain() {
	//nopanic:deny
	{ // want `panic reachable in deny region of basic.chain: basic.helper -> basic.sink -> panic`
		helper()
	}
}

func exits() {
	//nopanic:deny
	{ // want `panic reachable in deny region of basic.exits: os.Exit`
		os.Exit(1)
	}
}

func clean() {
	//nopanic:deny
	{
		_ = safe()
	}
}

func twice() {
	//nopanic:deny
	{ // want `deny region of basic.twice: panic` `deny region of basic.twice: basic.sink -> panic`
		panic("first")
		sink()
	}
}

// Code outside deny regions is not checked.
func outside() {
	sink()
}
