package suppress

func sink() {
	panic("boom")
}

func guarded() {
	//nopanic:allow - checked by the caller
	{
		sink()
	}
}

//nopanic:allow
func trusted() {
	sink()
}

func region() {
	//nopanic:deny
	{
		guarded()
		trusted()
	}
}

func partly() {
	//nopanic:deny
	{ // want `panic reachable in deny region of suppress.partly: suppress.sink -> panic`
		guarded()
		sink()
	}
}
