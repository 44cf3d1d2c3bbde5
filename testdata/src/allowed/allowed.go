package allowed

func sink() {
	panic("boom")
}

func guarded() {
	//nopanic:allow - validated input
	{ // want `panic check suppressed in deny region of allowed.region: allowed.guarded \(validated input\)`
		sink()
	}
}

func region() {
	//nopanic:deny
	{
		guarded()
	}
}
