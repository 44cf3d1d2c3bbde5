package lib

func Boom() {
	panic("boom")
}

func Guarded() {
	//nopanic:allow - never called with bad input
	{
		Boom()
	}
}
