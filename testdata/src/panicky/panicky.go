package panicky

func Boom() {
	panic("boom")
}

func Quiet() int {
	return 0
}

func Wrap() {
	Boom()
}

// Each calls f n times.
func Each(n int, f func(int)) {
	//nopanic:deny
	{
		for i := 0; i < n; i++ {
			f(i)
		}
	}
}

type Loud struct{}

func (Loud) Do() {
	panic("loud")
}
