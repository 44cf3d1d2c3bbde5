package generic

type Runner interface {
	Run()
}

type Bad struct{}

func (Bad) Run() {
	panic("bad")
}

type Good struct{}

func (Good) Run() {}

func Do[T Runner](r T) {
	r.Run()
}

func good() {
	//nopanic:deny
	{
		Do(Good{})
	}
}

func bad() {
	//nopanic:deny
	{ // want `panic reachable in deny region of generic.bad: generic.Do -> generic.Bad.Run -> panic`
		Do(Bad{})
	}
}
