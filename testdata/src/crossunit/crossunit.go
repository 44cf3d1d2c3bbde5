package crossunit

import "panicky"

func direct() {
	//nopanic:deny
	{ // want `panic reachable in deny region of crossunit.direct: panicky.Boom -> panic`
		panicky.Boom()
	}
}

func wrapped() {
	//nopanic:deny
	{ // want `panic reachable in deny region of crossunit.wrapped: panicky.Wrap -> panicky.Boom -> panic`
		panicky.Wrap()
	}
}

func quiet() {
	//nopanic:deny
	{
		_ = panicky.Quiet()
	}
}

func method() {
	var l panicky.Loud
	//nopanic:deny
	{ // want `panic reachable in deny region of crossunit.method: panicky.Loud.Do -> panic`
		l.Do()
	}
}

func callback() {
	panicky.Each(3, func(int) { // want `panic reachable in deny region of panicky.Each: argument of panicky.Each -> panic`
		panic("callback")
	})
}

func quietCallback() {
	panicky.Each(3, func(int) {})
}

func boomCallbacks() {
	panicky.Each(1, func(int) { panicky.Boom() }) // want `panic reachable in deny region of panicky.Each: argument of panicky.Each -> panicky.Boom -> panic`
	panicky.Each(2, func(int) { panicky.Boom() }) // want `panic reachable in deny region of panicky.Each: argument of panicky.Each -> panicky.Boom -> panic`
}
