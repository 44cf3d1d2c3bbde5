package mustsink

import "errors"

func must(err error) {
	if err != nil {
		println(err.Error())
	}
}

func check() error {
	return errors.New("failed")
}

func region() {
	//nopanic:deny
	{ // want `panic reachable in deny region of mustsink.region: mustsink.must`
		must(check())
	}
}
