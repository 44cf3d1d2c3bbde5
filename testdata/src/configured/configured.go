package configured

import "os"

func halt() {}

func region() {
	//nopanic:deny
	{ // want `panic reachable in deny region of configured.region: configured.halt`
		halt()
	}
}

// os.Exit is not a sink with the panic preset.
func exits() {
	//nopanic:deny
	{
		os.Exit(0)
	}
}
