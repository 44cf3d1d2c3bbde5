package app

import "lib"

func handle() {
	//nopanic:deny
	{
		lib.Boom()
	}
}

func guarded() {
	//nopanic:deny
	{
		lib.Guarded()
	}
}
