package app

import (
	"fmt"

	"lib"
)

func Run() {
	//nopanic:deny
	{
		fmt.Println(lib.Value())
	}
}
