package loadme

import "fmt"

func Guarded() {
	//nopanic:deny
	{
		fmt.Println("hello")
	}
}
