package main

import (
	"fmt"

	"example.com/basic/internal/risky"
)

func main() {
	handle(1)
	tolerated(2)
}

func handle(n int) {
	//nopanic:deny
	{
		fmt.Println(risky.Divide(10, n))
	}
}

func tolerated(n int) {
	//nopanic:deny
	{
		fmt.Println(risky.Checked(10, n))
	}
}
