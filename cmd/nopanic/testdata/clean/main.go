package main

import "fmt"

func main() {
	//nopanic:deny
	{
		fmt.Println(add(1, 2))
	}
}

func add(a, b int) int {
	return a + b
}
