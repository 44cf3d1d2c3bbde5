package recursion

func even(n int) bool {
	if n == 0 {
		return true
	}

	return odd(n - 1)
}

func odd(n int) bool {
	if n == 0 {
		return false
	}

	return even(n - 1)
}

func spin(n int) {
	if n > 100 {
		panic("too deep")
	}
	spin(n + 1)
}

func loop() {
	//nopanic:deny
	{
		_ = even(4)
	}
}

func deep() {
	//nopanic:deny
	{ // want `panic reachable in deny region of recursion.deep: recursion.spin -> panic`
		spin(0)
	}
}
