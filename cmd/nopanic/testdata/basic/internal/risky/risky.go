package risky

// Divide panics when d is zero.
func Divide(n, d int) int {
	if d == 0 {
		panic("division by zero")
	}

	return n / d
}

// Checked never panics for a zero divisor.
func Checked(n, d int) int {
	//nopanic:allow - divisor validated first
	{
		if d == 0 {
			return 0
		}

		return Divide(n, d)
	}
}
