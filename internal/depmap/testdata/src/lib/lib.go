package lib

import "lib/inner"

func Value() int { return inner.N }
