package higherorder

func each(items []int, f func(int)) {
	//nopanic:deny
	{ // want `deny region of higherorder.each: argument of higherorder.each -> panic` `deny region of higherorder.each: argument of higherorder.each -> higherorder.fail -> panic`
		for _, it := range items {
			f(it)
		}
	}
}

func fail(int) {
	panic("fail")
}

func use() {
	each([]int{1}, func(int) {
		panic("callback")
	})
	each(nil, fail)
	each(nil, func(int) {})
}
