package simnet

// Must0 panics in case of error.
func Must0(err error) {
	if err != nil {
		panic(err)
	}
}
