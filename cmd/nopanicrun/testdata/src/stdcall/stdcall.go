package stdcall

import "errors"

func handle() error {
	var err error
	//nopanic:deny
	{
		err = errors.New("failed")
	}

	return err
}
