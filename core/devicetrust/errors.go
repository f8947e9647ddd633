package devicetrust

import "errors"

var (
	ErrEmptyDeviceID = errors.New("device id must not be empty")
	ErrEmptyAccount  = errors.New("account id must not be empty")
)
