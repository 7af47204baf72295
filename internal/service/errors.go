package service

import "errors"

// errScrollDone stops a store scroll early without signalling failure.
var errScrollDone = errors.New("scroll done")
