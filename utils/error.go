package utils

import "errors"

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorInvalidFarmId  = errors.New("invalid farm id")
)
