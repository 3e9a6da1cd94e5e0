package tasks

import "errors"

var ErrUnknownTask = errors.New("unknown task id")
