package gormdb

import (
	"fmt"

	"github.com/solguard/solguard-api/internal/shared/logutil"
)

type logger struct {
	log logutil.Log
}

func (lg logger) Print(values ...interface{}) {
	lg.log.Debugf("sql", "%s", fmt.Sprint(values...))
}
