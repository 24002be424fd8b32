//go:build !sqlite
// +build !sqlite

package settings

import (
	"errors"

	logx "octolabel/pkg/logx"
)

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	_ = cfg
	_ = log
	return nil, errors.New("sqlite settings store not built: build with -tags sqlite")
}
