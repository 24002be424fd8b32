package main

import (
	"fmt"
	"strconv"
	"strings"

	"octolabel/internal/notify"
)

// parseVars turns key=value arguments into notification data. Integer and
// float values keep their numeric type so progress gating sees numbers.
func parseVars(args []string) (notify.Data, error) {
	data := notify.Data{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid variable %q (want key=value)", arg)
		}
		if i, err := strconv.Atoi(v); err == nil {
			data[k] = i
		} else if f, err := strconv.ParseFloat(v, 64); err == nil {
			data[k] = f
		} else {
			data[k] = v
		}
	}
	return data, nil
}
