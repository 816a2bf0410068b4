package value

import "strconv"

func itoaInt32(i int32) string {
	return strconv.FormatInt(int64(i), 10)
}

func ftoaDouble(d float64) string {
	return strconv.FormatFloat(d, 'g', -1, 64)
}

func hex16(u uint64) string {
	s := strconv.FormatUint(u, 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}
