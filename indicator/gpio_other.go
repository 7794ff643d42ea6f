//go:build !linux

package indicator

func requestLine(_ string, _ int) (line, error) {
	return nil, ErrUnsupportedPlatform
}
