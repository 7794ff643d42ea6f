//go:build linux

package indicator

import (
	"github.com/warthog618/go-gpiocdev"
)

const consumer = "cardbridge"

func requestLine(chip string, offset int) (line, error) {
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, err
	}
	return l, nil
}
