//go:build !ws281x

package display

import "errors"

// NewUnicornHAT is unavailable without the ws281x build tag
func NewUnicornHAT() (Driver, error) {
	return nil, errors.New("unicornhat driver requires building with -tags ws281x")
}
