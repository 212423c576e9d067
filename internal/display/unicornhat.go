//go:build ws281x

package display

import (
	"sync"

	ws2811 "github.com/rpi-ws281x/rpi-ws281x-go"

	"github.com/rewired-gh/hubbub/internal/models"
)

const (
	unicornGPIO = 18
	unicornLeds = models.Rows * models.Cols
)

// UnicornHAT drives a Pimoroni Unicorn HAT over the ws281x PWM interface
type UnicornHAT struct {
	mu  sync.Mutex
	dev *ws2811.WS2811
	buf buffer
}

// NewUnicornHAT initializes the LED strip. Brightness is applied in software
// so it can change after Init.
func NewUnicornHAT() (Driver, error) {
	opt := ws2811.DefaultOptions
	opt.Channels[0].GpioPin = unicornGPIO
	opt.Channels[0].LedCount = unicornLeds
	opt.Channels[0].Brightness = 255

	dev, err := ws2811.MakeWS2811(&opt)
	if err != nil {
		return nil, err
	}
	if err := dev.Init(); err != nil {
		return nil, err
	}
	return &UnicornHAT{dev: dev, buf: newBuffer()}, nil
}

// ledIndex maps matrix coordinates to the HAT's serpentine wiring
func ledIndex(x, y int) int {
	if x%2 == 0 {
		return x*models.Cols + (models.Cols - 1 - y)
	}
	return x*models.Cols + y
}

func (u *UnicornHAT) SetPixel(x, y int, c models.RGB) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.buf.set(x, y, c)
}

func (u *UnicornHAT) Clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.buf.clear()
}

func (u *UnicornHAT) SetBrightness(v float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.buf.setBrightness(v)
}

func (u *UnicornHAT) SetRotation(deg int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.buf.setRotation(deg)
}

func (u *UnicornHAT) Show() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	frame := u.buf.output()
	leds := u.dev.Leds(0)
	for y := 0; y < models.Rows; y++ {
		for x := 0; x < models.Cols; x++ {
			c := frame.At(x, y)
			leds[ledIndex(x, y)] = uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
		}
	}
	if err := u.dev.Render(); err != nil {
		return err
	}
	return u.dev.Wait()
}

// Close blanks the matrix and releases the device
func (u *UnicornHAT) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	leds := u.dev.Leds(0)
	for i := range leds {
		leds[i] = 0
	}
	err := u.dev.Render()
	u.dev.Fini()
	return err
}
