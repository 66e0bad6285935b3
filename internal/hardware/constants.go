package hardware

const (
	DefaultChip     = "gpiochip0"
	DefaultConsumer = "led-service"

	DefaultPwmChip = "/sys/class/pwm/pwmchip0"

	// Generator parameters of the original board: 125 MHz / 4 / 62500 = 500 Hz.
	DefaultBaseClockHz = 125_000_000
	DefaultDivider     = 4
	DefaultWrap        = 62500
)

// Default line offsets: three buttons (active low, pulled up) and four LEDs.
var (
	DefaultButtonLines = []int{14, 15, 16}
	DefaultLedLines    = []int{18, 19, 20, 21}
)
