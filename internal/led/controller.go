package led

// Controller switches LEDs by their sysfs name, e.g. "ACT" or "input3::numlock".
type Controller interface {
	Set(name string, on bool) error
}
