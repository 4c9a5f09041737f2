package report

const (
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

type palette struct {
	enabled bool
}

func (p palette) red(s string) string {
	if !p.enabled {
		return s
	}
	return colorRed + s + colorReset
}

func (p palette) green(s string) string {
	if !p.enabled {
		return s
	}
	return colorGreen + s + colorReset
}
