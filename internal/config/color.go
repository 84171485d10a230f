package config

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseHexColor parses #rgb or #rrggbb into an opaque color.
func ParseHexColor(raw string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return color.RGBA{}, fmt.Errorf("expected #rgb or #rrggbb, got %q", raw)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("expected #rgb or #rrggbb, got %q", raw)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
