package render

import (
	"bytes"
	"os/exec"
	"strconv"
	"strings"

	"github.com/matzehuels/dopflow/pkg/errors"
)

// Raster formats that [Convert] can derive from a rendered SVG.
const (
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// rsvgBinary is the librsvg command line converter looked up on PATH.
var rsvgBinary = "rsvg-convert"

// ToPDF converts a Sankey or node-link SVG to a single-page PDF.
func ToPDF(svg []byte) ([]byte, error) {
	return Convert(svg, FormatPDF, 1)
}

// ToPNG converts a Sankey or node-link SVG to PNG. A scale of 2 doubles the
// pixel density of the chart.
func ToPNG(svg []byte, scale float64) ([]byte, error) {
	return Convert(svg, FormatPNG, scale)
}

// Convert rasterizes svg into format using rsvg-convert. Scale only applies to
// PNG output; values <= 0 mean 1.
//
// A missing rsvg-convert binary yields an [errors.ErrCodeUnsupported] error so
// the API can answer 501 while SVG, JSON and DOT exports keep working.
func Convert(svg []byte, format string, scale float64) ([]byte, error) {
	switch format {
	case FormatPNG, FormatPDF:
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "cannot convert svg to %q", format)
	}
	if len(svg) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s export: empty svg", format)
	}

	bin, err := exec.LookPath(rsvgBinary)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnsupported, err,
			"%s export needs rsvg-convert (apt install librsvg2-bin, brew install librsvg)", format)
	}

	args := []string{"-f", format}
	if format == FormatPNG && scale > 0 && scale != 1 {
		args = append(args, "-z", strconv.FormatFloat(scale, 'f', 2, 64))
	}
	cmd := exec.Command(bin, args...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err,
			"rsvg-convert %s: %s", format, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}
