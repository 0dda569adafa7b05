package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	// Registered decoders for avatar formats the server serves.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/webp"
)

const (
	// maxImageBody caps a fetched avatar.
	maxImageBody = 8 << 20
	// svgDefaultSize is used when an SVG declares no viewBox.
	svgDefaultSize = 160
	// svgMaxSize bounds the rasterized side of an SVG avatar.
	svgMaxSize = 1024
)

// ErrUnsupportedImage is returned for avatar payloads no registered decoder
// or the SVG rasterizer understands.
var ErrUnsupportedImage = errors.New("unsupported image format")

// FetchImage loads and decodes the avatar at ref. Relative references are
// resolved against the server root, and data: URLs are decoded inline.
func (c *Client) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	if strings.HasPrefix(ref, "data:") {
		raw, mediaType, err := decodeDataURL(ref)
		if err != nil {
			return nil, err
		}
		if strings.Contains(mediaType, "svg") {
			return decodeSVG(bytes.NewReader(raw))
		}
		return decodeImage(bytes.NewReader(raw))
	}

	abs, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, abs, nil)
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", abs, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", abs, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: http.MethodGet, Path: abs, Code: resp.StatusCode}
	}
	body := io.LimitReader(resp.Body, maxImageBody)
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "svg") {
		img, err := decodeSVG(body)
		if err != nil {
			return nil, fmt.Errorf("image %s: %w", abs, err)
		}
		return img, nil
	}
	return decodeImage(body)
}

// rgbaPaint matches fill or stroke attributes painted with rgba(), which
// oksvg does not parse.
var rgbaPaint = regexp.MustCompile(`(fill|stroke)=['"]rgba\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*,\s*([0-9.]+)\s*\)['"]`)

// rewriteRGBA turns fill='rgba(r,g,b,a)' into fill='#rrggbb' fill-opacity='a'.
func rewriteRGBA(doc []byte) []byte {
	return rgbaPaint.ReplaceAllFunc(doc, func(m []byte) []byte {
		sub := rgbaPaint.FindSubmatch(m)
		attr := string(sub[1])
		hex := make([]byte, 0, 7)
		hex = append(hex, '#')
		for _, c := range sub[2:5] {
			n, _ := strconv.Atoi(string(c))
			hex = fmt.Appendf(hex, "%02x", min(n, 255))
		}
		return fmt.Appendf(nil, "%s='%s' %s-opacity='%s'", attr, hex, attr, sub[5])
	})
}

// decodeSVG rasterizes an SVG document at its viewBox size.
func decodeSVG(r io.Reader) (image.Image, error) {
	doc, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("svg: %w", err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(rewriteRGBA(doc)), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("svg: %v: %w", err, ErrUnsupportedImage)
	}
	w, h := svgSide(icon.ViewBox.W), svgSide(icon.ViewBox.H)
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return img, nil
}

func svgSide(v float64) int {
	switch {
	case v <= 0:
		return svgDefaultSize
	case v > svgMaxSize:
		return svgMaxSize
	}
	return int(v + 0.5)
}

func decodeImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedImage
		}
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// decodeDataURL splits "data:<type>[;base64],<payload>".
func decodeDataURL(ref string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, "", errors.New("data url: missing payload separator")
	}
	mediaType := meta
	isBase64 := false
	if strings.HasSuffix(meta, ";base64") {
		mediaType = strings.TrimSuffix(meta, ";base64")
		isBase64 = true
	}
	if isBase64 {
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, mediaType, fmt.Errorf("data url: %w", err)
		}
		return raw, mediaType, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, mediaType, fmt.Errorf("data url: %w", err)
	}
	return []byte(text), mediaType, nil
}
