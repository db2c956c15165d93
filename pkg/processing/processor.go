// Package processing covers image IO and pixel-level operations: decode
// with WebP fallback, padding, fitting, cropping, model payload
// encoding, and the debug overlay.
package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/OscarKing888/BirdStamp-sub000/pkg/geometry"
)

// LoadImage loads an image from a file path with WebP support.
func LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	low := strings.ToLower(path)
	if strings.Contains(low, ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
	}
	if _, err := f.Seek(0, 0); err == nil {
		if img, _, err := image.Decode(f); err == nil {
			return img, nil
		}
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// LoadImageSmart loads an image from either a file path or an HTTP URL.
func LoadImageSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return loadImageFromURL(source)
	}
	return LoadImage(source)
}

func loadImageFromURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}
	req, err := http.NewRequest("GET", imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", "BirdStamp/1.0 (+https://github.com/OscarKing888/BirdStamp-sub000)")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %v", err)
	}
	return decodeImageFromBytes(imageData)
}

func decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// SaveImage writes an image, choosing the codec from the file extension.
// Unknown extensions fall back to JPEG.
func SaveImage(img image.Image, path string, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = 92
	}
	switch strings.TrimPrefix(strings.ToLower(pathExt(path)), ".") {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

func pathExt(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i:]
	}
	return ""
}

// PrepareImageForModel shrinks the image to the given long edge and
// returns base64-encoded JPEG bytes for the vision backends.
func PrepareImageForModel(img image.Image, maxDim int) (string, error) {
	img = ResizeFit(img, maxDim)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ResizeFit downscales so the long edge is at most maxLongEdge; smaller
// images pass through untouched.
func ResizeFit(img image.Image, maxLongEdge int) image.Image {
	if maxLongEdge <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxLongEdge && h <= maxLongEdge {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxLongEdge, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxLongEdge, imaging.Lanczos)
}

// PadImage extends the canvas by the given per-edge amounts filled with
// the fill color. Negative pads are treated as zero.
func PadImage(img image.Image, top, bottom, left, right int, fill color.Color) *image.NRGBA {
	top = maxInt(0, top)
	bottom = maxInt(0, bottom)
	left = maxInt(0, left)
	right = maxInt(0, right)
	b := img.Bounds()
	if top == 0 && bottom == 0 && left == 0 && right == 0 {
		return imaging.Clone(img)
	}
	canvas := imaging.New(b.Dx()+left+right, b.Dy()+top+bottom, fill)
	return imaging.Paste(canvas, img, image.Pt(left, top))
}

// CropByPixelBox crops to the given pixel rectangle, clipped to the
// image bounds.
func CropByPixelBox(img image.Image, box geometry.PixelBox) (image.Image, error) {
	rect := image.Rect(box.Left, box.Top, box.Right, box.Bottom).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("empty crop rectangle")
	}
	return imaging.Crop(img, rect), nil
}

// CropByNormalizedBox crops to a normalized box; a nil box returns the
// image unchanged.
func CropByNormalizedBox(img image.Image, box *geometry.Box) (image.Image, error) {
	if box == nil {
		return img, nil
	}
	b := img.Bounds()
	pixels := geometry.ToPixels(box, b.Dx(), b.Dy(), true)
	if pixels == nil {
		return img, nil
	}
	return CropByPixelBox(img, *pixels)
}

// DebugOverlay draws the focus box (blue), bird box (green), crop box
// (gold), and the anchor crosshair (red) onto a copy of the image.
func DebugOverlay(img image.Image, focusBox, birdBox, cropBox *geometry.Box, anchorX, anchorY float64) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	blue := color.NRGBA{0, 170, 255, 255}
	green := color.NRGBA{0, 255, 0, 255}
	gold := color.NRGBA{255, 204, 0, 255}
	red := color.NRGBA{255, 0, 0, 255}
	stroke := maxInt(2, int(0.004*float64(minInt(w, h))+0.5)) // ~0.4% of min side
	cross := maxInt(4, int(0.01*float64(minInt(w, h))+0.5))   // ~1% of min side

	drawBox(nrgba, focusBox, w, h, blue, stroke)
	drawBox(nrgba, birdBox, w, h, green, stroke)
	drawBox(nrgba, cropBox, w, h, gold, stroke)

	px := int(geometry.Clamp01(anchorX)*float64(w) + 0.5)
	py := int(geometry.Clamp01(anchorY)*float64(h) + 0.5)
	drawHLine(nrgba, py, px-cross, px+cross, red)
	drawVLine(nrgba, px, py-cross, py+cross, red)

	return nrgba
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func drawBox(img *image.NRGBA, box *geometry.Box, w, h int, c color.NRGBA, stroke int) {
	if box == nil {
		return
	}
	pixels := geometry.ToPixels(box, w, h, false)
	if pixels == nil {
		return
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, pixels.Top+s, pixels.Left, pixels.Right, c)
		drawHLine(img, pixels.Bottom-1-s, pixels.Left, pixels.Right, c)
		drawVLine(img, pixels.Left+s, pixels.Top, pixels.Bottom, c)
		drawVLine(img, pixels.Right-1-s, pixels.Top, pixels.Bottom, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
