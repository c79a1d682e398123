package arbor

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageEntry is a cached image load. Entries are handed out immediately and
// filled in on the game loop once decoding finishes, after which the app
// re-renders. Payload is usable only when Success is true.
type ImageEntry struct {
	Payload image.Image
	Success bool
	Err     error
}

// ImageLoader fetches and decodes an image source.
type ImageLoader interface {
	LoadImage(ctx context.Context, src string) (image.Image, error)
}

// DefaultImageLoader reads http(s) URLs with Client and everything else from
// FS, or from the local file system when FS is nil. PNG, JPEG, GIF, BMP and
// WebP are decoded.
type DefaultImageLoader struct {
	Client *http.Client
	FS     fs.FS
}

// LoadImage implements ImageLoader.
func (l DefaultImageLoader) LoadImage(ctx context.Context, src string) (image.Image, error) {
	var r io.ReadCloser
	switch {
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, fmt.Errorf("arbor: load %s: %w", src, err)
		}
		client := l.Client
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("arbor: load %s: %w", src, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("arbor: load %s: %s", src, resp.Status)
		}
		r = resp.Body
	case l.FS != nil:
		f, err := l.FS.Open(src)
		if err != nil {
			return nil, fmt.Errorf("arbor: load %s: %w", src, err)
		}
		r = f
	default:
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("arbor: load %s: %w", src, err)
		}
		r = f
	}
	defer r.Close()

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("arbor: decode %s: %w", src, err)
	}
	return img, nil
}

// ImageLoads is the "$load" state entry. Views call Image to obtain a cached
// entry for a source, optionally cropped.
type ImageLoads struct {
	app *App
}

// Image returns the cache entry for src. crop is left, top, width, height;
// missing values are zero and a crop applies only when width and height are
// both non-zero.
func (l ImageLoads) Image(src string, crop ...float64) *ImageEntry {
	return l.app.LoadImage(src, crop...)
}

// imageCacheKey builds the "src-left-top-width-height" cache key.
func imageCacheKey(src string, r [4]int) string {
	return fmt.Sprintf("%s-%d-%d-%d-%d", src, r[0], r[1], r[2], r[3])
}

// LoadImage returns the cached entry for src and crop, starting a load when
// none exists. Loads run off the game loop; their results are applied and
// re-rendered through the post queue. Failures leave the entry unsuccessful
// with Err set, and a crop outside the image leaves it unsuccessful silently.
func (a *App) LoadImage(src string, crop ...float64) *ImageEntry {
	var r [4]int
	for i := 0; i < len(crop) && i < 4; i++ {
		r[i] = int(crop[i])
	}
	key := imageCacheKey(src, r)
	if e, ok := a.images[key]; ok {
		return e
	}
	e := &ImageEntry{}
	a.images[key] = e

	ctx := a.ctx
	go func() {
		v, err, _ := a.loads.Do(src, func() (any, error) {
			return a.loader.LoadImage(ctx, src)
		})
		var img image.Image
		if err == nil {
			img = v.(image.Image)
			if r[2] != 0 && r[3] != 0 {
				img = cropImage(img, r[0], r[1], r[2], r[3])
			}
		}
		a.Post(func() {
			switch {
			case err != nil:
				e.Err = err
				a.report(err)
				return
			case img == nil:
				return
			}
			e.Payload = img
			e.Success = true
			if err := a.Refresh(); err != nil {
				a.report(err)
			}
		})
	}()
	return e
}

// cropImage copies the available part of the rectangle at (left, top) of
// size width x height into a new image. It returns nil when nothing of the
// rectangle lies inside src.
func cropImage(src image.Image, left, top, width, height int) image.Image {
	b := src.Bounds()
	w := min(width, b.Dx()-left)
	h := min(height, b.Dy()-top)
	if w <= 0 || h <= 0 || left < 0 || top < 0 {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sr := image.Rect(left, top, left+w, top+h).Add(b.Min)
	draw.Copy(dst, image.Point{}, src, sr, draw.Src, nil)
	return dst
}
