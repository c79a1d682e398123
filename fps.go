package arbor

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// fpsRefresh is how many ticks the overlay text is kept before it is
// redrawn.
const fpsRefresh = 30

var (
	fpsImage *ebiten.Image
	fpsTicks int
)

// drawFPS draws the current FPS and TPS in the top-left corner of screen.
func drawFPS(screen *ebiten.Image) {
	if fpsImage == nil {
		// 100x32 is enough for "FPS: 60.0\nTPS: 60.0"
		fpsImage = ebiten.NewImage(100, 32)
		fpsTicks = 0
	}
	if fpsTicks%fpsRefresh == 0 {
		fpsImage.Clear()
		fpsImage.Fill(color.RGBA{0, 0, 0, 128})
		ebitenutil.DebugPrint(fpsImage, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
	}
	fpsTicks++
	screen.DrawImage(fpsImage, nil)
}
