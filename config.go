package arbor

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/hajimehoshi/ebiten/v2"
)

// LoadConfig decodes TOML surface configuration into Props. Top-level tables
// become nested Props, so a file with [left] and [right] tables is usable as
// the "configs" value of a multi-surface app.
func LoadConfig(data []byte) (Props, error) {
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return toProps(raw), nil
}

// LoadConfigFile reads and decodes a TOML configuration file.
func LoadConfigFile(path string) (Props, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return LoadConfig(data)
}

// toProps converts decoded maps to Props recursively. TOML integers decode
// as int64 and are kept that way; setters accept every numeric type.
func toProps(m map[string]any) Props {
	p := make(Props, len(m))
	for k, v := range m {
		p[k] = convertDecoded(v)
	}
	return p
}

func convertDecoded(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return toProps(x)
	case []map[string]any:
		out := make([]any, len(x))
		for i, m := range x {
			out[i] = toProps(m)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = convertDecoded(e)
		}
		return out
	}
	return v
}

// RunConfig holds optional window settings for Run.
type RunConfig struct {
	Title   string
	Width   int
	Height  int
	ShowFPS bool
	// ClearColor fills the screen before the canvases are drawn.
	ClearColor Color
}

// gameShell adapts an App to ebiten.Game.
type gameShell struct {
	app *App
	cfg RunConfig
}

func (g *gameShell) Update() error {
	return g.app.Update()
}

func (g *gameShell) Draw(screen *ebiten.Image) {
	if g.cfg.ClearColor.A > 0 {
		screen.Fill(g.cfg.ClearColor.toRGBA())
	}
	g.app.Draw(screen)
	if g.cfg.ShowFPS {
		drawFPS(screen)
	}
}

func (g *gameShell) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}

// Run opens a window and drives app until the window closes. Zero sizes
// default to the first canvas size.
func Run(app *App, cfg RunConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = defaultCanvasWidth, defaultCanvasHeight
		if cs := app.Canvases(); len(cs) > 0 && cs[0].Width > 0 && cs[0].Height > 0 {
			cfg.Width, cfg.Height = int(cs[0].Width), int(cs[0].Height)
		}
	}
	if cfg.Title != "" {
		ebiten.SetWindowTitle(cfg.Title)
	}
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	defer app.Close()
	return ebiten.RunGame(&gameShell{app: app, cfg: cfg})
}
