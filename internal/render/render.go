// Package render draws arena snapshots to images with gg.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"github.com/fogleman/gg"

	"grid-arena/internal/game"
)

// Config controls frame geometry in pixels
type Config struct {
	CellSize int // side of one grid cell
	Padding  int // border around the board
	HUD      int // height of the status strip above the board
}

// DefaultConfig returns the default frame geometry
func DefaultConfig() Config {
	return Config{CellSize: 48, Padding: 12, HUD: 36}
}

// Palette of the arena: dark board, neon green player
var (
	colorBackground = color.NRGBA{8, 10, 16, 255}
	colorCell       = color.NRGBA{22, 26, 36, 255}
	colorCellLine   = color.NRGBA{40, 46, 60, 255}
	colorTelegraph  = color.NRGBA{255, 214, 0, 110}
	colorStrike     = color.NRGBA{255, 48, 48, 220}
	colorShockwave  = color.NRGBA{255, 140, 0, 220}
	colorTrail      = color.NRGBA{170, 60, 255, 200}
	colorSafe       = color.NRGBA{0, 200, 255, 150}
	colorPlayer     = color.NRGBA{0, 255, 0, 255}
	colorPlayerHit  = color.NRGBA{200, 255, 200, 255}
	colorText       = color.NRGBA{230, 235, 245, 255}
	colorHeart      = color.NRGBA{255, 62, 62, 255}
	colorHeartEmpty = color.NRGBA{70, 40, 40, 255}
	colorDashReady  = color.NRGBA{0, 255, 0, 255}
	colorDashCool   = color.NRGBA{60, 90, 60, 255}
)

// enemyColors by pattern kind name
var enemyColors = map[string]color.NRGBA{
	"cross":     {255, 80, 80, 255},
	"shockwave": {255, 160, 40, 255},
	"trail":     {190, 90, 255, 255},
	"sniper":    {255, 255, 255, 255},
	"laser":     {255, 40, 160, 255},
	"hunter":    {255, 110, 0, 255},
	"spinner":   {80, 160, 255, 255},
	"guardian":  {0, 220, 255, 255},
}

// Renderer draws snapshots. One gg.Context is kept per frame size and reused.
type Renderer struct {
	cfg Config

	mu       sync.Mutex
	contexts map[int]*gg.Context // by grid size
	fonts    faces
}

// New creates a renderer
func New(cfg Config) *Renderer {
	def := DefaultConfig()
	if cfg.CellSize <= 0 {
		cfg.CellSize = def.CellSize
	}
	if cfg.Padding < 0 {
		cfg.Padding = 0
	}
	if cfg.HUD < 0 {
		cfg.HUD = 0
	}
	return &Renderer{
		cfg:      cfg,
		contexts: make(map[int]*gg.Context),
		fonts:    loadFaces(cfg.HUD),
	}
}

// FrameSize returns the image size for a grid of the given size
func (r *Renderer) FrameSize(gridSize int) (w, h int) {
	board := gridSize * r.cfg.CellSize
	return board + 2*r.cfg.Padding, board + 2*r.cfg.Padding + r.cfg.HUD
}

// Render draws snap and returns a copy of the frame
func (r *Renderer) Render(snap *game.GameSnapshot) (image.Image, error) {
	if snap == nil || snap.GridSize <= 0 {
		return nil, fmt.Errorf("render: empty snapshot")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dc := r.context(snap.GridSize)
	r.drawFrame(dc, snap)

	src := dc.Image().(*image.RGBA)
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out, nil
}

// WritePNG renders snap as PNG into w
func (r *Renderer) WritePNG(w io.Writer, snap *game.GameSnapshot) error {
	img, err := r.Render(snap)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}

// PNG renders snap and returns the encoded bytes
func (r *Renderer) PNG(snap *game.GameSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WritePNG(&buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) context(gridSize int) *gg.Context {
	if dc, ok := r.contexts[gridSize]; ok {
		return dc
	}
	w, h := r.FrameSize(gridSize)
	dc := gg.NewContext(w, h)
	r.contexts[gridSize] = dc
	return dc
}

func (r *Renderer) drawFrame(dc *gg.Context, snap *game.GameSnapshot) {
	w, h := float64(dc.Width()), float64(dc.Height())

	dc.SetColor(colorBackground)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	r.drawBoard(dc, snap)
	r.drawCells(dc, snap)
	r.drawPlayer(dc, snap)
	r.drawHUD(dc, snap)

	if snap.State != game.StateRunning.String() {
		r.drawBanner(dc, snap)
	}
}

// cellOrigin returns the top-left pixel of cell (x, y)
func (r *Renderer) cellOrigin(x, y int) (float64, float64) {
	cs := float64(r.cfg.CellSize)
	return float64(r.cfg.Padding) + float64(x)*cs, float64(r.cfg.HUD+r.cfg.Padding) + float64(y)*cs
}

func (r *Renderer) drawBoard(dc *gg.Context, snap *game.GameSnapshot) {
	cs := float64(r.cfg.CellSize)
	dc.SetLineWidth(1)
	for y := 0; y < snap.GridSize; y++ {
		for x := 0; x < snap.GridSize; x++ {
			px, py := r.cellOrigin(x, y)
			dc.SetColor(colorCell)
			dc.DrawRectangle(px+1, py+1, cs-2, cs-2)
			dc.Fill()
			dc.SetColor(colorCellLine)
			dc.DrawRectangle(px+0.5, py+0.5, cs-1, cs-1)
			dc.Stroke()
		}
	}
}

func (r *Renderer) drawCells(dc *gg.Context, snap *game.GameSnapshot) {
	cs := float64(r.cfg.CellSize)
	inset := cs * 0.08

	for _, c := range snap.Cells {
		px, py := r.cellOrigin(c.X, c.Y)

		// lowest to highest priority, later fills paint over earlier ones
		layers := []struct {
			zone game.Zone
			col  color.NRGBA
		}{
			{game.ZoneTelegraph, colorTelegraph},
			{game.ZoneTrail, colorTrail},
			{game.ZoneShockwave, colorShockwave},
			{game.ZoneStrike, colorStrike},
		}
		for _, l := range layers {
			if !c.Zones.Has(l.zone) {
				continue
			}
			dc.SetColor(l.col)
			dc.DrawRectangle(px+inset, py+inset, cs-2*inset, cs-2*inset)
			dc.Fill()
		}

		if c.Zones.Has(game.ZoneSafe) {
			dc.SetColor(colorSafe)
			dc.SetLineWidth(3)
			dc.DrawRectangle(px+inset, py+inset, cs-2*inset, cs-2*inset)
			dc.Stroke()
		}

		if c.Enemy != "" {
			col, ok := enemyColors[c.Enemy]
			if !ok {
				col = colorText
			}
			drawEnemy(dc, c.Enemy, px+cs/2, py+cs/2, cs*0.3, col)
		}
	}
}

// drawEnemy draws a marker whose shape depends on the pattern kind
func drawEnemy(dc *gg.Context, kind string, cx, cy, radius float64, col color.NRGBA) {
	dc.SetColor(col)
	switch kind {
	case "cross", "laser":
		dc.SetLineWidth(radius / 2)
		dc.DrawLine(cx-radius, cy, cx+radius, cy)
		dc.Stroke()
		dc.DrawLine(cx, cy-radius, cx, cy+radius)
		dc.Stroke()
	case "shockwave", "guardian":
		dc.SetLineWidth(radius / 3)
		dc.DrawCircle(cx, cy, radius)
		dc.Stroke()
		dc.DrawCircle(cx, cy, radius/3)
		dc.Fill()
	case "sniper":
		dc.SetLineWidth(2)
		dc.DrawCircle(cx, cy, radius)
		dc.Stroke()
		dc.DrawLine(cx-radius*1.3, cy, cx+radius*1.3, cy)
		dc.Stroke()
		dc.DrawLine(cx, cy-radius*1.3, cx, cy+radius*1.3)
		dc.Stroke()
	case "spinner":
		dc.DrawRegularPolygon(3, cx, cy, radius, 0)
		dc.Fill()
	default:
		dc.DrawRegularPolygon(4, cx, cy, radius, 0)
		dc.Fill()
	}
}

func (r *Renderer) drawPlayer(dc *gg.Context, snap *game.GameSnapshot) {
	p := snap.Player
	if p.Position < 0 || p.X < 0 {
		return
	}
	cs := float64(r.cfg.CellSize)
	px, py := r.cellOrigin(p.X, p.Y)
	cx, cy := px+cs/2, py+cs/2

	// glow
	dc.SetColor(color.NRGBA{0, 255, 0, 60})
	dc.DrawCircle(cx, cy, cs*0.42)
	dc.Fill()

	if p.Invincible {
		dc.SetColor(colorPlayerHit)
	} else {
		dc.SetColor(colorPlayer)
	}
	dc.DrawRoundedRectangle(px+cs*0.22, py+cs*0.22, cs*0.56, cs*0.56, cs*0.1)
	dc.Fill()
}

func (r *Renderer) drawHUD(dc *gg.Context, snap *game.GameSnapshot) {
	pad := float64(r.cfg.Padding)
	mid := pad + float64(r.cfg.HUD)/2

	dc.SetFontFace(r.fonts.small)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(fmt.Sprintf("SCORE %d", snap.Score), pad, mid, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("BEST %d", snap.HighScore), float64(dc.Width())/2, mid, 0.5, 0.5)

	// hearts from the right edge, then the dash bar
	right := float64(dc.Width()) - pad
	heart := 7.0
	for i := snap.Player.MaxHealth - 1; i >= 0; i-- {
		if i < snap.Player.Health {
			dc.SetColor(colorHeart)
		} else {
			dc.SetColor(colorHeartEmpty)
		}
		cx := right - heart - float64(snap.Player.MaxHealth-1-i)*(2*heart+4)
		dc.DrawCircle(cx, mid, heart)
		dc.Fill()
	}

	barW := 40.0
	barX := right - float64(snap.Player.MaxHealth)*(2*heart+4) - barW - 8
	if snap.Player.DashReady {
		dc.SetColor(colorDashReady)
	} else {
		dc.SetColor(colorDashCool)
	}
	dc.DrawRectangle(barX, mid-3, barW, 6)
	dc.Fill()
}

func (r *Renderer) drawBanner(dc *gg.Context, snap *game.GameSnapshot) {
	w, h := float64(dc.Width()), float64(dc.Height())

	dc.SetColor(color.NRGBA{0, 0, 0, 160})
	dc.DrawRectangle(0, h/2-30, w, 60)
	dc.Fill()

	title := "PRESS ENTER TO START"
	if snap.State == game.StateGameOver.String() {
		title = fmt.Sprintf("GAME OVER - SCORE %d", snap.Score)
	}
	dc.SetColor(colorText)
	dc.SetFontFace(r.fonts.large)
	dc.DrawStringAnchored(title, w/2, h/2-8, 0.5, 0.5)
	dc.SetFontFace(r.fonts.small)
	dc.DrawStringAnchored(fmt.Sprintf("GRID %dx%d  (+/- TO RESIZE)", snap.GridSize, snap.GridSize), w/2, h/2+12, 0.5, 0.5)
}
