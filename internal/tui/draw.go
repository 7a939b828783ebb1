package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"grid-arena/internal/game"
)

// cellWidth is the number of terminal columns per grid cell
const cellWidth = 2

var (
	styleDefault   = tcell.StyleDefault
	styleBoard     = tcell.StyleDefault.Foreground(tcell.Color(240))
	stylePlayer    = tcell.StyleDefault.Foreground(tcell.ColorLime).Bold(true)
	styleHurt      = tcell.StyleDefault.Foreground(tcell.ColorPaleGreen)
	styleTelegraph = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleStrike    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleShockwave = tcell.StyleDefault.Foreground(tcell.Color(51))
	styleTrail     = tcell.StyleDefault.Foreground(tcell.ColorFuchsia)
	styleSafe      = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleEnemy     = tcell.StyleDefault.Foreground(tcell.ColorOrange).Bold(true)
	styleHUD       = tcell.StyleDefault.Foreground(tcell.ColorLightGray)
	styleBanner    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
)

// enemyGlyphs marks enemy origins by pattern kind
var enemyGlyphs = map[string]rune{
	"cross":     '+',
	"shockwave": 'O',
	"trail":     '~',
	"sniper":    '¤',
	"laser":     '#',
	"hunter":    'H',
	"spinner":   '*',
	"guardian":  'G',
}

// Layout places the board on screen
type Layout struct {
	Left, Top int // board origin in columns/rows
}

// BoardOrigin centres a board of gridSize on a w x h screen, leaving two
// rows for the HUD
func BoardOrigin(w, h, gridSize int) Layout {
	left := (w - gridSize*cellWidth) / 2
	top := (h-gridSize-2)/2 + 2
	if left < 0 {
		left = 0
	}
	if top < 2 {
		top = 2
	}
	return Layout{Left: left, Top: top}
}

// Draw paints snap onto screen. The caller calls Show.
func Draw(screen tcell.Screen, snap *game.GameSnapshot, muted bool) {
	screen.Clear()
	if snap == nil || snap.GridSize == 0 {
		drawText(screen, 0, 0, styleHUD, "waiting for the arena...")
		return
	}

	w, h := screen.Size()
	l := BoardOrigin(w, h, snap.GridSize)

	// empty board
	for y := 0; y < snap.GridSize; y++ {
		for x := 0; x < snap.GridSize; x++ {
			setCell(screen, l, x, y, '·', styleBoard)
		}
	}

	for _, c := range snap.Cells {
		r, style := cellGlyph(c)
		setCell(screen, l, c.X, c.Y, r, style)
	}

	if snap.Player.Position >= 0 {
		style := stylePlayer
		if snap.Player.Invincible {
			style = styleHurt
		}
		setCell(screen, l, snap.Player.X, snap.Player.Y, '@', style)
	}

	drawHUD(screen, snap, muted)

	if snap.State != game.StateRunning.String() {
		msg := "ENTER to start  +/- resize"
		if snap.State == game.StateGameOver.String() {
			msg = fmt.Sprintf("GAME OVER  score %d  ENTER to retry", snap.Score)
		}
		drawText(screen, (w-len(msg))/2, l.Top+snap.GridSize+1, styleBanner, msg)
	}
}

// cellGlyph picks the most important layer of a cell
func cellGlyph(c game.CellSnapshot) (rune, tcell.Style) {
	switch {
	case c.Enemy != "":
		if r, ok := enemyGlyphs[c.Enemy]; ok {
			return r, styleEnemy
		}
		return 'E', styleEnemy
	case c.Zones.Has(game.ZoneSafe):
		return '□', styleSafe
	case c.Zones.Has(game.ZoneStrike):
		return '█', styleStrike
	case c.Zones.Has(game.ZoneShockwave):
		return '≈', styleShockwave
	case c.Zones.Has(game.ZoneTrail):
		return '▒', styleTrail
	case c.Zones.Has(game.ZoneTelegraph):
		return '░', styleTelegraph
	}
	return '·', styleBoard
}

func drawHUD(screen tcell.Screen, snap *game.GameSnapshot, muted bool) {
	hearts := strings.Repeat("♥", max(snap.Player.Health, 0)) +
		strings.Repeat("♡", max(snap.Player.MaxHealth-snap.Player.Health, 0))
	dash := "DASH ready"
	if !snap.Player.DashReady {
		dash = "DASH ..."
	}
	line := fmt.Sprintf("SCORE %d  BEST %d  %s  %s", snap.Score, snap.HighScore, hearts, dash)
	if snap.Wave != nil {
		line += fmt.Sprintf("  WAVE %d", snap.Wave.Threshold)
	}
	if muted {
		line += "  [muted]"
	}
	drawText(screen, 0, 0, styleHUD, line)
}

func setCell(screen tcell.Screen, l Layout, x, y int, r rune, style tcell.Style) {
	col := l.Left + x*cellWidth
	screen.SetContent(col, l.Top+y, r, nil, style)
	screen.SetContent(col+1, l.Top+y, ' ', nil, styleDefault)
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	if x < 0 {
		x = 0
	}
	for _, r := range text {
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}
