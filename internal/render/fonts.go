package render

import (
	"log"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// faces are the HUD and banner fonts of one renderer. Faces are not safe
// for concurrent use; the renderer lock covers them.
type faces struct {
	small font.Face
	large font.Face
}

// loadFaces builds faces from the bundled Go Bold font, falling back to
// the fixed 7x13 face when it cannot be parsed
func loadFaces(hud int) faces {
	fallback := faces{small: basicfont.Face7x13, large: basicfont.Face7x13}

	parsed, err := opentype.Parse(gobold.TTF)
	if err != nil {
		log.Printf("⚠️ Failed to parse font: %v", err)
		return fallback
	}

	small := float64(hud) * 0.4
	if small < 10 {
		small = 10
	}
	f := faces{}
	f.small, err = opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    small,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("⚠️ Failed to create small font face: %v", err)
		return fallback
	}
	f.large, err = opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    small * 1.5,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("⚠️ Failed to create large font face: %v", err)
		return fallback
	}
	return f
}
