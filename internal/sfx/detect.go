package sfx

import "grid-arena/internal/game"

// Detector turns consecutive snapshots into cues. It is used by clients that
// only see snapshots, such as the terminal client in remote mode.
type Detector struct {
	primed    bool
	epoch     uint64
	state     string
	health    int
	dashReady bool
	patterns  int
	wave      int
	highScore int
}

// Observe compares snap with the previous one and returns the cues to play
func (d *Detector) Observe(snap *game.GameSnapshot) []Cue {
	if snap == nil {
		return nil
	}
	var cues []Cue

	wave := 0
	if snap.Wave != nil {
		wave = snap.Wave.Threshold
	}

	if d.primed {
		running := snap.State == game.StateRunning.String()
		sameRound := snap.Epoch == d.epoch

		switch {
		case running && (d.state != snap.State || !sameRound):
			cues = append(cues, CueStart)
		case snap.State == game.StateGameOver.String() && d.state == game.StateRunning.String():
			if snap.HighScore > d.highScore {
				cues = append(cues, CueHighScore)
			} else {
				cues = append(cues, CueGameOver)
			}
		}

		if running && sameRound {
			if snap.Player.Health < d.health {
				cues = append(cues, CueDamage)
			}
			if d.dashReady && !snap.Player.DashReady {
				cues = append(cues, CueDash)
			}
			if len(snap.Patterns) > d.patterns {
				cues = append(cues, CueSpawn)
			}
			if wave != 0 && wave != d.wave {
				cues = append(cues, CueWave)
			}
		}
	}

	d.primed = true
	d.epoch = snap.Epoch
	d.state = snap.State
	d.health = snap.Player.Health
	d.dashReady = snap.Player.DashReady
	d.patterns = len(snap.Patterns)
	d.wave = wave
	d.highScore = snap.HighScore
	return cues
}
