package player

import (
	"fmt"
	"os/exec"

	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/pkg/errors"
)

// State is the playback state of a single player.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Stopped"
	}
}

// Player wraps one media backend for one episode. Creation is lazy:
// the backend is not started until the first Play. Stop releases the
// backend but keeps the recorded position so a later Play resumes.
type Player interface {
	Title() string
	Path() string
	Episode() *models.Episode
	State() State

	Play() error
	Pause() error
	Stop() error

	// SeekBy seeks relative: direction is -1 or +1, distance in seconds.
	SeekBy(direction int, seconds int) error
	SetRate(rate float64) error

	// Position and Duration are in milliseconds. Duration may be 0
	// until the backend has parsed the media.
	Position() int64
	Duration() int64

	TimeStr() string

	// Destroy releases all backend resources. The player must not be
	// used afterwards.
	Destroy() error
}

// Factory constructs a player for one episode. The path is either an
// enclosure URL or a downloaded file.
type Factory func(title, path string, episode *models.Episode) Player

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// Detect probes the available media backends and returns the factory
// for the best one. The probe runs once at startup; a missing
// dependency is fatal and reported to the user.
func Detect() (Factory, string, error) {
	if _, err := lookPath("mpv"); err == nil {
		return NewMPV, "mpv", nil
	}
	if _, err := lookPath("ffplay"); err == nil {
		return NewFFPlay, "ffplay", nil
	}
	return nil, "", errors.New(errors.ErrCodePlayerDependency,
		"no media backend found; install mpv or ffplay")
}

// FormatTime renders position/duration as "HH:MM:SS/HH:MM:SS".
func FormatTime(positionMS, durationMS int64) string {
	return fmt.Sprintf("%s/%s", clock(positionMS), clock(durationMS))
}

func clock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds/60)%60, seconds%60)
}
