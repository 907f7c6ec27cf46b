package player

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/pkg/errors"
)

// ffplayPlayer is the fallback backend. ffplay has no control channel,
// so the player tracks position by wall clock and implements seeking
// by restarting the process at the new offset. Duration comes from a
// single ffprobe call when the backend starts.
type ffplayPlayer struct {
	mu      sync.Mutex
	title   string
	path    string
	episode *models.Episode

	state State
	rate  float64

	// base is the position when the current process started; started
	// marks when it started playing.
	base    int64
	started time.Time
	dur     int64

	cmd *exec.Cmd
}

// NewFFPlay creates an ffplay-backed player. No process is spawned yet.
func NewFFPlay(title, path string, episode *models.Episode) Player {
	return &ffplayPlayer{title: title, path: path, episode: episode, rate: 1.0}
}

func (p *ffplayPlayer) Title() string            { return p.title }
func (p *ffplayPlayer) Path() string             { return p.path }
func (p *ffplayPlayer) Episode() *models.Episode { return p.episode }

func (p *ffplayPlayer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *ffplayPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil {
		if p.dur == 0 {
			p.dur = probeDuration(p.path)
		}
		if err := p.start(p.base); err != nil {
			return err
		}
	}
	p.state = Playing
	return nil
}

// Pause restarts are the only control ffplay offers, so pausing kills
// the process and remembers where it was.
func (p *ffplayPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Playing {
		return nil
	}
	p.base = p.position()
	p.kill()
	p.state = Paused
	return nil
}

func (p *ffplayPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.position()
	p.kill()
	p.state = Stopped
	return nil
}

func (p *ffplayPlayer) SeekBy(direction int, seconds int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	target := p.position() + int64(direction*seconds)*1000
	if target < 0 {
		target = 0
	}
	p.base = target
	if p.state == Playing {
		p.kill()
		return p.start(target)
	}
	return nil
}

func (p *ffplayPlayer) SetRate(rate float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.base = p.position()
	p.rate = rate
	if p.state == Playing {
		p.kill()
		return p.start(p.base)
	}
	return nil
}

func (p *ffplayPlayer) Position() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position()
}

func (p *ffplayPlayer) Duration() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dur
}

func (p *ffplayPlayer) TimeStr() string {
	return FormatTime(p.Position(), p.Duration())
}

func (p *ffplayPlayer) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kill()
	p.state = Stopped
	return nil
}

// position computes the current position in milliseconds. Caller
// holds the lock.
func (p *ffplayPlayer) position() int64 {
	if p.state != Playing || p.cmd == nil {
		return p.base
	}
	pos := p.base + int64(time.Since(p.started).Seconds()*p.rate*1000)
	if p.dur > 0 && pos > p.dur {
		pos = p.dur
	}
	return pos
}

// start launches ffplay at the given offset. Caller holds the lock.
func (p *ffplayPlayer) start(offsetMS int64) error {
	args := []string{
		"-nodisp",
		"-autoexit",
		"-loglevel", "quiet",
		"-ss", fmt.Sprintf("%.3f", float64(offsetMS)/1000),
	}
	if p.rate != 1.0 {
		args = append(args, "-af", fmt.Sprintf("atempo=%.2f", p.rate))
	}
	args = append(args, p.path)

	cmd := exec.Command("ffplay", args...)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, errors.ErrCodePlayerCreate,
			"starting ffplay for %q", p.title)
	}
	p.cmd = cmd
	p.base = offsetMS
	p.started = time.Now()

	go func() {
		_ = cmd.Wait()
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.cmd == cmd {
			// Process reached end of media on its own.
			if p.dur > 0 {
				p.base = p.dur
			} else {
				p.base = p.position()
			}
			p.cmd = nil
			p.state = Stopped
		}
	}()
	return nil
}

// kill tears down the current process. Caller holds the lock.
func (p *ffplayPlayer) kill() {
	if p.cmd == nil {
		return
	}
	cmd := p.cmd
	p.cmd = nil
	_ = cmd.Process.Kill()
	go func() { _ = cmd.Wait() }()
}

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// probeDuration asks ffprobe for the media duration in milliseconds.
// Returns 0 when the duration cannot be determined, which only
// disables automatic queue advancement.
func probeDuration(path string) int64 {
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-show_format",
		"-of", "json",
		path)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return 0
	}
	var out probeFormat
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return 0
	}
	seconds, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0
	}
	return int64(seconds * 1000)
}
