package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/pkg/errors"
)

var mpvSerial atomic.Int64

// mpvPlayer drives mpv over its JSON IPC socket. The process is
// started on the first Play and torn down on Stop or Destroy.
type mpvPlayer struct {
	mu      sync.Mutex
	title   string
	path    string
	episode *models.Episode

	state   State
	rate    float64
	lastPos int64 // milliseconds, survives Stop
	lastDur int64

	cmd    *exec.Cmd
	conn   net.Conn
	reader *bufio.Reader
	socket string
	reqID  int64
}

// NewMPV creates an mpv-backed player. No process is spawned yet.
func NewMPV(title, path string, episode *models.Episode) Player {
	return &mpvPlayer{title: title, path: path, episode: episode, rate: 1.0}
}

func (p *mpvPlayer) Title() string            { return p.title }
func (p *mpvPlayer) Path() string             { return p.path }
func (p *mpvPlayer) Episode() *models.Episode { return p.episode }

func (p *mpvPlayer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *mpvPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		if err := p.start(); err != nil {
			return err
		}
	}
	if _, err := p.command("set_property", "pause", false); err != nil {
		return err
	}
	p.state = Playing
	return nil
}

func (p *mpvPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Pausing before the media is loaded is a no-op.
	if p.state != Playing {
		return nil
	}
	if _, err := p.command("set_property", "pause", true); err != nil {
		return err
	}
	p.state = Paused
	return nil
}

func (p *mpvPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samplePosition()
	p.release()
	p.state = Stopped
	return nil
}

func (p *mpvPlayer) SeekBy(direction int, seconds int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	if _, err := p.command("seek", direction*seconds, "relative"); err != nil {
		return err
	}
	p.samplePosition()
	return nil
}

func (p *mpvPlayer) SetRate(rate float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rate = rate
	if p.conn == nil {
		return nil
	}
	_, err := p.command("set_property", "speed", rate)
	return err
}

func (p *mpvPlayer) Position() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samplePosition()
	return p.lastPos
}

func (p *mpvPlayer) Duration() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		if v, err := p.command("get_property", "duration"); err == nil {
			if f, ok := v.(float64); ok {
				p.lastDur = int64(f * 1000)
			}
		}
	}
	return p.lastDur
}

func (p *mpvPlayer) TimeStr() string {
	return FormatTime(p.Position(), p.Duration())
}

func (p *mpvPlayer) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release()
	p.state = Stopped
	return nil
}

// start spawns mpv with an IPC socket and connects to it. Caller
// holds the lock.
func (p *mpvPlayer) start() error {
	sock := filepath.Join(os.TempDir(),
		fmt.Sprintf("castero-mpv-%d-%d.sock", os.Getpid(), mpvSerial.Add(1)))

	// keep-open holds the process at end of media so the final
	// position remains queryable for queue advancement.
	cmd := exec.Command("mpv",
		"--no-video",
		"--no-terminal",
		"--pause=yes",
		"--keep-open=yes",
		"--input-ipc-server="+sock,
		p.path)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, errors.ErrCodePlayerCreate,
			"starting mpv for %q", p.title)
	}

	conn, err := dialRetry(sock, 5*time.Second)
	if err != nil {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		return errors.Wrapf(err, errors.ErrCodePlayerCreate,
			"connecting to mpv for %q", p.title)
	}

	p.cmd = cmd
	p.conn = conn
	p.reader = bufio.NewReader(conn)
	p.socket = sock

	if p.rate != 1.0 {
		_, _ = p.command("set_property", "speed", p.rate)
	}
	if p.lastPos > 0 {
		_, _ = p.command("seek", float64(p.lastPos)/1000, "absolute")
	}
	return nil
}

func dialRetry(sock string, limit time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(limit)
	for {
		conn, err := net.Dial("unix", sock)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// release tears down the process and socket. Caller holds the lock.
// quit gets no reply from mpv, so it is sent without awaiting one.
func (p *mpvPlayer) release() {
	if p.conn != nil {
		_ = p.send("quit")
		_ = p.conn.Close()
		p.conn = nil
		p.reader = nil
	}
	if p.cmd != nil {
		_, _ = p.cmd.Process.Wait()
		p.cmd = nil
	}
	if p.socket != "" {
		_ = os.Remove(p.socket)
		p.socket = ""
	}
}

// samplePosition caches the current time-pos. Caller holds the lock.
func (p *mpvPlayer) samplePosition() {
	if p.conn == nil {
		return
	}
	if v, err := p.command("get_property", "time-pos"); err == nil {
		if f, ok := v.(float64); ok {
			p.lastPos = int64(f * 1000)
		}
	}
}

type mpvRequest struct {
	Command   []interface{} `json:"command"`
	RequestID int64         `json:"request_id"`
}

type mpvResponse struct {
	Error     string      `json:"error"`
	Data      interface{} `json:"data"`
	RequestID int64       `json:"request_id"`
	Event     string      `json:"event"`
}

// send issues one IPC request without awaiting a reply. Caller holds
// the lock.
func (p *mpvPlayer) send(args ...interface{}) error {
	p.reqID++
	payload, err := json.Marshal(mpvRequest{Command: args, RequestID: p.reqID})
	if err != nil {
		return err
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, err = p.conn.Write(append(payload, '\n'))
	return err
}

// command issues one IPC request and waits for its reply, skipping
// any interleaved events. Caller holds the lock.
func (p *mpvPlayer) command(args ...interface{}) (interface{}, error) {
	p.reqID++
	req := mpvRequest{Command: args, RequestID: p.reqID}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	_ = p.conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := p.conn.Write(append(payload, '\n')); err != nil {
		return nil, err
	}
	for {
		line, err := p.reader.ReadBytes('\n')
		if err != nil {
			return nil, err
		}
		var resp mpvResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}
		if resp.Event != "" || resp.RequestID != req.RequestID {
			continue
		}
		if resp.Error != "" && resp.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", resp.Error)
		}
		return resp.Data, nil
	}
}
