// Package ui 终端进度展示
package ui

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner 包装终端 spinner，disabled 时所有方法都是空操作
type Spinner struct {
	s       *spinner.Spinner
	enabled bool
}

func NewSpinner(w io.Writer, msg string, enabled bool) *Spinner {
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = "  " + msg
	_ = s.Color("cyan")
	return &Spinner{s: s, enabled: enabled}
}

func (sp *Spinner) Start() {
	if sp.enabled {
		sp.s.Start()
	}
}

// Update 修改 spinner 后面的提示文字
func (sp *Spinner) Update(msg string) {
	if !sp.enabled {
		return
	}
	sp.s.Lock()
	sp.s.Suffix = "  " + msg
	sp.s.Unlock()
}

func (sp *Spinner) Stop() {
	if sp.enabled {
		sp.s.Stop()
	}
}

// Active 是否正在转
func (sp *Spinner) Active() bool {
	return sp.enabled && sp.s.Active()
}
