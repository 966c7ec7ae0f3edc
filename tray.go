// ABOUTME: System tray presence with status, mute toggle, and quit.
// ABOUTME: Menu clicks are forwarded to the control loop via the marshal.

package main

import (
	"log"

	"fyne.io/systray"
)

// TrayController owns the tray icon and its menu. All callbacks are posted
// to the control loop; nothing here mutates application state directly.
type TrayController struct {
	marshal *EventMarshal

	OnToggleMute func()
	OnTestSound  func()
	OnQuit       func()

	end     func()
	status  *systray.MenuItem
	mute    *systray.MenuItem
	running bool
}

func NewTrayController(marshal *EventMarshal) *TrayController {
	return &TrayController{marshal: marshal}
}

// Start brings up the tray icon. Best effort: on platforms without a tray
// the failure is logged and the app keeps running headless.
func (t *TrayController) Start() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Tray unavailable: %v", r)
			t.running = false
		}
	}()

	start, end := systray.RunWithExternalLoop(t.onReady, func() {})
	t.end = end
	t.running = true
	start()
}

func (t *TrayController) onReady() {
	if icon, err := trayIconPNG(); err == nil {
		systray.SetIcon(icon)
	} else {
		log.Printf("Tray icon render failed: %v", err)
	}
	systray.SetTooltip(appName)

	t.status = systray.AddMenuItem("Offline", "Stream connection status")
	t.status.Disable()
	systray.AddSeparator()
	t.mute = systray.AddMenuItemCheckbox("Mute sounds", "Silence alert playback", false)
	mTest := systray.AddMenuItem("Test sound", "Play the first rule's sound")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit "+appName)

	mMute := t.mute
	go func() {
		for {
			select {
			case <-mMute.ClickedCh:
				t.post(t.OnToggleMute)
			case <-mTest.ClickedCh:
				t.post(t.OnTestSound)
			case <-mQuit.ClickedCh:
				t.post(t.OnQuit)
			}
		}
	}()
}

// post forwards a menu click onto the control loop.
func (t *TrayController) post(fn func()) {
	if fn == nil {
		return
	}
	t.marshal.Post(fn)
}

// SetStatus updates the disabled status line. Call from the control loop.
func (t *TrayController) SetStatus(text string) {
	if t.status != nil {
		t.status.SetTitle(text)
	}
}

// SetMuted reflects the mute state in the checkbox.
func (t *TrayController) SetMuted(muted bool) {
	if t.mute == nil {
		return
	}
	if muted {
		t.mute.Check()
	} else {
		t.mute.Uncheck()
	}
}

// Show brings the icon up if it is not already present.
func (t *TrayController) Show() {
	if !t.running {
		t.Start()
	}
}

// Hide removes the icon without shutting the controller down; Show
// brings it back.
func (t *TrayController) Hide() {
	t.Stop()
}

// Stop tears down the tray icon.
func (t *TrayController) Stop() {
	if t.running && t.end != nil {
		t.end()
	}
	t.running = false
	t.status = nil
	t.mute = nil
}
