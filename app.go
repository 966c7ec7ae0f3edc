// ABOUTME: Application wiring and the control surface for mutating state.
// ABOUTME: All state changes run on the control loop via the event marshal.

package main

import (
	"errors"
	"fmt"
	"log"
)

const appName = "TalkAlert"

// App ties the components together. Its mutating methods must run on the
// control loop; workers reach it only through the marshal.
type App struct {
	marshal  *EventMarshal
	settings *SettingsStore
	rules    *RuleTable
	playback *PlaybackController
	push     *PushNotifier
	dispatch *Dispatcher
	conn     *ConnectionManager
	tray     *TrayController
	watcher  *ConfigWatcher

	configPath string

	connState  ConnState
	connDetail string
}

// NewApp builds the component graph. dial lets tests substitute the
// stream client.
func NewApp(configPath string, dial StreamClientFactory) *App {
	a := &App{
		marshal:    NewEventMarshal(),
		settings:   NewSettingsStore(DefaultSettings()),
		rules:      NewRuleTable(),
		push:       NewPushNotifier(),
		configPath: configPath,
	}
	a.playback = NewPlaybackController(NewBeepEngine())
	a.dispatch = NewDispatcher(a.rules, a.settings, a.playback, a.push)
	a.conn = NewConnectionManager(dial, a.marshal, a.applyConnState, func(ev MessageEvent) {
		a.marshal.Post(func() { a.dispatch.HandleMessage(ev) })
	})
	a.tray = NewTrayController(a.marshal)
	a.tray.OnToggleMute = func() { a.SetMute(!a.settings.Get().Mute) }
	a.tray.OnTestSound = func() {
		if err := a.TestSound(); err != nil {
			log.Printf("Test sound failed: %v", err)
		}
	}
	a.tray.OnQuit = a.Shutdown
	a.watcher = NewConfigWatcher(configPath, a.marshal, a.reloadConfig)
	return a
}

// LoadState reads the config from disk into the live stores. Damage is
// logged, never fatal.
func (a *App) LoadState() {
	cfg := LoadConfigOrDefaults(a.configPath)
	a.settings.Update(func(s *Settings) { *s = cfg.Settings() })
	a.rules.Replace(cfg.Rules)
}

// SaveState persists the current stores back to the config file.
func (a *App) SaveState() {
	s := a.settings.Get()
	cfg := ConfigFromState(s, a.rules.All())
	if err := cfg.Save(a.configPath); err != nil {
		log.Printf("Failed to save config: %v", err)
	}
}

// Connect brings the stream connection up from current settings.
func (a *App) Connect() {
	s := a.settings.Get()
	a.conn.Start(s.ServerURL, s.Token)
}

// applyConnState records a connection transition and refreshes the tray.
// Runs on the control loop.
func (a *App) applyConnState(r StateReport) {
	a.connState = r.State
	a.connDetail = r.Detail
	if r.Err != nil {
		log.Printf("Connection: %s (%v)", r.Detail, r.Err)
	} else {
		log.Printf("Connection: %s", r.Detail)
	}
	a.tray.SetStatus(statusLine(r))
}

// statusLine renders a state report for the tray's status item.
func statusLine(r StateReport) string {
	switch r.State {
	case StateOnline:
		return "Online"
	case StateConnecting:
		return "Connecting..."
	default:
		if r.Err != nil && r.Detail != "" {
			return "Offline: " + r.Detail
		}
		return "Offline"
	}
}

// ConnectionStatus returns the last reported state and its diagnostic.
// Call from the control loop.
func (a *App) ConnectionStatus() (ConnState, string) {
	return a.connState, a.connDetail
}

// AddRule validates and appends a rule, then persists.
func (a *App) AddRule(r Rule) error {
	if err := a.rules.Add(r); err != nil {
		return err
	}
	a.SaveState()
	return nil
}

// UpdateRule replaces the rule previously keyed by oldSenderID.
func (a *App) UpdateRule(oldSenderID string, r Rule) error {
	if err := a.rules.Update(oldSenderID, r); err != nil {
		return err
	}
	a.SaveState()
	return nil
}

// RemoveRule deletes a rule by sender id.
func (a *App) RemoveRule(senderID string) {
	a.rules.Remove(senderID)
	a.SaveState()
}

// ReorderRules applies a new rule ordering by sender id.
func (a *App) ReorderRules(order []string) {
	a.rules.Reorder(order)
	a.SaveState()
}

// SetMute flips the global mute. Muting stops any sound already playing;
// push delivery is governed separately by pushWhenMuted.
func (a *App) SetMute(muted bool) {
	a.settings.Update(func(s *Settings) { s.Mute = muted })
	if muted {
		a.playback.Stop()
	}
	a.tray.SetMuted(muted)
	a.SaveState()
}

// UpdateSettings applies edits and restarts the connection when the
// server URL or token changed.
func (a *App) UpdateSettings(fn func(*Settings)) {
	before := a.settings.Get()
	a.settings.Update(fn)
	after := a.settings.Get()
	a.tray.SetMuted(after.Mute)
	a.SaveState()

	if before.ServerURL != after.ServerURL || before.Token != after.Token {
		go a.conn.Restart(after.ServerURL, after.Token)
	}
}

// TestSound plays the first rule's sound at its configured volume. An
// explicit test surfaces playback failures to the caller instead of only
// logging them the way automatic alerts do.
func (a *App) TestSound() error {
	rules := a.rules.All()
	if len(rules) == 0 {
		return errors.New("no rules configured, nothing to play")
	}
	r := rules[0]
	if err := a.playback.Play(r.SoundPath, r.Volume, r.SenderID); err != nil {
		return fmt.Errorf("test sound: %w", err)
	}
	return nil
}

// TestPush sends a push through the configured Pushover credentials and
// reports the outcome.
func (a *App) TestPush() error {
	s := a.settings.Get()
	delivered, reason := a.push.Send(s.PushAppToken, s.PushUserKey, appName, "Test notification", "", "")
	if !delivered {
		return fmt.Errorf("push not delivered: %s", reason)
	}
	return nil
}

// reloadConfig re-reads the config after an external edit and restarts
// the connection when its endpoint changed.
func (a *App) reloadConfig() {
	before := a.settings.Get()
	log.Printf("Config changed on disk, reloading")
	a.LoadState()
	after := a.settings.Get()
	a.tray.SetMuted(after.Mute)
	if before.ServerURL != after.ServerURL || before.Token != after.Token {
		go a.conn.Restart(after.ServerURL, after.Token)
	}
}

// Shutdown runs the ordered teardown and posts the quit to the marshal.
// Must run on the control loop.
func (a *App) Shutdown() {
	log.Printf("Shutting down")
	a.watcher.Stop()
	a.tray.Stop()
	a.playback.Stop()
	a.conn.Stop()
	a.SaveState()
	a.marshal.Quit()
}

// Run starts the background pieces and blocks in the control loop.
func (a *App) Run() {
	if err := a.watcher.Start(); err != nil {
		log.Printf("Config watcher unavailable: %v", err)
	}
	a.tray.Start()
	a.tray.SetMuted(a.settings.Get().Mute)
	a.Connect()
	a.marshal.Run()
}
