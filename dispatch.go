// ABOUTME: Per-message decision logic: rule lookup, mute gate, fan-out.
// ABOUTME: Local playback and push delivery are independent and non-blocking.

package main

import (
	"log"
	"strings"
)

const pushPlaceholderText = "(no text)"

// Dispatcher turns a qualifying inbound message into local playback plus
// best-effort push delivery. It runs on the connection worker; the rule
// table and settings store provide the isolation for its reads.
type Dispatcher struct {
	rules    *RuleTable
	settings *SettingsStore
	playback *PlaybackController
	push     *PushNotifier
}

// NewDispatcher wires the dispatcher's collaborators.
func NewDispatcher(rules *RuleTable, settings *SettingsStore, playback *PlaybackController, push *PushNotifier) *Dispatcher {
	return &Dispatcher{
		rules:    rules,
		settings: settings,
		playback: playback,
		push:     push,
	}
}

// HandleMessage processes one inbound message. No matching rule means no
// side effects at all. Mute suppresses audio only; the push gate is
// evaluated independently. A stalled push attempt never delays playback:
// delivery runs on its own goroutine.
func (d *Dispatcher) HandleMessage(ev MessageEvent) {
	rule, ok := d.rules.Find(ev.SenderID)
	if !ok {
		return
	}

	s := d.settings.Get()

	if !s.Mute {
		if err := d.playback.Play(rule.SoundPath, rule.Volume, rule.SenderID); err != nil {
			log.Printf("Alert sound for %s failed: %v", ev.SenderID, err)
		}
	}

	if !s.PushEnabled || s.PushAppToken == "" || s.PushUserKey == "" {
		return
	}
	if s.Mute && !s.PushWhenMuted {
		return
	}

	body := composePushBody(rule, ev, s.PushIncludeMessage)
	sound := rule.PushSound
	go func() {
		delivered, reason := d.push.Send(s.PushAppToken, s.PushUserKey, appName, body, "", sound)
		if !delivered {
			log.Printf("Push for %s not delivered: %s", ev.SenderID, reason)
		}
	}()
}

// composePushBody renders "{name} @ {where}" with the message text
// appended when configured.
func composePushBody(rule Rule, ev MessageEvent, includeMessage bool) string {
	who := rule.Name
	if who == "" {
		who = ev.SenderDisplayName
	}
	if who == "" {
		who = "User"
	}

	where := ev.LocationLabel
	if where == "" {
		where = "DM"
	}

	body := who + " @ " + where
	if includeMessage {
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			text = pushPlaceholderText
		}
		body += ": " + text
	}
	return body
}
