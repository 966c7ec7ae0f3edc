// ABOUTME: Message stream alert notifier playing per-sender sounds.
// ABOUTME: Runs as a tray client or, with -server, as a stream hub.

package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const defaultPort = "9770"

func main() {
	serverMode := flag.Bool("server", false, "Run as a stream hub instead of a client")
	port := flag.String("port", defaultPort, "Hub listen port (or TALKALERT_PORT env)")
	server := flag.String("connect", "", "WebSocket URL of the stream hub (or TALKALERT_SERVER env)")
	token := flag.String("token", "", "Stream auth token (or TALKALERT_TOKEN env)")
	selfID := flag.String("self", "", "Hub mode: account id reported to clients as their own")
	autostart := flag.String("autostart", "", "Manage login auto-start: install, uninstall, or status")
	testPush := flag.Bool("test-push", false, "Send a test push notification and exit")
	testSound := flag.Bool("test-sound", false, "Play the first rule's sound and exit")

	flag.Parse()

	if *port == defaultPort {
		if envPort := os.Getenv("TALKALERT_PORT"); envPort != "" {
			*port = envPort
		}
	}
	if *server == "" {
		*server = os.Getenv("TALKALERT_SERVER")
	}
	if *token == "" {
		*token = os.Getenv("TALKALERT_TOKEN")
	}

	if *autostart != "" {
		runAutostart(*autostart)
		return
	}

	if *serverMode {
		if *token == "" {
			log.Fatal("Server mode requires -token or TALKALERT_TOKEN env")
		}
		runHub(*port, *token, *selfID)
		return
	}

	app := NewApp(ConfigPath(), NewWSStreamClient)
	app.LoadState()

	// CLI flags override the stored settings for this run.
	if *server != "" || *token != "" {
		app.settings.Update(func(s *Settings) {
			if *server != "" {
				s.ServerURL = *server
			}
			if *token != "" {
				s.Token = *token
			}
		})
	}

	if *testPush {
		if err := app.TestPush(); err != nil {
			log.Fatalf("Test push failed: %v", err)
		}
		log.Printf("Test push delivered")
		return
	}
	if *testSound {
		result := make(chan error, 1)
		app.marshal.Post(func() { result <- app.TestSound() })
		exitCode := 0
		go func() {
			if err := <-result; err != nil {
				log.Printf("Test sound failed: %v", err)
				exitCode = 1
			} else {
				// Give playback a moment to start, then wait it out.
				time.Sleep(500 * time.Millisecond)
				for {
					if _, ok := app.playback.Now(); !ok {
						break
					}
					time.Sleep(100 * time.Millisecond)
				}
			}
			app.marshal.Post(app.Shutdown)
		}()
		app.marshal.Run()
		os.Exit(exitCode)
	}

	// Signals route through the marshal like every other shutdown path.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		app.marshal.Post(app.Shutdown)
	}()

	app.Run()

	// Background goroutines (audio, tray, reconnect) must never keep a
	// finished process alive.
	os.Exit(0)
}

// runHub serves the stream hub: clients attach over WebSocket and
// producers POST message events for fan-out.
func runHub(port, token, selfID string) {
	hub := NewStreamHub(token, selfID)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWebSocket)
	mux.HandleFunc("/message", hub.HandleMessage)

	addr := ":" + port
	log.Printf("Stream hub listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Hub failed: %v", err)
	}
}

func runAutostart(action string) {
	switch action {
	case "install":
		if err := InstallAutostart(); err != nil {
			log.Fatalf("Auto-start install failed: %v", err)
		}
		log.Printf("Auto-start installed")
	case "uninstall":
		if err := UninstallAutostart(); err != nil {
			log.Fatalf("Auto-start uninstall failed: %v", err)
		}
		log.Printf("Auto-start removed")
	case "status":
		if IsAutostartInstalled() {
			fmt.Println("installed")
		} else {
			fmt.Println("not installed")
		}
	default:
		log.Fatalf("Unknown -autostart action %q (want install, uninstall, or status)", action)
	}
}
