package main

import (
	"os"
	"os/signal"
)

// interruptChannel receives SIGINT (Ctrl+C) so mainInterruptHandler can
// run the scanner's one shutdown hook and stop.
var interruptChannel chan os.Signal

// interruptHandlersDone is closed once the shutdown hook has run,
// letting simulateInterrupt's caller (a test) wait for it.
var interruptHandlersDone = make(chan struct{})

var simulateInterruptChannel = make(chan struct{}, 1)

// signals defines the signals that are handled to do a clean shutdown.
var signals = []os.Signal{os.Interrupt}

// simulateInterrupt requests invoking the clean termination process by
// an internal component instead of a SIGINT.
func simulateInterrupt() {
	select {
	case simulateInterruptChannel <- struct{}{}:
	default:
	}
}

// mainInterruptHandler blocks until a SIGINT or a simulated interrupt
// arrives, then runs shutdown and returns. scannerMain runs this as a
// goroutine alongside Supervisor.Run; there is exactly one shutdown
// hook to invoke, so unlike a long-running daemon with several
// independently-started subsystems, no registration channel or
// LIFO callback list is needed.
func mainInterruptHandler(shutdown func()) {
	select {
	case sig := <-interruptChannel:
		log.Infof("Received signal (%s). Shutting down...", sig)
	case <-simulateInterruptChannel:
		log.Info("Received shutdown request. Shutting down...")
	}
	shutdown()
	close(interruptHandlersDone)
}

// addInterruptHandler arms SIGINT handling and starts the handler
// goroutine, running shutdown once an interrupt (real or simulated) is
// observed. It must be called at most once.
func addInterruptHandler(shutdown func()) {
	interruptChannel = make(chan os.Signal, 1)
	signal.Notify(interruptChannel, signals...)
	go mainInterruptHandler(shutdown)
}
