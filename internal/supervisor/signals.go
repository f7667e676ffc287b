package supervisor

import (
	"os"
	"syscall"
)

// interruptProcess delivers the polite shutdown request. Uvicorn treats
// SIGINT like CTRL+C and runs its shutdown hooks.
func interruptProcess(p *os.Process) error {
	return p.Signal(os.Interrupt)
}

func terminateProcess(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

func killProcess(p *os.Process) error {
	return p.Kill()
}
