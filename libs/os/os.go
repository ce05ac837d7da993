package os

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

type logger interface {
	Info(msg string, keyvals ...interface{})
}

// TrapSignal returns a copy of ctx that is canceled when the process
// receives SIGINT or SIGTERM, so that the caller can shut down cleanly. A
// second signal exits at once with a value that is greater than 128. The
// returned function cancels the context and stops trapping.
func TrapSignal(ctx context.Context, logger logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(done)
			cancel()
		})
	}

	go func() {
		trapped := false
		for {
			select {
			case <-done:
				return
			case sig := <-sigs:
				if trapped {
					logger.Info("signal trapped again; exiting", "signal", sig.String())
					os.Exit(exitCode(sig))
				}
				trapped = true
				logger.Info("signal trapped; shutting down", "signal", sig.String())
				cancel()
			}
		}
	}()
	return ctx, stop
}

func exitCode(sig os.Signal) int {
	code := 128

	switch sig {
	case syscall.SIGINT:
		code += int(syscall.SIGINT)
	case syscall.SIGTERM:
		code += int(syscall.SIGTERM)
	}
	return code
}

// EnsureDir creates dir and any missing parents with the given mode.
func EnsureDir(dir string, mode os.FileMode) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err := os.MkdirAll(dir, mode)
		if err != nil {
			return fmt.Errorf("could not create directory %v: %w", dir, err)
		}
	}
	return nil
}

func FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return !os.IsNotExist(err)
}
