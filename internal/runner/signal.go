package runner

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Notify 安装中断处理：SIGINT/SIGTERM 转发给当前子进程
// When no command is active onIdle is called instead, for every signal
// until the returned function uninstalls the handler. stop may be called
// more than once, including from onIdle.
func (r *Runner) Notify(onIdle func(os.Signal)) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-sigCh:
				if r.Forward(sig) {
					continue
				}
				if onIdle != nil {
					onIdle(sig)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
		})
	}
}
