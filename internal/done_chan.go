package internal

import "sync"

// DoneChan is closed once whatever it represents (a goroutine, a group of
// goroutines) has finished.
type DoneChan chan struct{}

// DoneFunc begins a shutdown and returns a DoneChan signaling completion.
type DoneFunc func() DoneChan

func wrapWaitGroup(wg *sync.WaitGroup) DoneChan {
	ret := make(DoneChan)
	go func() {
		wg.Wait()
		close(ret)
	}()
	return ret
}

// Combine returns a DoneChan that closes once both first and second have.
func Combine(first DoneChan, second DoneChan) DoneChan {
	ret := make(DoneChan)
	go func() {
		<-first
		<-second
		close(ret)
	}()
	return ret
}

