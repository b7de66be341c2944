package fn

import (
	"errors"
	"sync"
)

// FanOut runs every function concurrently, waits for all of them and joins
// their errors in argument order.
func FanOut(fns ...func() error) error {
	errs := make([]error, len(fns))
	var wg sync.WaitGroup
	for i, f := range fns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f()
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
