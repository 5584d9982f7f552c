package processor

import "sync"

var (
	processorsLock sync.Mutex
	processors     []Processor
)

// RegisterProcessor registers a processor that the autovalue command runs for
// each package, after Generate. Packages that add processors usually call it
// from an init function.
func RegisterProcessor(p Processor) {
	processorsLock.Lock()
	defer processorsLock.Unlock()
	processors = append(processors, p)
}

// AllRegisteredProcessors returns Generate followed by all registered
// processors, in registration order.
func AllRegisteredProcessors() []Processor {
	processorsLock.Lock()
	defer processorsLock.Unlock()
	procs := make([]Processor, 0, len(processors)+1)
	procs = append(procs, Generate)
	return append(procs, processors...)
}
