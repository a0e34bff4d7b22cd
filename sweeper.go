package snmp

import "time"

// startSweeper launches the background goroutine that periodically
// evicts stale outstanding-request entries (spec.md §9's Open Question,
// resolved in favor of periodic sweeping over per-access lazy
// expiration, since a request whose response never arrives would
// otherwise never be cleaned up).
func (p *MessageProcessor) startSweeper() {
	p.stopSweep = make(chan struct{})
	ticker := time.NewTicker(p.cfg.sweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-p.stopSweep:
				return
			case now := <-ticker.C:
				for _, handle := range p.cache.sweep(now) {
					p.handles.release(handle)
				}
			}
		}
	}()
}

// Close stops the background sweeper. It does not close any Transport;
// callers own their own transport's lifecycle.
func (p *MessageProcessor) Close() {
	if p.stopSweep != nil {
		close(p.stopSweep)
		p.stopSweep = nil
	}
}
