//go:build linux

package audioengine

import (
	"golang.org/x/sys/unix"

	"github.com/tphakala/audioengine/internal/errors"
)

// niceBoost is the fallback nice value when SCHED_FIFO is refused.
const niceBoost = -10

type threadPriority struct {
	rtPriority int
}

// NewThreadPriorityManager returns the platform priority manager. On Linux
// worker threads request SCHED_FIFO at rtPriority and fall back to a nice
// boost when the process lacks CAP_SYS_NICE.
func NewThreadPriorityManager(rtPriority int) PriorityManager {
	return &threadPriority{rtPriority: rtPriority}
}

func (m *threadPriority) Elevate(_ string) (*PriorityToken, error) {
	// pid 0 addresses the calling thread
	saved, err := unix.SchedGetAttr(0, 0)
	if err != nil {
		return nil, priorityDegraded(err, "read thread scheduling attributes")
	}
	restore := *saved

	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Flags:    unix.SCHED_FLAG_RESET_ON_FORK,
		Priority: uint32(m.rtPriority), //nolint:gosec // G115: validated 1..99
	}
	fifoErr := unix.SchedSetAttr(0, &attr, 0)
	if fifoErr == nil {
		return newPriorityToken(PriorityRealtime, func() error {
			return unix.SchedSetAttr(0, &restore, 0)
		}), nil
	}

	tid := unix.Gettid()
	if err := unix.Setpriority(unix.PRIO_PROCESS, tid, niceBoost); err != nil {
		return nil, priorityDegraded(errors.Join(fifoErr, err), "thread priority unchanged")
	}
	tok := newPriorityToken(PriorityBestEffort, func() error {
		return unix.Setpriority(unix.PRIO_PROCESS, tid, int(restore.Nice))
	})
	return tok, priorityDegraded(fifoErr, "SCHED_FIFO refused, using nice boost")
}
