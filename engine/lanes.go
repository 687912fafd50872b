package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/chatward/chatward/chat"
)

var laneItemsAdded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatward_lane_items_added",
	Help: "Messages submitted to the lane scheduler",
})

var laneItemsProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatward_lane_items_processed",
	Help: "Messages the lane scheduler finished processing",
})

// Lanes fans messages out over a fixed worker pool while keeping strict
// per-channel ordering: messages for one channel are processed one at a
// time, in arrival order, regardless of which worker picks them up.
type Lanes struct {
	concurrency int

	do func(context.Context, *chat.Message) error

	feeder chan *laneTask
	out    chan struct{}

	lk     sync.Mutex
	active map[string][]*laneTask

	log *slog.Logger
}

type laneTask struct {
	channel string
	msg     *chat.Message
	control string
}

func NewLanes(concurrency int, do func(context.Context, *chat.Message) error) *Lanes {
	l := &Lanes{
		concurrency: concurrency,
		do:          do,
		feeder:      make(chan *laneTask),
		out:         make(chan struct{}),
		active:      make(map[string][]*laneTask),
		log:         slog.Default().With("system", "lane-scheduler"),
	}
	for i := 0; i < concurrency; i++ {
		go l.worker()
	}
	return l
}

// Submit queues one message. If the channel already has a message in
// flight, the new one is parked behind it; otherwise it goes straight to
// the worker pool.
func (l *Lanes) Submit(ctx context.Context, msg *chat.Message) error {
	laneItemsAdded.Inc()
	t := &laneTask{channel: msg.Channel, msg: msg}

	l.lk.Lock()
	if a, ok := l.active[msg.Channel]; ok {
		l.active[msg.Channel] = append(a, t)
		l.lk.Unlock()
		return nil
	}
	l.active[msg.Channel] = []*laneTask{}
	l.lk.Unlock()

	select {
	case l.feeder <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown drains the workers. Parked messages that never reached a worker
// are dropped.
func (l *Lanes) Shutdown() {
	for i := 0; i < l.concurrency; i++ {
		l.feeder <- &laneTask{control: "stop"}
	}
	close(l.feeder)
	for i := 0; i < l.concurrency; i++ {
		<-l.out
	}
}

func (l *Lanes) worker() {
	for work := range l.feeder {
		for work != nil {
			if work.control == "stop" {
				l.out <- struct{}{}
				return
			}

			if err := l.do(context.TODO(), work.msg); err != nil {
				l.log.Error("message handler failed", "err", err, "channel", work.channel)
			}
			laneItemsProcessed.Inc()

			l.lk.Lock()
			rem, ok := l.active[work.channel]
			if !ok {
				l.log.Error("lane scheduler missing active entry for in-flight channel")
			}
			if len(rem) == 0 {
				delete(l.active, work.channel)
				work = nil
			} else {
				work = rem[0]
				l.active[work.channel] = rem[1:]
			}
			l.lk.Unlock()
		}
	}
}
