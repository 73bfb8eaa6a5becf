package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Trigger produces the repeating signal that starts a cycle.
type Trigger interface {
	C() <-chan time.Time
	// Next reports when the trigger is expected to fire next.
	Next() time.Time
	Stop()
}

type intervalTrigger struct {
	ticker   *time.Ticker
	interval time.Duration

	mu   sync.Mutex
	next time.Time
	c    chan time.Time
	done chan struct{}
}

// NewIntervalTrigger fires every interval, starting one interval from now.
func NewIntervalTrigger(interval time.Duration) Trigger {
	t := &intervalTrigger{
		ticker:   time.NewTicker(interval),
		interval: interval,
		next:     time.Now().Add(interval),
		c:        make(chan time.Time, 1),
		done:     make(chan struct{}),
	}
	go t.loop()
	return t
}

func (t *intervalTrigger) loop() {
	for {
		select {
		case now := <-t.ticker.C:
			t.mu.Lock()
			t.next = now.Add(t.interval)
			t.mu.Unlock()
			select {
			case t.c <- now:
			default:
			}
		case <-t.done:
			return
		}
	}
}

func (t *intervalTrigger) C() <-chan time.Time { return t.c }

func (t *intervalTrigger) Next() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next
}

func (t *intervalTrigger) Stop() {
	t.ticker.Stop()
	close(t.done)
}

type cronTrigger struct {
	cron  *cron.Cron
	entry cron.EntryID
	c     chan time.Time
}

// NewCronTrigger fires on a standard five-field cron spec, e.g. "0 */6 * * *".
func NewCronTrigger(spec string, log logrus.FieldLogger) (Trigger, error) {
	if log == nil {
		log = discardLogger()
	}
	t := &cronTrigger{c: make(chan time.Time, 1)}
	t.cron = cron.New(cron.WithLogger(cronLogger{log: log}))
	id, err := t.cron.AddFunc(spec, func() {
		select {
		case t.c <- time.Now():
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	t.entry = id
	t.cron.Start()
	return t, nil
}

func (t *cronTrigger) C() <-chan time.Time { return t.c }

func (t *cronTrigger) Next() time.Time {
	return t.cron.Entry(t.entry).Next
}

func (t *cronTrigger) Stop() {
	<-t.cron.Stop().Done()
}

type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) fields(keysAndValues []any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.WithFields(l.fields(keysAndValues)).Debugf("cron: %s", msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.WithFields(l.fields(keysAndValues)).WithError(err).Errorf("cron: %s", msg)
}
