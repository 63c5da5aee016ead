package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts standard five-field expressions, an optional leading seconds
// field and descriptors such as @hourly or @every 30s.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour |
	cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type TriggerInfo struct {
	Next       time.Time
	Last       time.Time
	Expression string

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

func Parse(cronExpr string) (cron.Schedule, error) {
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// GetTriggerInfo reports the next fire time after refTime. lastRun is the
// scheduler's last observed run; when zero, the previous fire time is
// estimated from the schedule itself.
func GetTriggerInfo(cronExpr string, refTime, lastRun time.Time) (*TriggerInfo, error) {
	schedule, err := Parse(cronExpr)
	if err != nil {
		return nil, err
	}

	nextTime := schedule.Next(refTime)

	prevTime := lastRun
	if prevTime.IsZero() {
		prevTime = estimatePrev(schedule, refTime)
	}

	info := &TriggerInfo{
		Expression:    cronExpr,
		Next:          nextTime,
		Last:          prevTime,
		TimeUntilNext: nextTime.Sub(refTime),
	}
	if !prevTime.IsZero() {
		info.TimeSinceLast = refTime.Sub(prevTime)
	}

	return info, nil
}

func estimatePrev(schedule cron.Schedule, refTime time.Time) time.Time {
	if every, ok := schedule.(cron.ConstantDelaySchedule); ok {
		return refTime.Add(-every.Delay)
	}

	// walk back an hour at a time until a fire lands at or before refTime
	searchStart := refTime.Add(-time.Minute)
	for i := range 366 * 24 {
		candidate := schedule.Next(searchStart.Add(-time.Duration(i) * time.Hour))
		if !candidate.After(refTime) {
			// advance to the latest fire that is still not after refTime
			for {
				following := schedule.Next(candidate)
				if following.After(refTime) || following.IsZero() {
					return candidate
				}
				candidate = following
			}
		}
	}
	return time.Time{}
}
